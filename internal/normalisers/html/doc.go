// Package html extracts readable text from HTML pages, dropping scripts,
// styles and markup and decoding entities.
package html
