// Package normalisers turns uploaded files and web pages into plain text.
//
// Each sub-package implements driven.Normaliser for one format. Registry
// picks the highest-priority normaliser for a MIME type, and Extractor maps
// file extensions to MIME types and fetches URLs.
package normalisers
