package pdf

import (
	"errors"
	"os/exec"
)

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// CheckAvailable reports whether pdftotext can be run.
func CheckAvailable() error {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions explains how to install pdftotext for better PDF
// extraction.
func InstallInstructions() string {
	return `PDF text is extracted with a built-in parser. For documents with
embedded or CID fonts, install pdftotext from poppler:

  macOS:          brew install poppler
  Debian/Ubuntu:  sudo apt install poppler-utils
  Fedora:         sudo dnf install poppler-utils
  Windows:        choco install poppler`
}
