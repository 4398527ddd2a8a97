package domain

// RawContent is undecoded input handed to a normaliser.
type RawContent struct {
	// Name is the original filename or page address.
	Name string

	// MIMEType selects the normaliser.
	MIMEType string

	// URI locates the content (file path or URL).
	URI string

	// Data is the raw bytes.
	Data []byte

	// Metadata holds fields known before normalisation (e.g. HTTP headers).
	Metadata map[string]any
}
