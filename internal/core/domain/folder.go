package domain

// Metadata keys set on documents imported from a watched folder.
const (
	MetaSourcePath    = "source_path"
	MetaSourceModTime = "source_mtime"
)

// ChangeType is the kind of change observed on a file in a watched folder.
type ChangeType string

// File change kinds.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// FileChange reports one changed file. Path is absolute.
type FileChange struct {
	Type ChangeType
	Path string
}
