package codeindex

import "fmt"

// IndexManifestMissingError is returned when a query is attempted against a
// project with no prior build.
type IndexManifestMissingError struct {
	ProjectRoot string
}

func (e *IndexManifestMissingError) Error() string {
	return fmt.Sprintf("codeindex: no manifest found under %s", e.ProjectRoot)
}

// EmbeddingModelMismatchError is returned when a query's requested model
// doesn't match the stored manifest's embedding_dim.
type EmbeddingModelMismatchError struct {
	Manifest string
	Got      string
}

func (e *EmbeddingModelMismatchError) Error() string {
	return fmt.Sprintf("codeindex: embedding model mismatch: manifest=%s requested=%s", e.Manifest, e.Got)
}

// IndexCorruptionError wraps a failure decoding the persisted graph/meta.
type IndexCorruptionError struct {
	Cause error
}

func (e *IndexCorruptionError) Error() string { return fmt.Sprintf("codeindex: index corrupted: %v", e.Cause) }
func (e *IndexCorruptionError) Unwrap() error { return e.Cause }

// FileWalkErrorKind classifies a walk failure.
type FileWalkErrorKind string

const (
	FileWalkReadError   FileWalkErrorKind = "read_error"
	FileWalkStatError   FileWalkErrorKind = "stat_error"
	FileWalkIgnoreError FileWalkErrorKind = "ignore_parse_error"
)

// FileWalkError wraps a failure walking one path.
type FileWalkError struct {
	Path  string
	Kind  FileWalkErrorKind
	Cause error
}

func (e *FileWalkError) Error() string {
	return fmt.Sprintf("codeindex: walk error (%s) at %s: %v", e.Kind, e.Path, e.Cause)
}
func (e *FileWalkError) Unwrap() error { return e.Cause }
