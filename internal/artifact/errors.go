package artifact

import "errors"

var (
	// ErrArtifactMissing is returned when a required bundle file does not exist.
	ErrArtifactMissing = errors.New("artifact missing")
	// ErrArtifactCorrupt is returned when a bundle file cannot be decoded or
	// lacks a required attribute.
	ErrArtifactCorrupt = errors.New("artifact corrupt")
)
