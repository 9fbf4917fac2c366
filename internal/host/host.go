package host

import (
	"context"
	"encoding/json"
)

// Artifact type tags as emitted by the runtime.
const (
	TypeOutput = "output"
	TypeTemp   = "temp"
	TypeInput  = "input"
)

// ImageRef describes one persisted artifact inside a save result.
type ImageRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// IsTemporary reports whether the artifact is a preview or other
// throwaway output. Temporary artifacts are never attributed.
func (r ImageRef) IsTemporary() bool {
	return r.Type == TypeTemp
}

// IsFinal reports whether the artifact carries the canonical output tag.
func (r ImageRef) IsFinal() bool {
	return r.Type == TypeOutput
}

// UIResult is the host-facing portion of a save result.
type UIResult struct {
	Images []ImageRef `json:"images"`
}

// SaveResult is the exact return shape of the runtime's save entry point.
// The interceptor must hand this back to the host byte-for-byte untouched.
type SaveResult struct {
	UI UIResult `json:"ui"`
}

// PromptGraph is the opaque structured snapshot of a full workflow as the
// runtime passes it into node callbacks. Parsing it is the workflow
// package's job; everyone else treats it as a blob.
type PromptGraph = json.RawMessage

// SaveFunc is the signature of the runtime's artifact-save entry point.
// The images payload is opaque to this engine.
type SaveFunc func(ctx context.Context, images any, filenamePrefix string, promptGraph PromptGraph, extra map[string]any) (*SaveResult, error)

// Saver is implemented by any runtime component that persists artifacts.
// Third-party nodes are allowed to reimplement saving; anything exposing
// this shape gets the same non-invasive wrap as the well-known entry point.
type Saver interface {
	SaveImages(ctx context.Context, images any, filenamePrefix string, promptGraph PromptGraph, extra map[string]any) (*SaveResult, error)
}

// HiddenInputs are the values the runtime injects into prompt-producing
// node callbacks without them appearing in the authored workflow.
type HiddenInputs struct {
	UniqueID     string         // per-run execution key for this node invocation
	PromptGraph  PromptGraph    // full workflow snapshot
	ExtraPNGInfo map[string]any // per-node extra metadata
}

// DirResolver reports the runtime's current artifact output directory.
type DirResolver func() (string, error)
