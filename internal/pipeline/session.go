// Package pipeline drives a full image customization run as a fixed ordered
// sequence of stages against a single mounted image.
package pipeline

import (
	"github.com/google/uuid"

	api "github.com/EdenNelson/wimwitch-tng/api/catalog"
	"github.com/EdenNelson/wimwitch-tng/internal/selections"
)

// State represents a terminal pipeline state.
type State string

const (
	// StateCompleted indicates the run finished and the image was exported.
	StateCompleted State = "completed"

	// StateDiscarded indicates the partial image was dropped before export.
	StateDiscarded State = "discarded"

	// StateAborted indicates an unrecoverable post-mount failure; the mount is
	// deliberately left intact for manual cleanup.
	StateAborted State = "aborted"
)

// Session is the unit of work for one run. It is owned exclusively by the
// runner and destroyed at run end regardless of outcome.
type Session struct {
	ID         string
	Selections *selections.Selections

	// Detected from the source image during validation.
	OSFamily     api.OSFamily
	Marketing    string
	Architecture string

	// WorkingCopy is the staged copy of the source image all mutations target.
	WorkingCopy string

	// WorkingIndex is the index inside the working copy; 1 once trimmed.
	WorkingIndex int

	// MountDir holds the active mount directory while mounted.
	MountDir string

	// Stage is the current stage marker.
	Stage StageID

	mounted bool

	// keepMount marks a mount deliberately left intact after an abort.
	keepMount bool
}

// newSession returns a session for one run of the given selections.
func newSession(sel *selections.Selections) *Session {
	return &Session{
		ID:           uuid.New().String(),
		Selections:   sel,
		WorkingIndex: sel.Source.Index,
	}
}
