// Package mountguard validates and releases image mount directories.
package mountguard

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/EdenNelson/wimwitch-tng/internal/servicing"
)

// Status represents the outcome of preparing a mount directory.
type Status string

const (
	// StatusReady indicates the directory is safe to mount into.
	StatusReady Status = "ready"

	// StatusBusy indicates a live binding or leftover content is present and cleaning wasn't requested.
	StatusBusy Status = "busy"

	// StatusFailed indicates cleaning was requested but couldn't be completed.
	StatusFailed Status = "failed"
)

// ErrMountBusy is returned when a mount directory can't be used without cleaning.
var ErrMountBusy = errors.New("mount directory is in use")

// Guard enforces the at-most-one-binding rule for a mount directory.
type Guard struct {
	client servicing.Client
}

// New returns a guard backed by the given servicing client.
func New(client servicing.Client) *Guard {
	return &Guard{client: client}
}

// Prepare validates a directory before use as a mount target. With clean=false
// the directory is never mutated. With clean=true any live binding is discarded
// and leftover content is removed; on any failure the directory is left
// untouched rather than partially cleaned.
func (g *Guard) Prepare(ctx context.Context, path string, clean bool) (Status, error) {
	mounted, err := g.activeBinding(ctx, path)
	if err != nil {
		return StatusFailed, err
	}

	leftovers, err := hasContent(path)
	if err != nil {
		return StatusFailed, err
	}

	if !mounted && !leftovers {
		return StatusReady, nil
	}

	if !clean {
		return StatusBusy, nil
	}

	// Discard the live binding first; DISM refuses to delete an active mount directory.
	if mounted {
		err = g.client.Dismount(ctx, path, false)
		if err != nil {
			return StatusFailed, errors.New("unable to discard live mount: " + err.Error())
		}
	}

	if leftovers {
		// Move the directory aside in one operation so a delete failure can't
		// leave it half-cleaned, then recreate it empty.
		stale := path + ".stale-" + uuid.New().String()

		err = os.Rename(path, stale)
		if err != nil {
			return StatusFailed, errors.New("unable to set aside leftover content: " + err.Error())
		}

		err = os.Mkdir(path, 0o755)
		if err != nil {
			return StatusFailed, err
		}

		err = os.RemoveAll(stale)
		if err != nil {
			// The mount directory itself is already clean.
			slog.Warn("Unable to delete leftover mount content", "path", stale, "err", err)
		}
	}

	return StatusReady, nil
}

// Commit releases a binding, saving changes into the image. It is an idempotent
// no-op when no binding exists.
func (g *Guard) Commit(ctx context.Context, path string) error {
	return g.release(ctx, path, true)
}

// Discard releases a binding, dropping any changes. It is an idempotent no-op
// when no binding exists.
func (g *Guard) Discard(ctx context.Context, path string) error {
	return g.release(ctx, path, false)
}

func (g *Guard) release(ctx context.Context, path string, commit bool) error {
	mounted, err := g.activeBinding(ctx, path)
	if err != nil {
		return err
	}

	if !mounted {
		return nil
	}

	return g.client.Dismount(ctx, path, commit)
}

func (g *Guard) activeBinding(ctx context.Context, path string) (bool, error) {
	images, err := g.client.ListMountedImages(ctx)
	if err != nil {
		return false, err
	}

	for _, image := range images {
		if filepath.Clean(image.MountDir) == filepath.Clean(path) {
			return true, nil
		}
	}

	return false, nil
}

func hasContent(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, err
	}

	return len(entries) > 0, nil
}
