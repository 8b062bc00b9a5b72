package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/EdenNelson/wimwitch-tng/internal/history"
	"github.com/EdenNelson/wimwitch-tng/internal/mountguard"
	"github.com/EdenNelson/wimwitch-tng/internal/selections"
	"github.com/EdenNelson/wimwitch-tng/internal/servicing"
	"github.com/EdenNelson/wimwitch-tng/internal/winver"
)

// errPauseCancel is returned by a pause point when the operator chose to
// discard the run.
var errPauseCancel = errors.New("run cancelled at pause point")

// PauseFunc is consulted at the two interactive pause points. Returning false
// discards the run. A nil PauseFunc always continues, allowing unattended runs.
type PauseFunc func(point StageID) bool

// Runner drives a full customization run through the ordered stage table.
type Runner struct {
	client servicing.Client
	guard  *mountguard.Guard

	// Pause handles the two interactive pause points.
	Pause PauseFunc

	// PackageManager refreshes the systems-management package distributing the
	// exported image. Left nil when no integration is configured.
	PackageManager func(ctx context.Context, packageID string, imagePath string) error
}

// NewRunner returns a runner bound to a servicing client.
func NewRunner(client servicing.Client) *Runner {
	return &Runner{
		client: client,
		guard:  mountguard.New(client),
	}
}

// Run executes a full customization run for the given selections and returns
// the terminal state. The session is destroyed at run end regardless of
// outcome, except that an aborted run deliberately keeps its mount and staging
// for manual cleanup.
func (r *Runner) Run(ctx context.Context, sel *selections.Selections) (State, error) {
	session := newSession(sel)
	started := time.Now()

	slog.Info("Starting customization run", "session", session.ID, "image", sel.Source.ImagePath, "index", sel.Source.Index)

	state, err := r.execute(ctx, session)

	r.destroy(ctx, session, state)
	r.record(session, state, started)

	slog.Info("Customization run finished", "session", session.ID, "state", string(state))

	return state, err
}

// record appends the run to the history file when one is configured.
func (r *Runner) record(session *Session, state State, started time.Time) {
	sel := session.Selections
	if sel.HistoryPath == "" {
		return
	}

	h, err := history.LoadOrCreate(sel.HistoryPath)
	if err != nil {
		slog.Warn("Unable to load run history", "session", session.ID, "path", sel.HistoryPath, "err", err)

		return
	}

	build := history.Build{
		ID:         session.ID,
		Image:      sel.Source.ImagePath,
		Family:     string(session.OSFamily),
		Release:    session.Marketing,
		State:      string(state),
		StartedAt:  started,
		FinishedAt: time.Now(),
	}

	if state == StateCompleted {
		build.ExportPath = filepath.Join(sel.Output.Path, sel.Output.Name)
	}

	err = h.Add(build)
	if err != nil {
		slog.Warn("Unable to record run history", "session", session.ID, "path", sel.HistoryPath, "err", err)
	}
}

func (r *Runner) execute(ctx context.Context, session *Session) (State, error) {
	for _, st := range r.stages(session.Selections) {
		session.Stage = st.id

		if st.enabled != nil && !st.enabled(session.Selections) {
			slog.Info("Stage skipped", "session", session.ID, "stage", string(st.id))

			continue
		}

		slog.Info("Stage starting", "session", session.ID, "stage", string(st.id))

		err := st.run(ctx, session)
		if err == nil {
			slog.Info("Stage completed", "session", session.ID, "stage", string(st.id))

			continue
		}

		if errors.Is(err, errPauseCancel) {
			slog.Info("Run discarded at pause point", "session", session.ID, "stage", string(st.id))

			return StateDiscarded, nil
		}

		if st.optional {
			// A failed optional stage is a recoverable warning.
			slog.Warn("Optional stage failed, continuing", "session", session.ID, "stage", string(st.id), "err", err)

			continue
		}

		return r.fail(ctx, session, st.id, err)
	}

	return StateCompleted, nil
}

// fail maps a fatal stage failure to its terminal state. A fatal failure never
// leaves a mount silently orphaned: anything mounted is explicitly discarded,
// except when the failing step is the dismount/export itself, in which case the
// mount is deliberately left intact and reported for manual cleanup.
func (r *Runner) fail(ctx context.Context, session *Session, id StageID, err error) (State, error) {
	slog.Error("Stage failed", "session", session.ID, "stage", string(id), "err", err)

	switch id {
	case StageValidate, StageCopySource, StageTrimIndexes, StageMount:
		// Nothing is mounted yet; the partial image is dropped.
		return StateDiscarded, err
	case StageDismount, StageExport:
		if session.mounted {
			session.keepMount = true

			slog.Error("Mount left intact for manual cleanup", "session", session.ID, "mount", session.MountDir)
		}

		return StateAborted, err
	default:
		if session.mounted {
			discardErr := r.guard.Discard(ctx, session.MountDir)
			if discardErr != nil {
				session.keepMount = true

				slog.Error("Unable to discard mount, leaving it for manual cleanup", "session", session.ID, "mount", session.MountDir, "err", discardErr)
			} else {
				session.mounted = false
			}
		}

		return StateAborted, err
	}
}

// destroy releases the session's mount and staging area.
func (r *Runner) destroy(ctx context.Context, session *Session, state State) {
	if session.mounted && !session.keepMount {
		err := r.guard.Discard(ctx, session.MountDir)
		if err != nil {
			slog.Error("Unable to discard mount during cleanup", "session", session.ID, "mount", session.MountDir, "err", err)
		} else {
			session.mounted = false
		}
	}

	// An aborted run keeps its staging area; the working copy may hold
	// committed changes that would otherwise be lost.
	if state == StateAborted {
		slog.Warn("Keeping staging area for manual recovery", "session", session.ID, "staging", session.stagingDir())

		return
	}

	if session.stagingDir() != "" {
		err := os.RemoveAll(session.stagingDir())
		if err != nil {
			slog.Warn("Unable to clear staging area", "session", session.ID, "staging", session.stagingDir(), "err", err)
		}
	}
}

func (r *Runner) runValidate(ctx context.Context, session *Session) error {
	sel := session.Selections

	err := sel.Validate()
	if err != nil {
		return err
	}

	_, err = os.Stat(sel.Source.ImagePath)
	if err != nil {
		return errors.New("source image isn't accessible: " + err.Error())
	}

	info, err := r.client.GetImageInfo(ctx, sel.Source.ImagePath, sel.Source.Index)
	if err != nil {
		return errors.New("unable to read image metadata: " + err.Error())
	}

	res := winver.ResolveImage(info.Version, info.Name)

	switch res.Status {
	case winver.StatusUnsupported:
		return errors.New("image build " + res.Build + " belongs to a deprecated release family")
	case winver.StatusUnknown:
		return errors.New("image build " + res.Build + " isn't recognized")
	default:
	}

	session.OSFamily = res.Family
	session.Marketing = res.Marketing
	session.Architecture = info.Architecture

	slog.Info("Source image validated", "session", session.ID, "family", string(res.Family), "version", res.Marketing, "arch", info.Architecture)

	return nil
}

func (r *Runner) runCopySource(_ context.Context, session *Session) error {
	sel := session.Selections

	err := os.MkdirAll(session.stagingDir(), 0o755)
	if err != nil {
		return err
	}

	target := filepath.Join(session.stagingDir(), filepath.Base(sel.Source.ImagePath))

	err = copyFile(sel.Source.ImagePath, target)
	if err != nil {
		return errors.New("unable to copy source image: " + err.Error())
	}

	session.WorkingCopy = target

	return nil
}

func (r *Runner) runTrimIndexes(ctx context.Context, session *Session) error {
	sel := session.Selections

	trimmed := filepath.Join(session.stagingDir(), "trimmed-"+filepath.Base(sel.Source.ImagePath))

	err := r.client.ExportImage(ctx, session.WorkingCopy, session.WorkingIndex, trimmed, exportName(sel))
	if err != nil {
		return errors.New("unable to trim image indexes: " + err.Error())
	}

	// Drop the multi-index copy; everything past this point uses the trimmed image.
	err = os.Remove(session.WorkingCopy)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	session.WorkingCopy = trimmed
	session.WorkingIndex = 1

	return nil
}

func (r *Runner) runMount(ctx context.Context, session *Session) error {
	sel := session.Selections

	status, err := r.guard.Prepare(ctx, sel.Mount.Dir, sel.Mount.Clean)
	if err != nil {
		return err
	}

	switch status {
	case mountguard.StatusBusy:
		return fmt.Errorf("%w: %s (enable cleaning or pick another directory)", mountguard.ErrMountBusy, sel.Mount.Dir)
	case mountguard.StatusFailed:
		return errors.New("mount directory " + sel.Mount.Dir + " couldn't be cleaned")
	default:
	}

	err = os.MkdirAll(sel.Mount.Dir, 0o755)
	if err != nil {
		return err
	}

	err = r.client.Mount(ctx, session.WorkingCopy, session.WorkingIndex, sel.Mount.Dir)
	if err != nil {
		return errors.New("unable to mount image: " + err.Error())
	}

	session.MountDir = sel.Mount.Dir
	session.mounted = true

	return nil
}

func (r *Runner) runPause(_ context.Context, session *Session) error {
	if r.Pause == nil {
		slog.Info("No pause handler configured, continuing", "session", session.ID, "stage", string(session.Stage))

		return nil
	}

	if !r.Pause(session.Stage) {
		return errPauseCancel
	}

	return nil
}

func (r *Runner) runDismount(ctx context.Context, session *Session) error {
	err := r.guard.Commit(ctx, session.MountDir)
	if err != nil {
		return errors.New("unable to commit mounted image: " + err.Error())
	}

	session.mounted = false

	return nil
}

func (r *Runner) runExport(ctx context.Context, session *Session) error {
	sel := session.Selections

	err := os.MkdirAll(sel.Output.Path, 0o755)
	if err != nil {
		return err
	}

	target := filepath.Join(sel.Output.Path, sel.Output.Name)

	err = r.client.ExportImage(ctx, session.WorkingCopy, session.WorkingIndex, target, exportName(sel))
	if err != nil {
		return errors.New("unable to export image: " + err.Error())
	}

	slog.Info("Image exported", "session", session.ID, "target", target)

	return nil
}

// stagingDir is the per-session scratch area under the configured staging root.
func (s *Session) stagingDir() string {
	if s.Selections.Output.StagingDir == "" {
		return ""
	}

	return filepath.Join(s.Selections.Output.StagingDir, s.ID)
}

func exportName(sel *selections.Selections) string {
	return strings.TrimSuffix(sel.Output.Name, filepath.Ext(sel.Output.Name))
}
