package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	api "github.com/EdenNelson/wimwitch-tng/api/catalog"
	"github.com/EdenNelson/wimwitch-tng/internal/catalog"
	"github.com/EdenNelson/wimwitch-tng/internal/patch"
	"github.com/EdenNelson/wimwitch-tng/internal/repository"
)

func (r *Runner) runUpdates(ctx context.Context, session *Session) error {
	sel := session.Selections

	provider, err := catalog.Load(ctx, sel.Catalog.Provider, sel.Catalog.Config)
	if err != nil {
		return err
	}

	repo := repository.New(sel.Catalog.RepositoryDir)

	// Pruning always completes before resolution so a freshly superseded
	// update can never be deployed from the local repository.
	removed, err := catalog.NewPruner(provider, repo).Prune(ctx, session.OSFamily, session.Marketing)
	if err != nil {
		return errors.New("unable to prune update repository: " + err.Error())
	}

	if removed > 0 {
		slog.Info("Pruned superseded updates", "session", session.ID, "removed", removed)
	}

	resolver := catalog.NewResolver(provider, repo)

	artifacts, err := resolver.Resolve(ctx, session.OSFamily, session.Marketing, session.Architecture, sel.Updates.IncludeOptional, sel.Updates.IncludeDynamic)
	if err != nil {
		if errors.Is(err, catalog.ErrNoArtifacts) {
			slog.Info("No applicable updates found", "session", session.ID, "family", string(session.OSFamily), "version", session.Marketing)

			return nil
		}

		return err
	}

	_, err = resolver.Download(ctx, artifacts, nil)
	if err != nil {
		return err
	}

	engine, err := patch.NewEngine(r.client, repo, session.stagingDir(), filepath.Join(session.stagingDir(), "dynamic"))
	if err != nil {
		return err
	}

	classes := append([]api.Class{}, api.ApplyOrder...)
	if sel.Updates.IncludeDynamic {
		classes = append(classes, api.ClassDynamic)
	}

	for _, class := range classes {
		if !sel.UpdateClassEnabled(class) {
			slog.Info("Update class skipped", "session", session.ID, "class", string(class))

			continue
		}

		outcomes, err := engine.Apply(ctx, session.MountDir, session.OSFamily, session.Marketing, class)
		if err != nil {
			return err
		}

		for _, outcome := range outcomes {
			if outcome.Result == patch.ResultFailed {
				slog.Warn("Update couldn't be deployed", "session", session.ID, "class", string(class), "artifact", outcome.Artifact, "err", outcome.Err)

				continue
			}

			slog.Info("Update processed", "session", session.ID, "class", string(class), "artifact", outcome.Artifact, "result", string(outcome.Result))
		}
	}

	return nil
}
