package catalog

import (
	"context"
	"log/slog"
	"path/filepath"

	api "github.com/EdenNelson/wimwitch-tng/api/catalog"
	"github.com/EdenNelson/wimwitch-tng/internal/repository"
)

// Pruner removes locally stored update artifacts that the live catalog no
// longer considers current.
type Pruner struct {
	provider Provider
	repo     *repository.Repository
}

// NewPruner returns a pruner using the given catalog source and local repository.
func NewPruner(provider Provider, repo *repository.Repository) *Pruner {
	return &Pruner{
		provider: provider,
		repo:     repo,
	}
}

// Prune walks the stored artifacts for an OS family and version, re-queries
// their supersedence status and deletes any that are now superseded. Artifacts
// absent from the catalog are treated as no longer current. Emptied folders
// are removed. Returns the number of artifacts deleted.
func (p *Pruner) Prune(ctx context.Context, family api.OSFamily, version string) (int, error) {
	stored, err := p.repo.ListArtifacts(family, version)
	if err != nil {
		return 0, err
	}

	if len(stored) == 0 {
		return 0, nil
	}

	entries, err := p.provider.Query(ctx, Filter{OSFamily: family, Version: version})
	if err != nil {
		return 0, err
	}

	// Index the current catalog by (class, stored directory name).
	superseded := map[string]bool{}

	for _, entry := range entries {
		class := entry.Class
		if class == api.ClassUndefined {
			class = Classify(entry.Title)
		}

		name := filepath.Base(p.repo.ArtifactDir(family, version, class, entry.Title))

		superseded[string(class)+"/"+name] = entry.Superseded
	}

	removed := 0

	for _, artifact := range stored {
		current, found := superseded[string(artifact.Class)+"/"+artifact.Name]
		if found && !current {
			continue
		}

		reason := "superseded"
		if !found {
			reason = "absent from catalog"
		}

		slog.Info("Pruning stored update artifact", "artifact", artifact.Name, "class", string(artifact.Class), "reason", reason)

		err = p.repo.Remove(artifact)
		if err != nil {
			return removed, err
		}

		removed++
	}

	return removed, nil
}
