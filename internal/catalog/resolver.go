package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	api "github.com/EdenNelson/wimwitch-tng/api/catalog"
	"github.com/EdenNelson/wimwitch-tng/internal/repository"
)

// Content file extensions accepted for offline servicing.
var allowedExtensions = map[string]struct{}{
	".msu": {},
	".cab": {},
	".esd": {},
}

// Content file name patterns that can't be applied to an offline image:
// online-only express deltas, baseline-dependent packages and
// feature-metadata-only packages.
var incompatiblePatterns = []string{
	"express",
	"psfx",
	"baseless",
	"metadataonly",
}

// Resolver turns raw catalog entries into a deduplicated set of current,
// offline-serviceable update artifacts and downloads their content.
type Resolver struct {
	provider Provider
	repo     *repository.Repository
	client   *http.Client
}

// NewResolver returns a resolver using the given catalog source and local repository.
func NewResolver(provider Provider, repo *repository.Repository) *Resolver {
	return &Resolver{
		provider: provider,
		repo:     repo,
		client:   http.DefaultClient,
	}
}

// Resolve queries the catalog and returns the current artifacts for an OS
// family, version and architecture. Superseded entries are dropped, each entry
// is classified through the ordered rule table and content files are filtered
// to the offline-serviceable set.
func (r *Resolver) Resolve(ctx context.Context, family api.OSFamily, version string, arch string, includeOptional bool, includeDynamic bool) ([]api.Artifact, error) {
	entries, err := r.provider.Query(ctx, Filter{OSFamily: family, Version: version, Architecture: arch})
	if err != nil {
		return nil, err
	}

	artifacts := []api.Artifact{}
	seen := map[string]struct{}{}

	for _, entry := range entries {
		if entry.Superseded {
			continue
		}

		if entry.Class == api.ClassUndefined {
			entry.Class = Classify(entry.Title)
		}

		if entry.Class == api.ClassOptional && !includeOptional {
			continue
		}

		if entry.Class == api.ClassDynamic && !includeDynamic {
			continue
		}

		// Filter the content files, dropping duplicates already emitted for
		// this class.
		files := []api.ContentFile{}

		for _, file := range entry.Files {
			if !offlineServiceable(file.Filename) {
				continue
			}

			key := string(entry.Class) + "/" + strings.ToLower(file.Filename)

			_, duplicate := seen[key]
			if duplicate {
				continue
			}

			seen[key] = struct{}{}

			files = append(files, file)
		}

		entry.Files = files

		// Skip entries with no serviceable files.
		if len(entry.Files) == 0 {
			continue
		}

		artifacts = append(artifacts, entry)
	}

	if len(artifacts) == 0 {
		return nil, ErrNoArtifacts
	}

	return artifacts, nil
}

// Download fetches every content file of the given artifacts into the local
// repository, skipping files already present. Container files are verified for
// installer metadata; invalid ones are deleted and reported. A single file's
// failure doesn't abort the remaining downloads.
func (r *Resolver) Download(ctx context.Context, artifacts []api.Artifact, progressFunc func(float64)) (int, error) {
	downloaded := 0

	for _, artifact := range artifacts {
		targetDir := r.repo.ArtifactDir(artifact.OSFamily, artifact.Version, artifact.Class, artifact.Title)

		err := os.MkdirAll(targetDir, 0o755)
		if err != nil {
			return downloaded, err
		}

		for _, file := range artifact.Files {
			if r.repo.HasFile(artifact.OSFamily, artifact.Version, artifact.Class, artifact.Title, file.Filename, file.Size) {
				slog.Info("Update content already present", "artifact", artifact.Title, "file", file.Filename)

				continue
			}

			target := filepath.Join(targetDir, file.Filename)

			slog.Info("Downloading update content", "artifact", artifact.Title, "file", file.Filename)

			err = downloadFile(ctx, r.client, file.URL, file.Sha256, target, progressFunc)
			if err != nil {
				// A failed download is terminal for this file only.
				slog.Warn("Unable to download update content", "artifact", artifact.Title, "file", file.Filename, "err", err)

				continue
			}

			err = verifyContainer(target)
			if err != nil {
				slog.Warn("Downloaded container is invalid, deleting it", "artifact", artifact.Title, "file", file.Filename, "err", err)
				_ = os.Remove(target)

				continue
			}

			downloaded++
		}
	}

	return downloaded, nil
}

// offlineServiceable checks a content file name against the extension
// allow-list and the known offline-incompatible patterns.
func offlineServiceable(filename string) bool {
	lowered := strings.ToLower(filename)

	_, ok := allowedExtensions[filepath.Ext(lowered)]
	if !ok {
		return false
	}

	for _, pattern := range incompatiblePatterns {
		if strings.Contains(lowered, pattern) {
			return false
		}
	}

	return true
}
