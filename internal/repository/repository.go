// Package repository manages the on-disk tree of downloaded update artifacts,
// keyed by OS family, version, class and artifact name.
package repository

import (
	"os"
	"path/filepath"
	"strings"

	api "github.com/EdenNelson/wimwitch-tng/api/catalog"
)

// StoredArtifact represents one artifact directory inside the repository tree.
type StoredArtifact struct {
	OSFamily api.OSFamily
	Version  string
	Class    api.Class
	Name     string
	Dir      string
}

// Repository represents the local update repository root.
type Repository struct {
	root string
}

// New returns a repository rooted at the given directory.
func New(root string) *Repository {
	return &Repository{root: root}
}

// Root returns the repository root directory.
func (r *Repository) Root() string {
	return r.root
}

// ArtifactDir returns the directory holding the content files of one artifact.
func (r *Repository) ArtifactDir(family api.OSFamily, version string, class api.Class, name string) string {
	return filepath.Join(r.root, string(family), version, string(class), sanitizeName(name))
}

// HasFile checks whether a content file is already present with the expected size.
func (r *Repository) HasFile(family api.OSFamily, version string, class api.Class, name string, filename string, size int64) bool {
	fi, err := os.Stat(filepath.Join(r.ArtifactDir(family, version, class, name), filename))
	if err != nil {
		return false
	}

	return size == 0 || fi.Size() == size
}

// ListArtifacts walks the repository and returns every stored artifact for an OS family and version.
func (r *Repository) ListArtifacts(family api.OSFamily, version string) ([]StoredArtifact, error) {
	artifacts := []StoredArtifact{}

	versionDir := filepath.Join(r.root, string(family), version)

	classes, err := os.ReadDir(versionDir)
	if err != nil {
		if os.IsNotExist(err) {
			return artifacts, nil
		}

		return nil, err
	}

	for _, classEntry := range classes {
		if !classEntry.IsDir() {
			continue
		}

		class := api.Class(classEntry.Name())

		_, ok := api.Classes[class]
		if !ok {
			continue
		}

		entries, err := os.ReadDir(filepath.Join(versionDir, classEntry.Name()))
		if err != nil {
			return nil, err
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			artifacts = append(artifacts, StoredArtifact{
				OSFamily: family,
				Version:  version,
				Class:    class,
				Name:     entry.Name(),
				Dir:      filepath.Join(versionDir, classEntry.Name(), entry.Name()),
			})
		}
	}

	return artifacts, nil
}

// Remove deletes a stored artifact and any directories it leaves empty.
func (r *Repository) Remove(artifact StoredArtifact) error {
	err := os.RemoveAll(artifact.Dir)
	if err != nil {
		return err
	}

	// Walk back up towards the root, dropping empty directories.
	dir := filepath.Dir(artifact.Dir)
	for strings.HasPrefix(dir, r.root) && dir != r.root {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			break
		}

		err = os.Remove(dir)
		if err != nil {
			break
		}

		dir = filepath.Dir(dir)
	}

	return nil
}

// sanitizeName makes an artifact name safe for use as a directory name.
func sanitizeName(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")

	return replacer.Replace(strings.TrimSpace(name))
}
