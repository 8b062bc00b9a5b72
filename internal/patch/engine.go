// Package patch applies downloaded update artifacts to a mounted image, with
// per-family sequencing of cumulative update content.
package patch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/lxc/incus/v6/shared/subprocess"

	api "github.com/EdenNelson/wimwitch-tng/api/catalog"
	"github.com/EdenNelson/wimwitch-tng/internal/repository"
	"github.com/EdenNelson/wimwitch-tng/internal/servicing"
)

// Result represents the outcome of deploying one artifact.
type Result string

const (
	// ResultApplied indicates the artifact was deployed.
	ResultApplied Result = "applied"

	// ResultSkipped indicates the artifact had nothing to deploy.
	ResultSkipped Result = "skipped"

	// ResultFailed indicates the artifact couldn't be deployed.
	ResultFailed Result = "failed"
)

// Outcome records the deployment result for one stored artifact.
type Outcome struct {
	Artifact string
	Result   Result
	Err      error
}

// Engine deploys stored update artifacts of a given class.
type Engine struct {
	client   servicing.Client
	repo     *repository.Repository
	workDir  string
	mediaDir string

	modes lcuModeTable

	// extract unpacks a container into a directory; overridable in tests.
	extract func(ctx context.Context, src string, dst string) error
}

// NewEngine returns an engine bound to a servicing client and local repository.
// Dynamic-class content is staged under mediaDir instead of being applied.
func NewEngine(client servicing.Client, repo *repository.Repository, workDir string, mediaDir string) (*Engine, error) {
	modes, err := loadModeTable()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		client:   client,
		repo:     repo,
		workDir:  workDir,
		mediaDir: mediaDir,
		modes:    modes,
	}

	e.extract = e.expandContainer

	return e, nil
}

// Apply deploys every stored artifact of one class to the mounted image. A
// single artifact's failure is recorded and doesn't abort the remaining
// artifacts; the caller decides whether the overall run continues.
func (e *Engine) Apply(ctx context.Context, mountDir string, family api.OSFamily, version string, class api.Class) ([]Outcome, error) {
	stored, err := e.repo.ListArtifacts(family, version)
	if err != nil {
		return nil, err
	}

	outcomes := []Outcome{}

	for _, artifact := range stored {
		if artifact.Class != class {
			continue
		}

		outcome := Outcome{Artifact: artifact.Name}

		files, err := contentFiles(artifact.Dir)
		switch {
		case err != nil:
			outcome.Result = ResultFailed
			outcome.Err = err
		case len(files) == 0:
			// An empty artifact directory is left behind when every one of its
			// downloads failed; there's nothing to deploy.
			outcome.Result = ResultSkipped
		default:
			err = e.applyArtifact(ctx, mountDir, family, version, artifact, files)
			if err != nil {
				outcome.Result = ResultFailed
				outcome.Err = err
			} else {
				outcome.Result = ResultApplied
			}
		}

		if outcome.Err != nil {
			slog.Warn("Unable to deploy update artifact", "artifact", artifact.Name, "class", string(class), "err", outcome.Err)
		}

		outcomes = append(outcomes, outcome)
	}

	if len(outcomes) == 0 {
		outcomes = append(outcomes, Outcome{Artifact: string(class), Result: ResultSkipped})
	}

	return outcomes, nil
}

func (e *Engine) applyArtifact(ctx context.Context, mountDir string, family api.OSFamily, version string, artifact repository.StoredArtifact, files []string) error {
	switch artifact.Class {
	case api.ClassLCU:
		return e.applyCumulative(ctx, mountDir, family, version, artifact, files)
	case api.ClassDynamic:
		return e.stageDynamic(artifact, files)
	default:
		// All other classes apply directly.
		for _, file := range files {
			err := e.client.ApplyPackage(ctx, mountDir, file)
			if err != nil {
				return err
			}
		}

		return nil
	}
}

// applyCumulative deploys a cumulative update with the sequencing the target
// family requires.
func (e *Engine) applyCumulative(ctx context.Context, mountDir string, family api.OSFamily, version string, artifact repository.StoredArtifact, files []string) error {
	switch e.modes.lookup(family, version) {
	case lcuModeSplit:
		return e.applySplit(ctx, mountDir, artifact, files)
	case lcuModeConvert:
		return e.applyConverted(ctx, mountDir, artifact, files)
	default:
		for _, file := range files {
			err := e.client.ApplyPackage(ctx, mountDir, file)
			if err != nil {
				return err
			}
		}

		return nil
	}
}

// stageDynamic extracts dynamic update content into the installation-media
// staging tree rather than applying it to the mount.
func (e *Engine) stageDynamic(artifact repository.StoredArtifact, files []string) error {
	target := filepath.Join(e.mediaDir, "sources")

	err := os.MkdirAll(target, 0o755)
	if err != nil {
		return err
	}

	for _, file := range files {
		err = copyFile(file, filepath.Join(target, filepath.Base(file)))
		if err != nil {
			return err
		}
	}

	slog.Info("Staged dynamic update content", "artifact", artifact.Name, "target", target)

	return nil
}

// expandContainer unpacks a container file with the platform expand tool.
func (*Engine) expandContainer(ctx context.Context, src string, dst string) error {
	_, err := subprocess.RunCommandContext(ctx, "expand", "-f:*", src, dst)

	return err
}

func contentFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := []string{}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		files = append(files, filepath.Join(dir, entry.Name()))
	}

	slices.Sort(files)

	return files, nil
}

func copyFile(src string, dst string) error {
	in, err := os.Open(src) //nolint:gosec
	if err != nil {
		return err
	}

	defer in.Close()

	out, err := os.Create(dst) //nolint:gosec
	if err != nil {
		return err
	}

	defer out.Close()

	_, err = io.Copy(out, in)

	return err
}
