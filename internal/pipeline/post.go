package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lxc/incus/v6/shared/subprocess"

	api "github.com/EdenNelson/wimwitch-tng/api/catalog"
	"github.com/EdenNelson/wimwitch-tng/internal/mountguard"
	"github.com/EdenNelson/wimwitch-tng/internal/patch"
	"github.com/EdenNelson/wimwitch-tng/internal/repository"
)

func (r *Runner) runPackageManagerUpdate(ctx context.Context, session *Session) error {
	if r.PackageManager == nil {
		return errors.New("no package manager integration is configured")
	}

	sel := session.Selections

	return r.PackageManager(ctx, sel.Post.PackageManagerUpdate.PackageID, filepath.Join(sel.Output.Path, sel.Output.Name))
}

// runBootImageUpdate services the boot image with the servicing stack and
// cumulative update already present in the local repository.
func (r *Runner) runBootImageUpdate(ctx context.Context, session *Session) error {
	sel := session.Selections
	cfg := sel.Post.BootImageUpdate

	index := cfg.Index
	if index < 1 {
		index = 1
	}

	mountDir := filepath.Join(session.stagingDir(), "boot-mount")

	// Every mount goes through the guard, even a private one.
	status, err := r.guard.Prepare(ctx, mountDir, true)
	if err != nil {
		return err
	}

	if status != mountguard.StatusReady {
		return errors.New("boot image mount directory " + mountDir + " couldn't be prepared")
	}

	err = os.MkdirAll(mountDir, 0o755)
	if err != nil {
		return err
	}

	err = r.client.Mount(ctx, cfg.ImagePath, index, mountDir)
	if err != nil {
		return errors.New("unable to mount boot image: " + err.Error())
	}

	repo := repository.New(sel.Catalog.RepositoryDir)

	engine, err := patch.NewEngine(r.client, repo, session.stagingDir(), filepath.Join(session.stagingDir(), "dynamic"))
	if err != nil {
		_ = r.guard.Discard(ctx, mountDir)

		return err
	}

	for _, class := range []api.Class{api.ClassSSU, api.ClassLCU} {
		outcomes, err := engine.Apply(ctx, mountDir, session.OSFamily, session.Marketing, class)
		if err != nil {
			_ = r.guard.Discard(ctx, mountDir)

			return err
		}

		for _, outcome := range outcomes {
			slog.Info("Boot image update processed", "session", session.ID, "class", string(class), "artifact", outcome.Artifact, "result", string(outcome.Result))
		}
	}

	return r.guard.Commit(ctx, mountDir)
}

func (r *Runner) runMediaStaging(_ context.Context, session *Session) error {
	sel := session.Selections
	cfg := sel.Post.MediaStaging

	err := copyDir(cfg.SourceDir, cfg.TargetDir)
	if err != nil {
		return errors.New("unable to stage media tree: " + err.Error())
	}

	// The exported image replaces the stock installer payload.
	err = copyFile(filepath.Join(sel.Output.Path, sel.Output.Name), filepath.Join(cfg.TargetDir, "sources", "install.wim"))
	if err != nil {
		return errors.New("unable to place installer image: " + err.Error())
	}

	// Overlay any dynamic update content staged during deployment.
	dynamic := filepath.Join(session.stagingDir(), "dynamic")

	_, err = os.Stat(dynamic)
	if err == nil {
		err = copyDir(dynamic, cfg.TargetDir)
		if err != nil {
			return errors.New("unable to overlay dynamic update content: " + err.Error())
		}
	}

	return nil
}

func (r *Runner) runISOCreation(ctx context.Context, session *Session) error {
	sel := session.Selections
	cfg := sel.Post.ISOCreation

	if !sel.Post.MediaStaging.Enabled {
		return errors.New("bootable media creation requires staged media")
	}

	media := sel.Post.MediaStaging.TargetDir
	etfsboot := filepath.Join(media, "boot", "etfsboot.com")
	efisys := filepath.Join(media, "efi", "microsoft", "boot", "efisys.bin")

	_, err := subprocess.RunCommandContext(ctx, "oscdimg", "-m", "-o", "-u2", "-udfver102", "-bootdata:2#p0,e,b"+etfsboot+"#pEF,e,b"+efisys, media, cfg.OutputPath)
	if err != nil {
		return errors.New("unable to build bootable media: " + err.Error())
	}

	slog.Info("Bootable media created", "session", session.ID, "target", cfg.OutputPath)

	return nil
}
