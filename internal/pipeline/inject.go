package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lxc/incus/v6/shared/subprocess"
)

func (r *Runner) runLanguageResources(ctx context.Context, session *Session) error {
	cfg := session.Selections.Stages.LanguageResources

	for _, name := range append(append([]string{}, cfg.Packs...), cfg.Features...) {
		pkg := filepath.Join(cfg.PackDir, name)

		slog.Info("Applying language resource", "session", session.ID, "package", name)

		err := r.client.ApplyPackage(ctx, session.MountDir, pkg)
		if err != nil {
			return errors.New("unable to apply " + name + ": " + err.Error())
		}
	}

	return nil
}

func (r *Runner) runDotNet(ctx context.Context, session *Session) error {
	cfg := session.Selections.Stages.DotNet

	entries, err := os.ReadDir(cfg.SourceDir)
	if err != nil {
		return err
	}

	applied := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".cab") {
			continue
		}

		slog.Info("Applying framework package", "session", session.ID, "package", entry.Name())

		err = r.client.ApplyPackage(ctx, session.MountDir, filepath.Join(cfg.SourceDir, entry.Name()))
		if err != nil {
			return errors.New("unable to apply " + entry.Name() + ": " + err.Error())
		}

		applied++
	}

	if applied == 0 {
		return errors.New("no framework packages found in " + cfg.SourceDir)
	}

	return nil
}

func (r *Runner) runProvisioning(_ context.Context, session *Session) error {
	cfg := session.Selections.Stages.Provisioning

	target := filepath.Join(session.MountDir, "Recovery", "Customizations")

	err := os.MkdirAll(target, 0o755)
	if err != nil {
		return err
	}

	return copyFile(cfg.PackagePath, filepath.Join(target, filepath.Base(cfg.PackagePath)))
}

func (r *Runner) runDrivers(ctx context.Context, session *Session) error {
	cfg := session.Selections.Stages.Drivers

	for _, folder := range cfg.Folders {
		slog.Info("Adding drivers", "session", session.ID, "folder", folder)

		err := r.client.AddDriver(ctx, session.MountDir, folder)
		if err != nil {
			return errors.New("unable to add drivers from " + folder + ": " + err.Error())
		}
	}

	return nil
}

func (r *Runner) runAppAssociations(ctx context.Context, session *Session) error {
	return r.client.ImportAppAssociations(ctx, session.MountDir, session.Selections.Stages.AppAssociations.FilePath)
}

func (r *Runner) runStartLayout(_ context.Context, session *Session) error {
	target := filepath.Join(session.MountDir, "Users", "Default", "AppData", "Local", "Microsoft", "Windows", "Shell")

	err := os.MkdirAll(target, 0o755)
	if err != nil {
		return err
	}

	return copyFile(session.Selections.Stages.StartLayout.FilePath, filepath.Join(target, "LayoutModification.xml"))
}

func (r *Runner) runRegistry(ctx context.Context, session *Session) error {
	cfg := session.Selections.Stages.Registry

	// The offline software hive is loaded under a session-scoped key, fed every
	// import and unloaded again. Unloading is attempted even after a failed
	// import so the hive never stays attached to the host registry.
	hive := filepath.Join(session.MountDir, "Windows", "System32", "config", "SOFTWARE")
	key := `HKLM\offline-` + session.ID

	_, err := subprocess.RunCommandContext(ctx, "reg", "load", key, hive)
	if err != nil {
		return errors.New("unable to load offline registry hive: " + err.Error())
	}

	var importErr error
	for _, file := range cfg.Files {
		slog.Info("Importing registry file", "session", session.ID, "file", file)

		_, err = subprocess.RunCommandContext(ctx, "reg", "import", file)
		if err != nil {
			importErr = errors.New("unable to import " + file + ": " + err.Error())

			break
		}
	}

	_, err = subprocess.RunCommandContext(ctx, "reg", "unload", key)
	if err != nil && importErr == nil {
		importErr = errors.New("unable to unload offline registry hive: " + err.Error())
	}

	return importErr
}

func (r *Runner) runScriptsAfterMount(ctx context.Context, session *Session) error {
	return r.runScripts(ctx, session, "after-mount")
}

func (r *Runner) runScriptsBeforeDismount(ctx context.Context, session *Session) error {
	return r.runScripts(ctx, session, "before-dismount")
}

func (r *Runner) runScripts(ctx context.Context, session *Session, timing string) error {
	for _, hook := range session.Selections.Stages.Scripts {
		if string(hook.Timing) != timing {
			continue
		}

		slog.Info("Running script hook", "session", session.ID, "timing", timing, "command", hook.Command)

		fields := strings.Fields(hook.Command)
		if len(fields) == 0 {
			continue
		}

		// The mount directory is appended so hooks can address the offline image.
		output, err := subprocess.RunCommandContext(ctx, fields[0], append(fields[1:], session.MountDir)...)
		if err != nil {
			return errors.New("script hook failed: " + err.Error())
		}

		if strings.TrimSpace(output) != "" {
			slog.Info("Script hook output", "session", session.ID, "output", strings.TrimSpace(output))
		}
	}

	return nil
}

func (r *Runner) runAgentRefresh(ctx context.Context, session *Session) error {
	cfg := session.Selections.Stages.AgentRefresh

	fields := strings.Fields(cfg.Command)
	if len(fields) == 0 {
		return errors.New("agent refresh requires a command")
	}

	_, err := subprocess.RunCommandContext(ctx, fields[0], append(fields[1:], session.MountDir)...)
	if err != nil {
		return errors.New("agent refresh failed: " + err.Error())
	}

	return nil
}

func (r *Runner) runPackageRemoval(ctx context.Context, session *Session) error {
	cfg := session.Selections.Stages.PackageRemoval

	// A package that fails to remove shouldn't block the remaining ones.
	for _, name := range cfg.Names {
		slog.Info("Removing provisioned package", "session", session.ID, "package", name)

		err := r.client.RemoveProvisionedPackage(ctx, session.MountDir, name)
		if err != nil {
			slog.Warn("Unable to remove provisioned package", "session", session.ID, "package", name, "err", err)
		}
	}

	return nil
}
