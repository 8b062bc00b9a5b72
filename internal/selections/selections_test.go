package selections_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	api "github.com/EdenNelson/wimwitch-tng/api/catalog"
	"github.com/EdenNelson/wimwitch-tng/internal/selections"
)

func fullSelections() *selections.Selections {
	return &selections.Selections{
		Source: selections.Source{ImagePath: `C:\images\install.wim`, Index: 3},
		Output: selections.Output{Path: `C:\output`, Name: "golden-22h2.wim", StagingDir: `C:\staging`},
		Mount:  selections.Mount{Dir: `C:\mount`, Clean: true},
		Stages: selections.Stages{
			LanguageResources: selections.LanguageResources{
				Enabled:  true,
				PackDir:  `C:\lang`,
				Packs:    []string{"de-DE", "fr-FR"},
				Features: []string{"Language.Basic~~~de-DE~0.0.1.0"},
			},
			DotNet:          selections.DotNet{Enabled: true, SourceDir: `C:\dotnet`},
			Provisioning:    selections.Provisioning{Enabled: true, PackagePath: `C:\prov\enterprise.ppkg`},
			Drivers:         selections.Drivers{Enabled: true, Folders: []string{`C:\drivers\nic`, `C:\drivers\storage`}},
			AppAssociations: selections.FileStage{Enabled: true, FilePath: `C:\config\assoc.xml`},
			StartLayout:     selections.FileStage{Enabled: true, FilePath: `C:\config\layout.xml`},
			Registry:        selections.Registry{Enabled: true, Files: []string{`C:\config\branding.reg`}},
			Scripts: []selections.ScriptHook{
				{Command: `C:\scripts\post-mount.cmd`, Timing: selections.TimingAfterMount},
				{Command: `C:\scripts\pre-dismount.cmd`, Timing: selections.TimingBeforeDismount},
			},
			AgentRefresh:   selections.AgentRefresh{Enabled: true, Command: "ccmsetup.exe"},
			PackageRemoval: selections.PackageRemoval{Enabled: true, Names: []string{"Microsoft.ZuneMusic", "Microsoft.XboxApp"}},
		},
		Updates: selections.Updates{
			Enabled:         true,
			IncludeOptional: true,
			IncludeDynamic:  true,
			SkipClasses:     []api.Class{api.ClassAdobe},
		},
		Catalog: selections.Catalog{
			Provider:      "community",
			Config:        map[string]string{"server_url": "https://updates.example.com"},
			RepositoryDir: `C:\updates`,
		},
		Post: selections.Post{
			PackageManagerUpdate: selections.PackageManagerUpdate{Enabled: true, PackageID: "PS100023"},
			BootImageUpdate:      selections.BootImageUpdate{Enabled: true, ImagePath: `C:\staging\media\sources\boot.wim`, Index: 2},
			MediaStaging:         selections.MediaStaging{Enabled: true, SourceDir: `C:\iso-media`, TargetDir: `C:\staging\media`},
			ISOCreation:          selections.ISOCreation{Enabled: true, OutputPath: `C:\output\golden-22h2.iso`},
		},
		Pauses: selections.Pauses{AfterMount: true, BeforeDismount: false},
	}
}

// Saving then loading a snapshot reproduces every field with no loss.
func TestRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "selections.yaml")
	original := fullSelections()

	require.NoError(t, original.Save(path))

	loaded, err := selections.Load(path)

	require.NoError(t, err)
	require.Equal(t, original, loaded)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	s := fullSelections()
	require.NoError(t, s.Validate())

	s.Source.ImagePath = ""
	require.Error(t, s.Validate())

	s = fullSelections()
	s.Source.Index = 0
	require.Error(t, s.Validate())

	s = fullSelections()
	s.Output.StagingDir = ""
	require.Error(t, s.Validate())

	s = fullSelections()
	s.Mount.Dir = ""
	require.Error(t, s.Validate())

	s = fullSelections()
	s.Updates.Enabled = true
	s.Catalog.Provider = ""
	require.Error(t, s.Validate())

	s = fullSelections()
	s.Stages.Scripts[0].Timing = "sometime"
	require.Error(t, s.Validate())
}

func TestUpdateClassEnabled(t *testing.T) {
	t.Parallel()

	s := fullSelections()

	require.False(t, s.UpdateClassEnabled(api.ClassAdobe))
	require.True(t, s.UpdateClassEnabled(api.ClassLCU))
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := selections.Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.Error(t, err)
}
