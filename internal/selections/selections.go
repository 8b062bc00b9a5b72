// Package selections holds the serializable snapshot of every optional build
// stage's enabled state and parameters. A snapshot is read-only once a run
// starts and can drive a fully unattended run.
package selections

import (
	"errors"

	api "github.com/EdenNelson/wimwitch-tng/api/catalog"
)

// Source identifies the base image for a run.
type Source struct {
	ImagePath string `yaml:"image_path"`
	Index     int    `yaml:"index"`
}

// Output configures where the customized image is exported.
type Output struct {
	Path       string `yaml:"path"`
	Name       string `yaml:"name"`
	StagingDir string `yaml:"staging_dir"`
}

// Mount configures the mount directory for a run.
type Mount struct {
	Dir   string `yaml:"dir"`
	Clean bool   `yaml:"clean"`
}

// LanguageResources configures injection of language packs and features on demand.
type LanguageResources struct {
	Enabled  bool     `yaml:"enabled"`
	PackDir  string   `yaml:"pack_dir"`
	Packs    []string `yaml:"packs"`
	Features []string `yaml:"features"`
}

// DotNet configures injection of the .NET framework payload.
type DotNet struct {
	Enabled   bool   `yaml:"enabled"`
	SourceDir string `yaml:"source_dir"`
}

// Provisioning configures injection of a provisioning package.
type Provisioning struct {
	Enabled     bool   `yaml:"enabled"`
	PackagePath string `yaml:"package_path"`
}

// Drivers configures driver folder injection.
type Drivers struct {
	Enabled bool     `yaml:"enabled"`
	Folders []string `yaml:"folders"`
}

// FileStage configures a stage driven by a single input file.
type FileStage struct {
	Enabled  bool   `yaml:"enabled"`
	FilePath string `yaml:"file_path"`
}

// Registry configures offline registry file imports.
type Registry struct {
	Enabled bool     `yaml:"enabled"`
	Files   []string `yaml:"files"`
}

// ScriptTiming represents when a script hook runs.
type ScriptTiming string

const (
	// TimingAfterMount runs the hook right after the image is mounted.
	TimingAfterMount ScriptTiming = "after-mount"

	// TimingBeforeDismount runs the hook right before the image is dismounted.
	TimingBeforeDismount ScriptTiming = "before-dismount"
)

// ScriptHook configures one external command run at a fixed point in the pipeline.
type ScriptHook struct {
	Command string       `yaml:"command"`
	Timing  ScriptTiming `yaml:"timing"`
}

// PackageRemoval configures removal of provisioned packages.
type PackageRemoval struct {
	Enabled bool     `yaml:"enabled"`
	Names   []string `yaml:"names"`
}

// AgentRefresh configures the systems-management agent refresh stage.
type AgentRefresh struct {
	Enabled bool   `yaml:"enabled"`
	Command string `yaml:"command"`
}

// Stages groups every optional injection stage.
type Stages struct {
	LanguageResources LanguageResources `yaml:"language_resources"`
	DotNet            DotNet            `yaml:"dotnet"`
	Provisioning      Provisioning      `yaml:"provisioning"`
	Drivers           Drivers           `yaml:"drivers"`
	AppAssociations   FileStage         `yaml:"app_associations"`
	StartLayout       FileStage         `yaml:"start_layout"`
	Registry          Registry          `yaml:"registry"`
	Scripts           []ScriptHook      `yaml:"scripts"`
	AgentRefresh      AgentRefresh      `yaml:"agent_refresh"`
	PackageRemoval    PackageRemoval    `yaml:"package_removal"`
}

// Updates configures update resolution and deployment.
type Updates struct {
	Enabled         bool        `yaml:"enabled"`
	IncludeOptional bool        `yaml:"include_optional"`
	IncludeDynamic  bool        `yaml:"include_dynamic"`
	SkipClasses     []api.Class `yaml:"skip_classes"`
}

// Catalog configures the update catalog source and local repository.
type Catalog struct {
	Provider      string            `yaml:"provider"`
	Config        map[string]string `yaml:"config"`
	RepositoryDir string            `yaml:"repository_dir"`
}

// BootImageUpdate configures servicing of the boot image inside staged media.
type BootImageUpdate struct {
	Enabled   bool   `yaml:"enabled"`
	ImagePath string `yaml:"image_path"`
	Index     int    `yaml:"index"`
}

// MediaStaging configures the installation-media staging step.
type MediaStaging struct {
	Enabled   bool   `yaml:"enabled"`
	SourceDir string `yaml:"source_dir"`
	TargetDir string `yaml:"target_dir"`
}

// ISOCreation configures bootable media creation from staged media.
type ISOCreation struct {
	Enabled    bool   `yaml:"enabled"`
	OutputPath string `yaml:"output_path"`
}

// PackageManagerUpdate configures refreshing the systems-management package
// that distributes the exported image.
type PackageManagerUpdate struct {
	Enabled   bool   `yaml:"enabled"`
	PackageID string `yaml:"package_id"`
}

// Post groups the optional post-processing steps.
type Post struct {
	PackageManagerUpdate PackageManagerUpdate `yaml:"package_manager_update"`
	BootImageUpdate      BootImageUpdate      `yaml:"boot_image_update"`
	MediaStaging         MediaStaging         `yaml:"media_staging"`
	ISOCreation          ISOCreation          `yaml:"iso_creation"`
}

// Pauses configures the two interactive pause points.
type Pauses struct {
	AfterMount     bool `yaml:"after_mount"`
	BeforeDismount bool `yaml:"before_dismount"`
}

// Selections is the full customization snapshot for one run.
type Selections struct {
	Source  Source  `yaml:"source"`
	Output  Output  `yaml:"output"`
	Mount   Mount   `yaml:"mount"`
	Stages  Stages  `yaml:"stages"`
	Updates Updates `yaml:"updates"`
	Catalog Catalog `yaml:"catalog"`
	Post    Post    `yaml:"post"`
	Pauses  Pauses  `yaml:"pauses"`

	// HistoryPath enables run recording when set.
	HistoryPath string `yaml:"history_path,omitempty"`
}

// Validate checks the snapshot for the fields every run requires.
func (s *Selections) Validate() error {
	if s.Source.ImagePath == "" {
		return errors.New("source image path is required")
	}

	if s.Source.Index < 1 {
		return errors.New("source image index must be 1 or higher")
	}

	if s.Output.Path == "" || s.Output.Name == "" {
		return errors.New("output path and name are required")
	}

	if s.Output.StagingDir == "" {
		return errors.New("staging directory is required")
	}

	if s.Mount.Dir == "" {
		return errors.New("mount directory is required")
	}

	if s.Updates.Enabled && s.Catalog.Provider == "" {
		return errors.New("updates require a catalog provider")
	}

	for _, hook := range s.Stages.Scripts {
		if hook.Timing != TimingAfterMount && hook.Timing != TimingBeforeDismount {
			return errors.New("script hooks require a valid timing")
		}
	}

	return nil
}

// UpdateClassEnabled checks whether a class survived the per-class toggles.
func (s *Selections) UpdateClassEnabled(class api.Class) bool {
	for _, skipped := range s.Updates.SkipClasses {
		if skipped == class {
			return false
		}
	}

	return true
}
