package pipeline

import (
	"context"

	"github.com/EdenNelson/wimwitch-tng/internal/selections"
)

// StageID identifies one pipeline stage.
type StageID string

const (
	// StageValidate checks the selections and source image before any work.
	StageValidate StageID = "validate"

	// StageCopySource copies the source image into staging.
	StageCopySource StageID = "copy-source"

	// StageTrimIndexes reduces the working copy to the single chosen index.
	StageTrimIndexes StageID = "trim-indexes"

	// StageMount binds the working copy to the mount directory.
	StageMount StageID = "mount"

	// StagePauseAfterMount is the first interactive pause point.
	StagePauseAfterMount StageID = "pause-after-mount"

	// StageLanguageResources injects language packs and features on demand.
	StageLanguageResources StageID = "language-resources"

	// StageDotNet injects the .NET framework payload.
	StageDotNet StageID = "dotnet"

	// StageProvisioning injects a provisioning package.
	StageProvisioning StageID = "provisioning"

	// StageDrivers injects driver folders.
	StageDrivers StageID = "drivers"

	// StageAppAssociations imports default application associations.
	StageAppAssociations StageID = "app-associations"

	// StageStartLayout places the start menu layout file.
	StageStartLayout StageID = "start-layout"

	// StageRegistry imports offline registry files.
	StageRegistry StageID = "registry"

	// StageScriptsAfterMount runs the post-mount script hooks.
	StageScriptsAfterMount StageID = "scripts-after-mount"

	// StageUpdates prunes, resolves, downloads and deploys updates.
	StageUpdates StageID = "updates"

	// StageAgentRefresh refreshes the systems-management agent payload.
	StageAgentRefresh StageID = "agent-refresh"

	// StagePackageRemoval removes provisioned packages.
	StagePackageRemoval StageID = "package-removal"

	// StageScriptsBeforeDismount runs the pre-dismount script hooks.
	StageScriptsBeforeDismount StageID = "scripts-before-dismount"

	// StagePauseBeforeDismount is the second interactive pause point.
	StagePauseBeforeDismount StageID = "pause-before-dismount"

	// StageDismount commits the mounted image back into the working copy.
	StageDismount StageID = "dismount"

	// StageExport exports the committed image to the configured output.
	StageExport StageID = "export"

	// StagePackageManagerUpdate refreshes the distribution package.
	StagePackageManagerUpdate StageID = "package-manager-update"

	// StageBootImageUpdate services the boot image inside staged media.
	StageBootImageUpdate StageID = "boot-image-update"

	// StageMediaStaging assembles the installation media tree.
	StageMediaStaging StageID = "media-staging"

	// StageISOCreation builds bootable media from the staged tree.
	StageISOCreation StageID = "iso-creation"
)

// stage is one entry in the fixed ordered stage table.
type stage struct {
	id StageID

	// optional stages log a warning and let the run continue on failure.
	optional bool

	// enabled gates the stage on the selections; nil means always enabled.
	enabled func(sel *selections.Selections) bool

	run func(ctx context.Context, session *Session) error
}

// stages returns the fixed ordered stage table for one run. Optional stages
// stay in the table even when disabled so skipping is always logged.
func (r *Runner) stages(sel *selections.Selections) []stage {
	return []stage{
		{id: StageValidate, run: r.runValidate},
		{id: StageCopySource, run: r.runCopySource},
		{id: StageTrimIndexes, run: r.runTrimIndexes},
		{id: StageMount, run: r.runMount},
		{id: StagePauseAfterMount, enabled: func(sel *selections.Selections) bool { return sel.Pauses.AfterMount }, run: r.runPause},
		{id: StageLanguageResources, optional: true, enabled: func(sel *selections.Selections) bool { return sel.Stages.LanguageResources.Enabled }, run: r.runLanguageResources},
		{id: StageDotNet, optional: true, enabled: func(sel *selections.Selections) bool { return sel.Stages.DotNet.Enabled }, run: r.runDotNet},
		{id: StageProvisioning, optional: true, enabled: func(sel *selections.Selections) bool { return sel.Stages.Provisioning.Enabled }, run: r.runProvisioning},
		{id: StageDrivers, optional: true, enabled: func(sel *selections.Selections) bool { return sel.Stages.Drivers.Enabled }, run: r.runDrivers},
		{id: StageAppAssociations, optional: true, enabled: func(sel *selections.Selections) bool { return sel.Stages.AppAssociations.Enabled }, run: r.runAppAssociations},
		{id: StageStartLayout, optional: true, enabled: func(sel *selections.Selections) bool { return sel.Stages.StartLayout.Enabled }, run: r.runStartLayout},
		{id: StageRegistry, optional: true, enabled: func(sel *selections.Selections) bool { return sel.Stages.Registry.Enabled }, run: r.runRegistry},
		{id: StageScriptsAfterMount, optional: true, enabled: func(sel *selections.Selections) bool { return hasScript(sel, selections.TimingAfterMount) }, run: r.runScriptsAfterMount},
		{id: StageUpdates, optional: true, enabled: func(sel *selections.Selections) bool { return sel.Updates.Enabled }, run: r.runUpdates},
		{id: StageAgentRefresh, optional: true, enabled: func(sel *selections.Selections) bool { return sel.Stages.AgentRefresh.Enabled }, run: r.runAgentRefresh},
		{id: StagePackageRemoval, optional: true, enabled: func(sel *selections.Selections) bool { return sel.Stages.PackageRemoval.Enabled }, run: r.runPackageRemoval},
		{id: StageScriptsBeforeDismount, optional: true, enabled: func(sel *selections.Selections) bool { return hasScript(sel, selections.TimingBeforeDismount) }, run: r.runScriptsBeforeDismount},
		{id: StagePauseBeforeDismount, enabled: func(sel *selections.Selections) bool { return sel.Pauses.BeforeDismount }, run: r.runPause},
		{id: StageDismount, run: r.runDismount},
		{id: StageExport, run: r.runExport},
		{id: StagePackageManagerUpdate, optional: true, enabled: func(sel *selections.Selections) bool { return sel.Post.PackageManagerUpdate.Enabled }, run: r.runPackageManagerUpdate},
		{id: StageBootImageUpdate, optional: true, enabled: func(sel *selections.Selections) bool { return sel.Post.BootImageUpdate.Enabled }, run: r.runBootImageUpdate},
		{id: StageMediaStaging, optional: true, enabled: func(sel *selections.Selections) bool { return sel.Post.MediaStaging.Enabled }, run: r.runMediaStaging},
		{id: StageISOCreation, optional: true, enabled: func(sel *selections.Selections) bool { return sel.Post.ISOCreation.Enabled }, run: r.runISOCreation},
	}
}

func hasScript(sel *selections.Selections, timing selections.ScriptTiming) bool {
	for _, hook := range sel.Stages.Scripts {
		if hook.Timing == timing {
			return true
		}
	}

	return false
}
