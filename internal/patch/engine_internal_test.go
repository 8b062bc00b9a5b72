package patch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	api "github.com/EdenNelson/wimwitch-tng/api/catalog"
	"github.com/EdenNelson/wimwitch-tng/internal/repository"
	"github.com/EdenNelson/wimwitch-tng/internal/servicing"
)

// A servicing client recording package applications.
type fakeClient struct {
	servicing.Client

	applied []string
	failOn  string
}

func (f *fakeClient) ApplyPackage(_ context.Context, _ string, packagePath string) error {
	if f.failOn != "" && strings.Contains(packagePath, f.failOn) {
		return errors.New("package deployment failed")
	}

	f.applied = append(f.applied, filepath.Base(packagePath))

	return nil
}

func newTestEngine(t *testing.T, client servicing.Client, repo *repository.Repository) *Engine {
	t.Helper()

	engine, err := NewEngine(client, repo, t.TempDir(), t.TempDir())
	require.NoError(t, err)

	return engine
}

func storeFiles(t *testing.T, repo *repository.Repository, family api.OSFamily, version string, class api.Class, name string, files ...string) {
	t.Helper()

	dir := repo.ArtifactDir(family, version, class, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	for _, file := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte("payload"), 0o600))
	}
}

// A combined cumulative package for the split family must have its servicing
// stack component applied strictly before the cumulative component.
func TestApplySplitOrdering(t *testing.T) {
	t.Parallel()

	repo := repository.New(t.TempDir())
	storeFiles(t, repo, api.OSFamilyWindows11, "23H2", api.ClassLCU, "KB5031455", "windows11.0-kb5031455.msu")

	client := &fakeClient{}
	engine := newTestEngine(t, client, repo)

	// Simulate unpacking the combined package.
	engine.extract = func(_ context.Context, _ string, dst string) error {
		for _, name := range []string{"windows11.0-kb5031455.cab", "SSU-22631.2338-x64.cab", "wsusscan.cab"} {
			err := os.WriteFile(filepath.Join(dst, name), []byte("component"), 0o600)
			if err != nil {
				return err
			}
		}

		return nil
	}

	outcomes, err := engine.Apply(context.TODO(), t.TempDir(), api.OSFamilyWindows11, "23H2", api.ClassLCU)

	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.Equal(t, ResultApplied, outcomes[0].Result)

	// At least two applications, servicing stack first, scan metadata dropped.
	require.Len(t, client.applied, 2)
	require.Equal(t, "SSU-22631.2338-x64.cab", client.applied[0])
	require.Equal(t, "windows11.0-kb5031455.cab", client.applied[1])
}

func TestApplyConverted(t *testing.T) {
	t.Parallel()

	repo := repository.New(t.TempDir())
	storeFiles(t, repo, api.OSFamilyWindows10, "22H2", api.ClassLCU, "KB5031356", "windows10.0-kb5031356.msu")

	client := &fakeClient{}
	engine := newTestEngine(t, client, repo)

	engine.extract = func(_ context.Context, _ string, dst string) error {
		return os.WriteFile(filepath.Join(dst, "windows10.0-kb5031356.cab"), []byte("component"), 0o600)
	}

	outcomes, err := engine.Apply(context.TODO(), t.TempDir(), api.OSFamilyWindows10, "22H2", api.ClassLCU)

	require.NoError(t, err)
	require.Equal(t, ResultApplied, outcomes[0].Result)
	require.Equal(t, []string{"windows10.0-kb5031356.cab"}, client.applied)
}

func TestApplyDirectClass(t *testing.T) {
	t.Parallel()

	repo := repository.New(t.TempDir())
	storeFiles(t, repo, api.OSFamilyWindows10, "22H2", api.ClassDotNet, "KB4486153", "ndp48.cab")

	client := &fakeClient{}
	engine := newTestEngine(t, client, repo)

	outcomes, err := engine.Apply(context.TODO(), t.TempDir(), api.OSFamilyWindows10, "22H2", api.ClassDotNet)

	require.NoError(t, err)
	require.Equal(t, ResultApplied, outcomes[0].Result)
	require.Equal(t, []string{"ndp48.cab"}, client.applied)
}

// Dynamic content lands in the media staging tree, never on the mount.
func TestApplyDynamicStagesMedia(t *testing.T) {
	t.Parallel()

	repo := repository.New(t.TempDir())
	storeFiles(t, repo, api.OSFamilyWindows10, "22H2", api.ClassDynamic, "KB5031591", "du.cab")

	client := &fakeClient{}

	mediaDir := t.TempDir()
	engine, err := NewEngine(client, repo, t.TempDir(), mediaDir)
	require.NoError(t, err)

	outcomes, err := engine.Apply(context.TODO(), t.TempDir(), api.OSFamilyWindows10, "22H2", api.ClassDynamic)

	require.NoError(t, err)
	require.Equal(t, ResultApplied, outcomes[0].Result)
	require.Empty(t, client.applied)
	require.FileExists(t, filepath.Join(mediaDir, "sources", "du.cab"))
}

// One artifact's failure doesn't abort the remaining artifacts of the class.
func TestApplyContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	repo := repository.New(t.TempDir())
	storeFiles(t, repo, api.OSFamilyWindows10, "22H2", api.ClassOptional, "KB111111", "aaa-kb111111.cab")
	storeFiles(t, repo, api.OSFamilyWindows10, "22H2", api.ClassOptional, "KB222222", "bbb-kb222222.cab")

	client := &fakeClient{failOn: "kb111111"}
	engine := newTestEngine(t, client, repo)

	outcomes, err := engine.Apply(context.TODO(), t.TempDir(), api.OSFamilyWindows10, "22H2", api.ClassOptional)

	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	results := map[string]Result{}
	for _, outcome := range outcomes {
		results[outcome.Artifact] = outcome.Result
	}

	require.Equal(t, ResultFailed, results["KB111111"])
	require.Equal(t, ResultApplied, results["KB222222"])
	require.Equal(t, []string{"bbb-kb222222.cab"}, client.applied)
}

// An artifact directory with no content files left behind by failed downloads
// has nothing to deploy and must not be reported as applied.
func TestApplyEmptyArtifact(t *testing.T) {
	t.Parallel()

	repo := repository.New(t.TempDir())
	storeFiles(t, repo, api.OSFamilyWindows11, "23H2", api.ClassSSU, "KB5031539")

	client := &fakeClient{}
	engine := newTestEngine(t, client, repo)

	outcomes, err := engine.Apply(context.TODO(), t.TempDir(), api.OSFamilyWindows11, "23H2", api.ClassSSU)

	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.Equal(t, ResultSkipped, outcomes[0].Result)
	require.Empty(t, client.applied)
}

func TestApplyNothingStored(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	engine := newTestEngine(t, client, repository.New(t.TempDir()))

	outcomes, err := engine.Apply(context.TODO(), t.TempDir(), api.OSFamilyWindows10, "22H2", api.ClassSSU)

	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.Equal(t, ResultSkipped, outcomes[0].Result)
}

func TestModeTableLookup(t *testing.T) {
	t.Parallel()

	table, err := loadModeTable()
	require.NoError(t, err)

	require.Equal(t, lcuModeSplit, table.lookup(api.OSFamilyWindows11, "23H2"))
	require.Equal(t, lcuModeConvert, table.lookup(api.OSFamilyWindows10, "22H2"))
	require.Equal(t, lcuModeDirect, table.lookup(api.OSFamilyServer2016, "1607"))
	require.Equal(t, lcuModeDirect, table.lookup(api.OSFamilyWindows11, "99H9"))
}
