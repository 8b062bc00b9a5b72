package mountguard_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/EdenNelson/wimwitch-tng/internal/mountguard"
	"github.com/EdenNelson/wimwitch-tng/internal/servicing"
)

// A minimal servicing client whose mount list is driven by the test.
type fakeClient struct {
	servicing.Client

	mounts    []servicing.MountedImage
	dismounts []string
}

func (f *fakeClient) ListMountedImages(_ context.Context) ([]servicing.MountedImage, error) {
	return f.mounts, nil
}

func (f *fakeClient) Dismount(_ context.Context, mountDir string, commit bool) error {
	f.dismounts = append(f.dismounts, mountDir)

	mounts := []servicing.MountedImage{}

	for _, m := range f.mounts {
		if m.MountDir != mountDir {
			mounts = append(mounts, m)
		}
	}

	f.mounts = mounts

	_ = commit

	return nil
}

func TestPrepareReady(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	guard := mountguard.New(&fakeClient{})

	status, err := guard.Prepare(context.TODO(), dir, false)

	require.NoError(t, err)
	require.Equal(t, mountguard.StatusReady, status)
}

func TestPrepareBusyNeverMutates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	leftover := filepath.Join(dir, "leftover.txt")
	require.NoError(t, os.WriteFile(leftover, []byte("stale"), 0o600))

	guard := mountguard.New(&fakeClient{})

	status, err := guard.Prepare(context.TODO(), dir, false)

	require.NoError(t, err)
	require.Equal(t, mountguard.StatusBusy, status)

	// The leftover content must be untouched.
	content, err := os.ReadFile(leftover)
	require.NoError(t, err)
	require.Equal(t, "stale", string(content))
}

func TestPrepareBusyOnLiveBinding(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	client := &fakeClient{mounts: []servicing.MountedImage{{MountDir: dir}}}
	guard := mountguard.New(client)

	status, err := guard.Prepare(context.TODO(), dir, false)

	require.NoError(t, err)
	require.Equal(t, mountguard.StatusBusy, status)
	require.Empty(t, client.dismounts)
}

func TestPrepareCleanIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leftover.txt"), []byte("stale"), 0o600))

	client := &fakeClient{mounts: []servicing.MountedImage{{MountDir: dir}}}
	guard := mountguard.New(client)

	status, err := guard.Prepare(context.TODO(), dir, true)

	require.NoError(t, err)
	require.Equal(t, mountguard.StatusReady, status)
	require.Len(t, client.dismounts, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)

	// A second call on the already-clean directory has no further side effects.
	status, err = guard.Prepare(context.TODO(), dir, true)

	require.NoError(t, err)
	require.Equal(t, mountguard.StatusReady, status)
	require.Len(t, client.dismounts, 1)
}

func TestCommitDiscardIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	client := &fakeClient{}
	guard := mountguard.New(client)

	// No binding: both are no-ops.
	require.NoError(t, guard.Commit(context.TODO(), dir))
	require.NoError(t, guard.Discard(context.TODO(), dir))
	require.Empty(t, client.dismounts)

	client.mounts = []servicing.MountedImage{{MountDir: dir}}

	require.NoError(t, guard.Commit(context.TODO(), dir))
	require.Len(t, client.dismounts, 1)

	// The binding is gone now; a repeat commit is a no-op.
	require.NoError(t, guard.Commit(context.TODO(), dir))
	require.Len(t, client.dismounts, 1)
}
