package catalog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	api "github.com/EdenNelson/wimwitch-tng/api/catalog"
	"github.com/EdenNelson/wimwitch-tng/internal/catalog"
)

func TestCommunityQuery(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/index.json", r.URL.Path)

		_, _ = w.Write([]byte(`{"format": "1.0", "artifacts": [
			{"title": "2023-10 Cumulative Update for Windows 11", "article": "KB5031455", "class": "lcu", "os_family": "windows-11", "version": "23H2", "architecture": "x64", "files": [{"filename": "windows11.0-kb5031455.msu", "url": "https://example.com/a.msu", "size": 1}]},
			{"title": "2023-10 Cumulative Update for Windows 10", "article": "KB5031356", "class": "lcu", "os_family": "windows-10", "version": "22H2", "architecture": "x64", "files": []}
		]}`))
	}))
	defer server.Close()

	provider, err := catalog.Load(context.TODO(), "community", map[string]string{"server_url": server.URL})
	require.NoError(t, err)

	artifacts, err := provider.Query(context.TODO(), catalog.Filter{OSFamily: api.OSFamilyWindows11, Version: "23H2", Architecture: "x64"})
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	require.Equal(t, "KB5031455", artifacts[0].Article)
}

// A failing index server surfaces as the provider-unavailable sentinel.
func TestCommunityQueryServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	provider, err := catalog.Load(context.TODO(), "community", map[string]string{"server_url": server.URL})
	require.NoError(t, err)

	_, err = provider.Query(context.TODO(), catalog.Filter{OSFamily: api.OSFamilyWindows11, Version: "23H2"})
	require.ErrorIs(t, err, catalog.ErrProviderUnavailable)
}
