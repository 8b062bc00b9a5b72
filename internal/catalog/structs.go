// Package catalog resolves update artifacts from a catalog source, classifies
// them, downloads their content and prunes superseded local copies.
package catalog

import (
	"context"

	api "github.com/EdenNelson/wimwitch-tng/api/catalog"
)

// Filter restricts a catalog query to one OS family, version and architecture.
type Filter struct {
	OSFamily     api.OSFamily
	Version      string
	Architecture string
}

// Provider represents an update catalog source.
type Provider interface {
	Type() string

	ClearCache(ctx context.Context) error

	// Query returns every catalog entry matching the filter, including
	// superseded ones. Classification is left to the resolver.
	Query(ctx context.Context, filter Filter) ([]api.Artifact, error)

	load(ctx context.Context) error
}
