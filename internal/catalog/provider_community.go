package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	api "github.com/EdenNelson/wimwitch-tng/api/catalog"
)

// The community provider queries an open update index published over HTTP.
type community struct {
	config map[string]string

	serverURL string
	client    *http.Client

	lastCheck   time.Time // In system's timezone.
	latestIndex *api.Index
}

func (*community) Type() string {
	return "community"
}

func (p *community) ClearCache(_ context.Context) error {
	// Reset the last check time.
	p.lastCheck = time.Time{}

	return nil
}

func (p *community) load(_ context.Context) error {
	// Set up the configuration.
	p.serverURL = p.config["server_url"]
	p.client = http.DefaultClient

	// Basic validation.
	if p.serverURL == "" {
		return errors.New("community catalog requires a server_url")
	}

	return nil
}

func (p *community) Query(ctx context.Context, filter Filter) ([]api.Artifact, error) {
	index, err := p.checkIndex(ctx)
	if err != nil {
		return nil, err
	}

	artifacts := []api.Artifact{}

	for _, artifact := range index.Artifacts {
		if artifact.OSFamily != filter.OSFamily || artifact.Version != filter.Version {
			continue
		}

		// Strip entries for other architectures.
		if filter.Architecture != "" && artifact.Architecture != "" && artifact.Architecture != filter.Architecture {
			continue
		}

		artifacts = append(artifacts, artifact)
	}

	return artifacts, nil
}

func (p *community) checkIndex(ctx context.Context) (*api.Index, error) {
	// Only talk to the index server once an hour.
	if p.latestIndex != nil && !p.lastCheck.IsZero() && p.lastCheck.Add(time.Hour).After(time.Now()) {
		return p.latestIndex, nil
	}

	// Get the latest index.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+"/index.json", nil)
	if err != nil {
		return nil, err
	}

	resp, err := tryRequest(p.client, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: server returned %s", ErrProviderUnavailable, resp.Status)
	}

	// Parse the artifact list.
	index := &api.Index{}

	err = json.NewDecoder(resp.Body).Decode(index)
	if err != nil {
		return nil, err
	}

	// Record the index.
	p.lastCheck = time.Now()
	p.latestIndex = index

	return index, nil
}
