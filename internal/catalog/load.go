package catalog

import (
	"context"
	"fmt"
)

// Load gets a specific catalog provider and initializes it with the provider configuration.
func Load(ctx context.Context, name string, config map[string]string) (Provider, error) {
	var provider Provider

	switch name {
	case "community":
		provider = &community{config: config}
	case "configmgr":
		provider = &configMgr{config: config}
	default:
		return nil, fmt.Errorf("unknown catalog provider %q", name)
	}

	err := provider.load(ctx)
	if err != nil {
		return nil, err
	}

	return provider, nil
}
