package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	api "github.com/EdenNelson/wimwitch-tng/api/catalog"
	"github.com/EdenNelson/wimwitch-tng/internal/catalog"
	"github.com/EdenNelson/wimwitch-tng/internal/repository"
	"github.com/EdenNelson/wimwitch-tng/internal/selections"
)

type cmdPrune struct {
	global *cmdGlobal

	flagFamily  string
	flagRelease string
}

func (c *cmdPrune) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "prune <selections.yaml>"
	cmd.Short = "Removes superseded updates from the local repository"
	cmd.Long = formatSection("Description",
		`Removes superseded updates from the local repository

Every stored update for the release is checked against the current catalog;
anything superseded or no longer listed is deleted.
`)
	cmd.RunE = c.run

	cmd.Flags().StringVar(&c.flagFamily, "family", "", "Release family (windows-10, windows-11, server-2019, server-2022)")
	cmd.Flags().StringVar(&c.flagRelease, "release", "", "Marketing version (22H2, 23H2, ...)")

	return cmd
}

func (c *cmdPrune) run(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) != 1 {
		return errors.New("missing selections file")
	}

	family := api.OSFamily(c.flagFamily)

	_, ok := api.OSFamilies[family]
	if !ok || family == api.OSFamilyUndefined {
		return fmt.Errorf("unknown release family %q", c.flagFamily)
	}

	if c.flagRelease == "" {
		return errors.New("missing marketing version")
	}

	sel, err := selections.Load(args[0])
	if err != nil {
		return err
	}

	provider, err := catalog.Load(ctx, sel.Catalog.Provider, sel.Catalog.Config)
	if err != nil {
		return err
	}

	removed, err := catalog.NewPruner(provider, repository.New(sel.Catalog.RepositoryDir)).Prune(ctx, family, c.flagRelease)
	if err != nil {
		return err
	}

	fmt.Printf("Removed %d superseded update(s)\n", removed) //nolint:forbidigo

	return nil
}
