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

type cmdUpdates struct {
	global *cmdGlobal

	flagFamily   string
	flagRelease  string
	flagArch     string
	flagOptional bool
	flagDynamic  bool
	flagDownload bool
}

func (c *cmdUpdates) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "updates <selections.yaml>"
	cmd.Short = "Resolves the current update set for a release"
	cmd.Long = formatSection("Description",
		`Resolves the current update set for a release

The catalog provider and repository come from the selections file. The
resolved set excludes superseded entries and anything unfit for offline
deployment. With --download the resolved content is fetched into the
local repository.
`)
	cmd.RunE = c.run

	cmd.Flags().StringVar(&c.flagFamily, "family", "", "Release family (windows-10, windows-11, server-2019, server-2022)")
	cmd.Flags().StringVar(&c.flagRelease, "release", "", "Marketing version (22H2, 23H2, ...)")
	cmd.Flags().StringVar(&c.flagArch, "arch", "x64", "Architecture")
	cmd.Flags().BoolVar(&c.flagOptional, "optional", false, "Include optional updates")
	cmd.Flags().BoolVar(&c.flagDynamic, "dynamic", false, "Include dynamic updates")
	cmd.Flags().BoolVar(&c.flagDownload, "download", false, "Download the resolved content")

	return cmd
}

func (c *cmdUpdates) run(_ *cobra.Command, args []string) error {
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

	repo := repository.New(sel.Catalog.RepositoryDir)
	resolver := catalog.NewResolver(provider, repo)

	artifacts, err := resolver.Resolve(ctx, family, c.flagRelease, c.flagArch, c.flagOptional, c.flagDynamic)
	if err != nil {
		return err
	}

	for _, artifact := range artifacts {
		fmt.Printf("%s %s (%s) - %d file(s)\n", artifact.Article, artifact.Title, string(artifact.Class), len(artifact.Files)) //nolint:forbidigo
	}

	if !c.flagDownload {
		return nil
	}

	stored, err := resolver.Download(ctx, artifacts, nil)
	if err != nil {
		return err
	}

	fmt.Printf("Stored %d file(s) in %s\n", stored, repo.Root()) //nolint:forbidigo

	return nil
}
