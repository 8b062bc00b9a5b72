package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EdenNelson/wimwitch-tng/internal/winver"
)

type cmdResolve struct {
	global *cmdGlobal

	flagImageName string
}

func (c *cmdResolve) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "resolve <build-string>"
	cmd.Short = "Resolves a build string to its marketing version"
	cmd.Long = formatSection("Description",
		`Resolves a build string to its marketing version

Accepts a bare build number ("22631") or a full version string
("10.0.19045.2965"). Builds shared between a client and a server release
are disambiguated through --image-name.
`)
	cmd.RunE = c.run

	cmd.Flags().StringVar(&c.flagImageName, "image-name", "", "Image name used to disambiguate shared builds")

	return cmd
}

func (c *cmdResolve) run(_ *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errors.New("missing build string")
	}

	res := winver.ResolveImage(args[0], c.flagImageName)

	switch res.Status {
	case winver.StatusUnsupported:
		return fmt.Errorf("build %s belongs to a deprecated release family", res.Build)
	case winver.StatusUnknown:
		return fmt.Errorf("build %s isn't recognized", res.Build)
	default:
	}

	fmt.Printf("%s %s (build %s)\n", string(res.Family), res.Marketing, res.Build) //nolint:forbidigo

	return nil
}
