package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/lxc/incus/v6/shared/ask"
	"github.com/spf13/cobra"

	"github.com/EdenNelson/wimwitch-tng/internal/pipeline"
	"github.com/EdenNelson/wimwitch-tng/internal/selections"
	"github.com/EdenNelson/wimwitch-tng/internal/servicing"
)

type cmdRun struct {
	global *cmdGlobal

	flagInteractive bool
}

func (c *cmdRun) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "run <selections.yaml>"
	cmd.Short = "Runs a full image customization build"
	cmd.Long = formatSection("Description",
		`Runs a full image customization build

The selections file drives the whole run: source image, mount directory,
injection stages, update deployment and post-processing. With --interactive
the run stops at the configured pause points and waits for confirmation.
`)
	cmd.RunE = c.run

	cmd.Flags().BoolVarP(&c.flagInteractive, "interactive", "i", false, "Prompt at the configured pause points")

	return cmd
}

func (c *cmdRun) run(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) != 1 {
		return errors.New("missing selections file")
	}

	sel, err := selections.Load(args[0])
	if err != nil {
		return err
	}

	client, err := servicing.Load(ctx, "dism")
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(client)

	if c.flagInteractive {
		asker := ask.NewAsker(bufio.NewReader(os.Stdin))

		runner.Pause = func(point pipeline.StageID) bool {
			ok, err := asker.AskBool("Paused at "+string(point)+"; continue the build? [Y/n] ", "y")
			if err != nil {
				return false
			}

			return ok
		}
	}

	state, err := runner.Run(ctx, sel)
	if err != nil {
		return err
	}

	if state != pipeline.StateCompleted {
		return fmt.Errorf("build finished in state %q", string(state))
	}

	return nil
}
