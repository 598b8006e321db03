package main

import (
	"context"
	"fmt"

	"github.com/akmonengine/fracture"
	"github.com/akmonengine/fracture/dynamics"
	"github.com/akmonengine/fracture/pointcache"
	"github.com/spf13/cobra"
)

// ScrubOptions holds the flags of the scrub command.
type ScrubOptions struct {
	*RootOptions
	Frame int
}

// ScrubResult is one frame read back from the cache.
type ScrubResult struct {
	Frame  int          `json:"frame"`
	Bodies []bodyReport `json:"bodies"`
}

func NewScrubCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScrubOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scrub",
		Short: "Read one frame of the point cache",
		Long: `Read one frame of the demo scene back from the SQLite point cache, without
simulating anything. The frame must have been stored by a previous run.

Examples:
  fracture-sim scrub --frame 12
  fracture-sim scrub --frame 12 --db wall.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrub(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Frame, "frame", "f", 0, "frame to read (required)")
	_ = cmd.MarkFlagRequired("frame")

	return cmd
}

func runScrub(ctx context.Context, opts *ScrubOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	settings, err := opts.settings()
	if err != nil {
		return err
	}

	store, err := pointcache.OpenSQLite(opts.Database)
	if err != nil {
		return fmt.Errorf("open point cache: %w", err)
	}

	w, err := fracture.NewWorld(fracture.NewScene(demoSceneName), dynamics.NewEngine(),
		fracture.WithSettings(settings),
		fracture.WithStore(store),
		fracture.WithLogger(opts.logger(cmd.ErrOrStderr())),
	)
	if err != nil {
		store.Close()
		return err
	}
	defer w.Close()

	d := newDemo(w)
	// stored frames are only read back
	w.Cache().SetBaked(true)

	w.Step(ctx, opts.Frame)
	if w.State() != fracture.ReadingCache {
		return fmt.Errorf("frame %d is not in the point cache %s", opts.Frame, opts.Database)
	}

	result := ScrubResult{Frame: w.LastTime(), Bodies: d.bodies()}
	if opts.Format == "json" {
		return outputJSON(cmd, result)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Frame %d\n", result.Frame)
	printBodies(cmd, result.Bodies)

	return nil
}
