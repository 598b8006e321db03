package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/akmonengine/fracture"
	"github.com/akmonengine/fracture/dynamics"
	"github.com/akmonengine/fracture/pointcache"
	"github.com/spf13/cobra"
)

// RunOptions holds the flags of the run command.
type RunOptions struct {
	*RootOptions
	Frames  int
	Workers int
	Bake    bool
}

// RunResult is the summary of a run.
type RunResult struct {
	Frames            int          `json:"frames"`
	LastFrame         int          `json:"last_frame"`
	EngineBreaks      int          `json:"engine_breaks"`
	BrokenConstraints int          `json:"broken_constraints"`
	MinDistance       float64      `json:"min_constraint_distance"`
	Bodies            []bodyReport `json:"bodies"`
}

func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate the demo scene into the point cache",
		Long: `Simulate the demo scene one frame at a time from the start frame, storing
every frame in the SQLite point cache.

Examples:
  fracture-sim run --frames 48
  fracture-sim run --config settings.yaml --db wall.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Frames, "frames", "n", 0, "number of frames to simulate (0 = up to the end frame)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "goroutines integrating the bodies")
	cmd.Flags().BoolVar(&opts.Bake, "bake", false, "mark the cache baked once simulated")

	return cmd
}

func runSimulation(ctx context.Context, opts *RunOptions, cmd *cobra.Command) error {
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

	eng := dynamics.NewEngine(dynamics.WithWorkers(opts.Workers))
	engineBreaks := 0
	eng.Subscribe(dynamics.CONSTRAINT_BROKEN, func(event dynamics.Event) {
		engineBreaks++
	})

	w, err := fracture.NewWorld(fracture.NewScene(demoSceneName), eng,
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

	end := settings.EndFrame
	if opts.Frames > 0 {
		end = min(end, settings.StartFrame+opts.Frames)
	}

	for frame := settings.StartFrame; frame <= end; frame++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.RebuildWorld(ctx, frame)
		w.Step(ctx, frame)
		for _, ob := range d.scene.Objects {
			w.SyncTransforms(ob, frame)
		}
	}
	if opts.Bake {
		w.Cache().SetBaked(true)
	}

	result := RunResult{
		Frames:            end - settings.StartFrame,
		LastFrame:         w.LastTime(),
		EngineBreaks:      engineBreaks,
		BrokenConstraints: d.brokenConstraints(),
		MinDistance:       fracture.MinConstraintDistance(d.wall),
		Bodies:            d.bodies(),
	}

	if opts.Format == "json" {
		return outputJSON(cmd, result)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Simulated %d frames (last frame %d)\n", result.Frames, result.LastFrame)
	fmt.Fprintf(out, "Constraints broken: %d (engine: %d)\n", result.BrokenConstraints, result.EngineBreaks)
	if result.MinDistance < math.MaxFloat64 {
		fmt.Fprintf(out, "Min constraint distance: %.3f\n", result.MinDistance)
	}
	printBodies(cmd, result.Bodies)

	return nil
}

func printBodies(cmd *cobra.Command, bodies []bodyReport) {
	out := cmd.OutOrStdout()
	for _, b := range bodies {
		state := "dynamic"
		if b.Kinematic {
			state = "kinematic"
		}
		fmt.Fprintf(out, "  %-12s %-9s (%.3f, %.3f, %.3f)\n", b.Name, state, b.Position[0], b.Position[1], b.Position[2])
	}
}

func outputJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
