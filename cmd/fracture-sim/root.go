package main

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/akmonengine/fracture"
	"github.com/spf13/cobra"
)

// RootOptions holds the global flags.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Config   string
	Database string
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "fracture-sim",
		Short: "Simulate a fractured wall hit by a projectile",
		Long: `fracture-sim builds a demo scene (a kinematic wall fractured in shards,
a passive ground and a falling projectile), simulates it frame by frame into a
SQLite point cache, and reads cached frames back.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "path to a YAML settings file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "fracture.db", "path to the SQLite point cache")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewScrubCommand(opts))

	return cmd
}

// settings loads the settings file, or the defaults without one.
func (opts *RootOptions) settings() (fracture.Settings, error) {
	if opts.Config == "" {
		return fracture.DefaultSettings(), nil
	}
	settings, err := fracture.LoadSettings(opts.Config)
	if err != nil {
		return fracture.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

func (opts *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
