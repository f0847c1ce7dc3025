package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/clemoune/spec2nii/pkg/config"
)

var (
	cfgFile string
	workers int
	verbose bool

	// cfg is loaded before any subcommand runs and already reflects the
	// persistent flag overrides.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "spec2nii",
	Short: "Convert Siemens MRS DICOM acquisitions to NIfTI-MRS",
	Long: `spec2nii reads Siemens magnetic resonance spectroscopy DICOM files and
writes NIfTI-MRS containers. Single voxel and CSI acquisitions are
detected automatically; identical repeats in one batch are stacked into
a single multi-file container.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %v", err)
		}

		// Flags beat the file.
		if cmd.Flags().Changed("workers") {
			cfg.Processing.Workers = workers
		}
		if verbose {
			cfg.Output.Verbose = true
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "spec2nii.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "Number of files to convert in parallel (default: all cores)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log per-file conversion progress")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the logger handed to the conversion engine. Per-file
// progress is logged at Info, which stays hidden unless verbose output
// was requested.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if cfg.Output.Verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
