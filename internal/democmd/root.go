// Package democmd wires a small cobra CLI around the incrementum engine, for
// exercising Manager/BuildContext/PathSet end to end. It is a demonstration
// harness for a single generator (copy-and-uppercase text files), not the
// engine's driving CLI — a build tool embeds incrementum directly, the way
// doc.go's example does.
package democmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"incrementum/internal/democonfig"
)

var rootCmd = &cobra.Command{
	Use:   "incrementum-demo",
	Short: "Demonstrates the incrementum build-avoidance engine",
	Long:  "incrementum-demo drives one incremental build of a toy generator that upper-cases text files, reporting how many inputs were reprocessed.",
}

// Execute runs the demo CLI and exits the process on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("input-dir", "", "override configured input directory")
	rootCmd.PersistentFlags().String("output-dir", "", "override configured output directory")
	rootCmd.PersistentFlags().String("state-dir", "", "override configured state directory")
	rootCmd.PersistentFlags().Bool("full", false, "force a full build")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(initCmd)
}

func loadConfig(cmd *cobra.Command) (democonfig.Config, error) {
	cfg, err := democonfig.Load()
	if err != nil {
		return cfg, err
	}
	if v, _ := cmd.Flags().GetString("input-dir"); v != "" {
		cfg.InputDir = v
	}
	if v, _ := cmd.Flags().GetString("output-dir"); v != "" {
		cfg.OutputDir = v
	}
	if v, _ := cmd.Flags().GetString("state-dir"); v != "" {
		cfg.StateDir = v
	}
	if v, _ := cmd.Flags().GetBool("full"); v {
		cfg.FullBuild = true
	}
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		cfg.Verbose = true
	}
	return cfg, nil
}

func newLogger(cfg democonfig.Config) zerolog.Logger {
	if !cfg.Verbose {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}
