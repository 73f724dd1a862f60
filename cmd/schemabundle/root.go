// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "schemabundle",
		Short: "Bundle external schema-form definitions into a plugin schema",
		Long: TitleStyle.Render("schemabundle") + SubtitleStyle.Render(" - bundle external schema-form definitions") + `

schemabundle merges the "gioExternalDefinitions" published by dependency
archives into the schema-form document of a plugin, sorts the result and
strips description hints the target plugin cannot honor.

` + SubtitleStyle.Render("Examples:") + `
  schemabundle bundle                     Merge using schemabundle.cue and defaults
  schemabundle bundle --watch             Merge again whenever an input changes
  schemabundle bundle --no-el             Drop "(Supports EL)" hints
  schemabundle scan                       List archives and contributed definitions
  schemabundle config init                Write a default schemabundle.cue`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			app.setVerbose(flags.verbose)
			slog.SetDefault(app.Logger())
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is <base-dir>/schemabundle.cue)")
	rootCmd.PersistentFlags().StringVarP(&flags.baseDir, "base-dir", "C", ".", "project base directory")

	rootCmd.AddCommand(newBundleCommand(app, flags))
	rootCmd.AddCommand(newScanCommand(app, flags))
	rootCmd.AddCommand(newConfigCommand(app, flags))

	return rootCmd
}

// Execute builds the CLI and runs it. This is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}

	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
