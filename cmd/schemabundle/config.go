// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"schemabundle-cli/internal/config"
	"schemabundle-cli/pkg/antpath"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `schemabundle config` command tree.
func newConfigCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage schemabundle configuration",
		Long: `Manage schemabundle configuration.

Configuration is read from schemabundle.cue in the base directory, then from
SCHEMABUNDLE_* environment variables (for example SCHEMABUNDLE_OUTPUT_FILE).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective settings with paths resolved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := app.loadConfig(cmd.Context(), rootFlags, nil)
			if err != nil {
				return app.fail(cmd, err, rootFlags.verbose)
			}
			settings, err := cfg.Resolve(rootFlags.baseDir)
			if err != nil {
				return app.fail(cmd, err, rootFlags.verbose)
			}
			showSettings(cmd.OutOrStdout(), path, settings)
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default schemabundle.cue in the base directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.CreateDefaultConfig(rootFlags.baseDir, force)
			if err != nil {
				return app.fail(cmd, err, rootFlags.verbose)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Created %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)

	var format string
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the merged configuration (defaults, file and environment)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := app.loadConfig(cmd.Context(), rootFlags, nil)
			if err != nil {
				return app.fail(cmd, err, rootFlags.verbose)
			}
			out, err := config.Render(cfg, config.Format(format))
			if err != nil {
				return app.fail(cmd, fmt.Errorf("%w: %w", errInvalidFlags, err), rootFlags.verbose)
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	dumpCmd.Flags().StringVar(&format, "format", string(config.FormatCUE), "output format: cue, toml or yaml")
	cfgCmd.AddCommand(dumpCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := rootFlags.configPath
			if path == "" {
				path = config.FileIn(rootFlags.baseDir)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	return cfgCmd
}

func showSettings(w io.Writer, path string, s *config.Settings) {
	keyStyle := KeyStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if path != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("base_dir"), valueStyle.Render(s.BaseDir))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("build_dir"), valueStyle.Render(s.BuildDir))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("local_schema_file"), valueStyle.Render(s.LocalSchemaFile))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("output_file"), valueStyle.Render(s.OutputFile))

	writeList(w, "include_artifacts", s.IncludeArtifacts, "(all artifacts)")
	writeList(w, "include_schemas", s.IncludeSchemas, "("+antpath.DefaultPattern+")")

	artifacts := make([]string, 0, len(s.Artifacts))
	for _, a := range s.Artifacts {
		if a.Coordinates != "" {
			artifacts = append(artifacts, a.Path+" ("+a.Coordinates+")")
		} else {
			artifacts = append(artifacts, a.Path)
		}
	}
	writeList(w, "artifacts", artifacts, "(none)")
	writeList(w, "artifact_dirs", s.ArtifactDirs, "(none)")

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("supported_features"))
	fmt.Fprintf(w, "  expression_language_only: %s\n", valueStyle.Render(fmt.Sprintf("%v", s.Features.ExpressionLanguageOnly)))
	fmt.Fprintf(w, "  secrets_and_expression_language: %s\n", valueStyle.Render(fmt.Sprintf("%v", s.Features.SecretsAndExpressionLanguage)))
}

func writeList(w io.Writer, name string, values []string, empty string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", KeyStyle.Render(name))
	if len(values) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render(empty))
		return
	}
	fmt.Fprintf(w, "  - %s\n", strings.Join(values, "\n  - "))
}
