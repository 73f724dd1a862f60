// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"schemabundle-cli/internal/bundler"
	"schemabundle-cli/internal/config"
	"schemabundle-cli/internal/issue"
	"schemabundle-cli/internal/watch"
	"schemabundle-cli/pkg/extdefs"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// errInvalidFlags is wrapped by every flag validation failure.
var errInvalidFlags = errors.New("invalid flags")

// bundleFlagValues holds the flags of the bundle command. Unset flags leave
// the configuration untouched.
type bundleFlagValues struct {
	local             string
	output            string
	buildDir          string
	includeArtifacts  []string
	includeSchemas    []string
	artifacts         []string
	artifactDirs      []string
	noEL              bool
	noSecrets         bool
	skipPrettierCheck bool
	concurrency       int
	watch             bool
	debounce          time.Duration
}

func newBundleCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &bundleFlagValues{}

	cmd := &cobra.Command{
		Use:     "bundle",
		Aliases: []string{"merge"},
		Short:   "Merge external definitions into the local schema",
		Long: `Merge the external definitions published by dependency archives into the
local schema-form document and write the result to the output file.

Archives come from the 'artifacts' list first, then from every *.jar and *.zip
under 'artifact_dirs'. Command-line flags override schemabundle.cue.`,
		Example: `  schemabundle bundle
  schemabundle bundle --include-artifact com.example:shared-schemas
  schemabundle bundle --artifact libs/extra.jar=com.example:extra
  schemabundle bundle --no-el --no-secrets --output dist/schema-form.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBundle(cmd, app, rootFlags, flags)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&flags.local, "local", "", "local schema-form document")
	fs.StringVarP(&flags.output, "output", "o", "", "output file")
	fs.StringVar(&flags.buildDir, "build-dir", "", "build directory, exposed as ${BUILD_DIR}")
	fs.StringSliceVar(&flags.includeArtifacts, "include-artifact", nil, "only scan these groupId:artifactId coordinates (repeatable)")
	fs.StringSliceVar(&flags.includeSchemas, "include-schema", nil, "archive entry pattern (repeatable, default schemas/**/*.json)")
	fs.StringArrayVar(&flags.artifacts, "artifact", nil, "archive to scan, as path or path=groupId:artifactId (repeatable)")
	fs.StringArrayVar(&flags.artifactDirs, "artifact-dir", nil, "directory searched for archives (repeatable)")
	fs.BoolVar(&flags.noEL, "no-el", false, "target plugin does not support expression language")
	fs.BoolVar(&flags.noSecrets, "no-secrets", false, "target plugin does not support secrets")
	fs.BoolVar(&flags.skipPrettierCheck, "skip-prettier-check", false, "do not look for a .prettierignore file")
	fs.IntVar(&flags.concurrency, "concurrency", 0, "archives read in parallel (default 4)")
	fs.BoolVarP(&flags.watch, "watch", "w", false, "merge again whenever an input changes")
	fs.DurationVar(&flags.debounce, "debounce", 0, "quiet period before a watch run (default 300ms)")

	return cmd
}

// override returns the function applying the changed flags to a Config.
func (f *bundleFlagValues) override(fs *pflag.FlagSet) (func(*config.Config), error) {
	artifacts := make([]config.ArtifactEntry, 0, len(f.artifacts))
	for _, raw := range f.artifacts {
		entry, err := parseArtifactFlag(raw)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, entry)
	}

	return func(cfg *config.Config) {
		if fs.Changed("local") {
			cfg.LocalSchemaFile = f.local
		}
		if fs.Changed("output") {
			cfg.OutputFile = f.output
		}
		if fs.Changed("build-dir") {
			cfg.BuildDir = f.buildDir
		}
		if fs.Changed("include-artifact") {
			cfg.IncludeArtifacts = f.includeArtifacts
		}
		if fs.Changed("include-schema") {
			cfg.IncludeSchemas = f.includeSchemas
		}
		if fs.Changed("artifact") {
			cfg.Artifacts = artifacts
		}
		if fs.Changed("artifact-dir") {
			cfg.ArtifactDirs = f.artifactDirs
		}
		if f.noEL {
			cfg.SupportedFeatures.ExpressionLanguageOnly = false
		}
		if f.noSecrets {
			cfg.SupportedFeatures.SecretsAndExpressionLanguage = false
		}
	}, nil
}

// parseArtifactFlag splits "path" or "path=groupId:artifactId".
func parseArtifactFlag(raw string) (config.ArtifactEntry, error) {
	path, coords, _ := strings.Cut(raw, "=")
	entry := config.ArtifactEntry{Path: strings.TrimSpace(path), Coordinates: strings.TrimSpace(coords)}
	if valid, errs := entry.IsValid(); !valid {
		return config.ArtifactEntry{}, fmt.Errorf("%w: --artifact %q: %w", errInvalidFlags, raw, errors.Join(errs...))
	}
	return entry, nil
}

func runBundle(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, flags *bundleFlagValues) error {
	override, err := flags.override(cmd.Flags())
	if err != nil {
		return app.fail(cmd, err, rootFlags.verbose)
	}

	settings, err := app.settings(cmd.Context(), rootFlags, override)
	if err != nil {
		return app.fail(cmd, err, rootFlags.verbose)
	}

	opts := pipelineOptions{concurrency: flags.concurrency, skipPrettierCheck: flags.skipPrettierCheck}
	if !flags.watch {
		b, _ := app.pipeline(settings, opts)
		report, err := b.Run(cmd.Context())
		if err != nil {
			return app.fail(cmd, err, rootFlags.verbose)
		}
		printReport(cmd, report)
		if report.Prettier == bundler.PrettierIgnoreMissing || report.Prettier == bundler.PrettierIgnoreIncomplete {
			renderIssue(app.stderr, issue.PrettierIgnoreIncompleteId, app.issueStyle)
		}
		return nil
	}

	return runWatch(cmd, app, rootFlags, settings, override, opts, flags.debounce)
}

// runWatch bundles once, then again after every change to the local schema,
// the configuration file or the archives. The configuration is read again on
// every run. Failures are reported and watching goes on, so the user can fix
// the input and save again. The watched paths come from the first run.
func runWatch(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, settings *config.Settings,
	override func(*config.Config), opts pipelineOptions, debounce time.Duration,
) error {
	rebundle := func(ctx context.Context, s *config.Settings) {
		b, _ := app.pipeline(s, opts)
		report, err := b.Run(ctx)
		if err != nil {
			renderError(app.stderr, err, rootFlags.verbose, app.issueStyle)
			return
		}
		printReport(cmd, report)
	}

	rebundle(cmd.Context(), settings)
	// Prettier advice is only useful once.
	opts.skipPrettierCheck = true

	files := []string{settings.LocalSchemaFile}
	if rootFlags.configPath != "" {
		files = append(files, rootFlags.configPath)
	} else {
		files = append(files, config.FileIn(settings.BaseDir))
	}
	for _, a := range settings.Artifacts {
		files = append(files, a.Path)
	}

	w, err := watch.New(watch.Config{
		Files:    files,
		Dirs:     settings.ArtifactDirs,
		Patterns: []string{"**/*.{jar,zip}"},
		Exclude:  []string{settings.OutputFile},
		Debounce: debounce,
		Logger:   app.Logger(),
		OnChange: func(ctx context.Context, changed []string) error {
			app.Logger().Info("inputs changed, merging again", "changed", len(changed))
			current, err := app.settings(ctx, rootFlags, override)
			if err != nil {
				renderError(app.stderr, err, rootFlags.verbose, app.issueStyle)
				return nil
			}
			rebundle(ctx, current)
			return nil
		},
	})
	if err != nil {
		return app.fail(cmd, fmt.Errorf("failed to start watcher: %w", err), rootFlags.verbose)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Watching for changes (Ctrl+C to stop)...\n", KeyStyle.Render("→"))
	return w.Run(cmd.Context())
}

func printReport(cmd *cobra.Command, report *bundler.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", SuccessStyle.Render("✓"), report.OutputFile)
	fmt.Fprintln(out, listStyle.Render(fmt.Sprintf("%d fragment(s) examined, %d contributed, %d definition(s)",
		report.Fragments, len(report.Contributions), definitionCount(report))))
	if len(report.LocalOverrides) > 0 {
		fmt.Fprintln(out, listStyle.Render(WarningStyle.Render("local overrides: ")+strings.Join(report.LocalOverrides, ", ")))
	}
}

func definitionCount(report *bundler.Report) int {
	defs, _ := extdefs.Lookup(report.Document)
	return defs.Len()
}
