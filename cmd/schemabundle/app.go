// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"schemabundle-cli/internal/artifact"
	"schemabundle-cli/internal/bundler"
	"schemabundle-cli/internal/config"

	"github.com/charmbracelet/log"
)

type (
	// App wires the services shared by all commands. Cobra handlers receive an
	// App and never reach for package-level state.
	App struct {
		Config   config.Provider
		Detector *artifact.Detector
		stdout   io.Writer
		stderr   io.Writer
		logger   *slog.Logger
		handler  *log.Logger
		// issueStyle is the glamour style used for issue guidance.
		issueStyle string
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config   config.Provider
		Detector *artifact.Detector
		Stdout   io.Writer
		Stderr   io.Writer
		// IssueStyle defaults to "dark".
		IssueStyle string
	}

	// rootFlagValues holds the persistent flags of the root command.
	rootFlagValues struct {
		verbose    bool
		configPath string
		baseDir    string
	}

	// pipelineOptions tunes the bundler wiring of one invocation.
	pipelineOptions struct {
		concurrency       int
		skipPrettierCheck bool
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Detector == nil {
		d, err := artifact.NewDetector(artifact.DefaultDetectorCacheSize)
		if err != nil {
			return nil, err
		}
		deps.Detector = d
	}

	if deps.IssueStyle == "" {
		deps.IssueStyle = "dark"
	}

	logger, handler := newLogger(deps.Stderr, false)
	return &App{
		Config:     deps.Config,
		Detector:   deps.Detector,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
		logger:     logger,
		handler:    handler,
		issueStyle: deps.IssueStyle,
	}, nil
}

// Logger returns the logger every component of this App writes to.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

func (a *App) setVerbose(verbose bool) {
	a.handler.SetLevel(levelFor(verbose))
}

// loadConfig loads the project configuration and applies override, if any,
// before validating the result again. Command-line flags are applied through
// override so they are checked by the same rules as the file.
func (a *App) loadConfig(ctx context.Context, flags *rootFlagValues, override func(*config.Config)) (*config.Config, string, error) {
	cfg, path, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: flags.configPath,
		BaseDir:        flags.baseDir,
	})
	if err != nil {
		return nil, "", err
	}
	if override != nil {
		override(cfg)
		if valid, errs := cfg.IsValid(); !valid {
			return nil, path, fmt.Errorf("%w: %w", errInvalidFlags, errs[0])
		}
	}
	if cfg.Verbose || flags.verbose {
		a.setVerbose(true)
	}
	return cfg, path, nil
}

// settings loads the configuration and resolves it against the base directory.
func (a *App) settings(ctx context.Context, flags *rootFlagValues, override func(*config.Config)) (*config.Settings, error) {
	cfg, path, err := a.loadConfig(ctx, flags, override)
	if err != nil {
		return nil, err
	}
	if path != "" {
		a.logger.Debug("configuration loaded", "file", path)
	}

	baseDir := flags.baseDir
	if baseDir == "" {
		baseDir = "."
	}
	return cfg.Resolve(baseDir)
}

// pipeline wires the artifact collector and the bundler for s. The detector
// is shared, so archives that did not change between runs are not reopened.
func (a *App) pipeline(s *config.Settings, opts pipelineOptions) (*bundler.Bundler, *artifact.Collector) {
	collector := &artifact.Collector{
		Resolver: &artifact.Resolver{
			BaseDir:  s.BaseDir,
			Entries:  s.Artifacts,
			Dirs:     s.ArtifactDirs,
			Detector: a.Detector,
			Logger:   a.logger,
		},
		Allow:   s.IncludeArtifacts,
		Scanner: &artifact.Scanner{Concurrency: opts.concurrency, Logger: a.logger},
		Logger:  a.logger,
	}

	b := bundler.New(bundler.Options{
		LocalSchemaFile:   s.LocalSchemaFile,
		OutputFile:        s.OutputFile,
		IncludeSchemas:    s.IncludeSchemas,
		Features:          s.Features,
		BaseDir:           s.BaseDir,
		BuildDir:          buildDirName(s),
		SkipPrettierCheck: opts.skipPrettierCheck,
	}, collector, a.logger)

	return b, collector
}

// buildDirName returns the build directory as it would be written in a
// .prettierignore next to the base directory.
func buildDirName(s *config.Settings) string {
	rel, err := filepath.Rel(s.BaseDir, s.BuildDir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Base(s.BuildDir)
	}
	return filepath.ToSlash(rel)
}
