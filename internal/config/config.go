// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"schemabundle-cli/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "schemabundle"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "schemabundle"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment variable overrides, e.g.
	// SCHEMABUNDLE_OUTPUT_FILE or SCHEMABUNDLE_SUPPORTED_FEATURES_EXPRESSION_LANGUAGE_ONLY.
	EnvPrefix = "SCHEMABUNDLE"
)

//go:embed config_schema.cue
var configSchema string

// FileIn returns the config file path inside a project directory.
func FileIn(baseDir string) string {
	return filepath.Join(baseDir, ConfigFileName+"."+ConfigFileExt)
}

// loadWithOptions performs option-driven config loading and returns the
// configuration with the path of the file it came from ("" for defaults only).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("local_schema_file", defaults.LocalSchemaFile)
	v.SetDefault("output_file", defaults.OutputFile)
	v.SetDefault("build_dir", defaults.BuildDir)
	v.SetDefault("include_artifacts", defaults.IncludeArtifacts)
	v.SetDefault("include_schemas", defaults.IncludeSchemas)
	v.SetDefault("supported_features.expression_language_only", defaults.SupportedFeatures.ExpressionLanguageOnly)
	v.SetDefault("supported_features.secrets_and_expression_language", defaults.SupportedFeatures.SecretsAndExpressionLanguage)
	v.SetDefault("artifacts", defaults.Artifacts)
	v.SetDefault("artifact_dirs", defaults.ArtifactDirs)
	v.SetDefault("verbose", defaults.Verbose)

	resolvedPath := ""

	// An explicit --config file must exist; the project file is optional.
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'schemabundle config init' to create a configuration file").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else if candidate := FileIn(opts.baseDir()); fileExists(candidate) {
		resolvedPath = candidate
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'schemabundle config show' to see the effective configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("decode configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check the types of SCHEMABUNDLE_* environment variables").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Write coordinates as groupId:artifactId").
			WithSuggestion("Wrap regular expressions as %regex[...] and check their syntax").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// The file decodes to map[string]any rather than Config so that unset fields
// keep their Viper defaults, and it validates with Concrete(false) because
// every field is optional.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := checkFileSize(data, maxConfigFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes a default config file into baseDir and returns
// its path. An existing file is only replaced when overwrite is set.
func CreateDefaultConfig(baseDir string, overwrite bool) (string, error) {
	cfgPath := FileIn(baseDir)
	if !overwrite && fileExists(cfgPath) {
		return cfgPath, fmt.Errorf("%s already exists", cfgPath)
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return cfgPath, nil
}
