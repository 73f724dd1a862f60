// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"schemabundle-cli/internal/artifact"
	"schemabundle-cli/pkg/antpath"
	"schemabundle-cli/pkg/sanitize"
)

const (
	// DefaultBuildDir is the build directory, relative to the base directory.
	DefaultBuildDir = "target"
	// DefaultLocalSchemaFile is the schema-form document maintained by hand.
	DefaultLocalSchemaFile = "${BASEDIR}/src/main/resources/schemas/schema-form.json"
	// DefaultOutputFile is where the bundled document is written.
	DefaultOutputFile = "${BUILD_DIR}/classes/schemas/schema-form.json"
	// DefaultArtifactDir is where "mvn dependency:copy-dependencies" puts archives.
	DefaultArtifactDir = "${BUILD_DIR}/dependency"
)

var (
	// ErrInvalidPath is returned when a path setting is empty or whitespace-only.
	ErrInvalidPath = errors.New("invalid path")
	// ErrInvalidArtifactEntry is the sentinel error wrapped by InvalidArtifactEntryError.
	ErrInvalidArtifactEntry = errors.New("invalid artifact entry")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ArtifactEntry declares one dependency archive explicitly.
	ArtifactEntry struct {
		// Path is the archive location.
		Path string `json:"path" mapstructure:"path" toml:"path" yaml:"path"`
		// Coordinates optionally sets "groupId:artifactId" instead of reading
		// it from the archive.
		Coordinates string `json:"coordinates,omitempty" mapstructure:"coordinates" toml:"coordinates,omitempty" yaml:"coordinates,omitempty"`
	}

	// SupportedFeatures tells which hints the target plugin can honor.
	SupportedFeatures struct {
		// ExpressionLanguageOnly keeps "(Supports EL)" hints (default: true).
		ExpressionLanguageOnly bool `json:"expression_language_only" mapstructure:"expression_language_only" toml:"expression_language_only" yaml:"expression_language_only"`
		// SecretsAndExpressionLanguage keeps "(Supports EL and secrets)" hints (default: true).
		SecretsAndExpressionLanguage bool `json:"secrets_and_expression_language" mapstructure:"secrets_and_expression_language" toml:"secrets_and_expression_language" yaml:"secrets_and_expression_language"`
	}

	// Config holds the project configuration.
	Config struct {
		// LocalSchemaFile is the hand-maintained schema-form document.
		LocalSchemaFile string `json:"local_schema_file" mapstructure:"local_schema_file" toml:"local_schema_file" yaml:"local_schema_file"`
		// OutputFile is where the bundled document is written.
		OutputFile string `json:"output_file" mapstructure:"output_file" toml:"output_file" yaml:"output_file"`
		// BuildDir is the build output directory, exposed as BUILD_DIR.
		BuildDir string `json:"build_dir" mapstructure:"build_dir" toml:"build_dir" yaml:"build_dir"`
		// IncludeArtifacts restricts scanning to these "groupId:artifactId"
		// coordinates. Empty scans every artifact.
		IncludeArtifacts []string `json:"include_artifacts" mapstructure:"include_artifacts" toml:"include_artifacts" yaml:"include_artifacts"`
		// IncludeSchemas selects archive entries. Empty means schemas/**/*.json.
		IncludeSchemas []string `json:"include_schemas" mapstructure:"include_schemas" toml:"include_schemas" yaml:"include_schemas"`
		// SupportedFeatures drives description sanitization.
		SupportedFeatures SupportedFeatures `json:"supported_features" mapstructure:"supported_features" toml:"supported_features" yaml:"supported_features"`
		// Artifacts lists archives explicitly, scanned first and in order.
		Artifacts []ArtifactEntry `json:"artifacts" mapstructure:"artifacts" toml:"artifacts" yaml:"artifacts"`
		// ArtifactDirs are searched for *.jar and *.zip archives.
		ArtifactDirs []string `json:"artifact_dirs" mapstructure:"artifact_dirs" toml:"artifact_dirs" yaml:"artifact_dirs"`
		// Verbose enables debug logging.
		Verbose bool `json:"verbose" mapstructure:"verbose" toml:"verbose" yaml:"verbose"`
	}

	// InvalidArtifactEntryError is returned when an ArtifactEntry has invalid fields.
	// It wraps ErrInvalidArtifactEntry for errors.Is() compatibility.
	InvalidArtifactEntryError struct {
		Index       int
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// Features converts the settings into sanitizer flags.
func (f SupportedFeatures) Features() sanitize.Features {
	return sanitize.Features{
		ExpressionLanguageOnly:       f.ExpressionLanguageOnly,
		SecretsAndExpressionLanguage: f.SecretsAndExpressionLanguage,
	}
}

// Entry converts the setting into a resolver entry.
func (e ArtifactEntry) Entry() artifact.Entry {
	return artifact.Entry{Path: e.Path, Coordinates: e.Coordinates}
}

// IsValid returns whether the ArtifactEntry has valid fields.
func (e ArtifactEntry) IsValid() (bool, []error) {
	var errs []error
	if err := checkPath("path", e.Path); err != nil {
		errs = append(errs, err)
	}
	if e.Coordinates != "" {
		if _, _, err := artifact.ParseCoordinates(e.Coordinates); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return false, errs
	}
	return true, nil
}

// Error implements the error interface for InvalidArtifactEntryError.
func (e *InvalidArtifactEntryError) Error() string {
	return fmt.Sprintf("artifacts[%d]: %s", e.Index, errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidArtifactEntry for errors.Is() compatibility.
func (e *InvalidArtifactEntryError) Unwrap() []error {
	return append([]error{ErrInvalidArtifactEntry}, e.FieldErrors...)
}

// IsValid returns whether the Config has valid fields. Path settings must not
// be blank, coordinates must be "groupId:artifactId" and include patterns must
// compile.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	for _, p := range []struct{ name, value string }{
		{"local_schema_file", c.LocalSchemaFile},
		{"output_file", c.OutputFile},
		{"build_dir", c.BuildDir},
	} {
		if err := checkPath(p.name, p.value); err != nil {
			errs = append(errs, err)
		}
	}
	for i, coords := range c.IncludeArtifacts {
		if _, _, err := artifact.ParseCoordinates(coords); err != nil {
			errs = append(errs, fmt.Errorf("include_artifacts[%d]: %w", i, err))
		}
	}
	if err := antpath.Validate(c.IncludeSchemas); err != nil {
		errs = append(errs, fmt.Errorf("include_schemas: %w", err))
	}
	for i, entry := range c.Artifacts {
		if valid, fieldErrs := entry.IsValid(); !valid {
			errs = append(errs, &InvalidArtifactEntryError{Index: i, FieldErrors: fieldErrs})
		}
	}
	for i, dir := range c.ArtifactDirs {
		if err := checkPath(fmt.Sprintf("artifact_dirs[%d]", i), dir); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig and the field errors for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

func checkPath(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s: %w: must not be empty", field, ErrInvalidPath)
	}
	return nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LocalSchemaFile:  DefaultLocalSchemaFile,
		OutputFile:       DefaultOutputFile,
		BuildDir:         DefaultBuildDir,
		IncludeArtifacts: []string{},
		IncludeSchemas:   []string{},
		SupportedFeatures: SupportedFeatures{
			ExpressionLanguageOnly:       true,
			SecretsAndExpressionLanguage: true,
		},
		Artifacts:    []ArtifactEntry{},
		ArtifactDirs: []string{DefaultArtifactDir},
		Verbose:      false,
	}
}
