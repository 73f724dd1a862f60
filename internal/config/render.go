// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	// FormatCUE renders configuration as a schemabundle.cue file.
	FormatCUE Format = "cue"
	// FormatTOML renders configuration as TOML.
	FormatTOML Format = "toml"
	// FormatYAML renders configuration as YAML.
	FormatYAML Format = "yaml"
)

// ErrInvalidFormat is returned when a Format value is not recognized.
var ErrInvalidFormat = errors.New("invalid format")

// Format names a configuration rendering.
type Format string

// Formats lists the supported renderings.
func Formats() []Format {
	return []Format{FormatCUE, FormatTOML, FormatYAML}
}

// String returns the string representation of the Format.
func (f Format) String() string { return string(f) }

// IsValid returns whether the Format is supported.
func (f Format) IsValid() (bool, []error) {
	switch f {
	case FormatCUE, FormatTOML, FormatYAML:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w %q (expected cue, toml or yaml)", ErrInvalidFormat, string(f))}
	}
}

// Render encodes cfg in the requested format.
func Render(cfg *Config, format Format) (string, error) {
	if valid, errs := format.IsValid(); !valid {
		return "", errs[0]
	}
	switch format {
	case FormatTOML:
		b, err := toml.Marshal(cfg)
		if err != nil {
			return "", fmt.Errorf("render toml: %w", err)
		}
		return string(b), nil
	case FormatYAML:
		b, err := yaml.Marshal(cfg)
		if err != nil {
			return "", fmt.Errorf("render yaml: %w", err)
		}
		return string(b), nil
	default:
		return GenerateCUE(cfg), nil
	}
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// schemabundle configuration\n")
	sb.WriteString("// Paths may use $BASEDIR, $BUILD_DIR, variables from .env and the environment.\n\n")

	fmt.Fprintf(&sb, "local_schema_file: %q\n", cfg.LocalSchemaFile)
	fmt.Fprintf(&sb, "output_file:       %q\n", cfg.OutputFile)
	fmt.Fprintf(&sb, "build_dir:         %q\n", cfg.BuildDir)

	writeCUEList(&sb, "include_artifacts", cfg.IncludeArtifacts)
	writeCUEList(&sb, "include_schemas", cfg.IncludeSchemas)

	sb.WriteString("\nsupported_features: {\n")
	fmt.Fprintf(&sb, "\texpression_language_only:        %v\n", cfg.SupportedFeatures.ExpressionLanguageOnly)
	fmt.Fprintf(&sb, "\tsecrets_and_expression_language: %v\n", cfg.SupportedFeatures.SecretsAndExpressionLanguage)
	sb.WriteString("}\n")

	if len(cfg.Artifacts) > 0 {
		sb.WriteString("\nartifacts: [\n")
		for _, a := range cfg.Artifacts {
			if a.Coordinates != "" {
				fmt.Fprintf(&sb, "\t{path: %q, coordinates: %q},\n", a.Path, a.Coordinates)
			} else {
				fmt.Fprintf(&sb, "\t{path: %q},\n", a.Path)
			}
		}
		sb.WriteString("]\n")
	}

	writeCUEList(&sb, "artifact_dirs", cfg.ArtifactDirs)

	fmt.Fprintf(&sb, "\nverbose: %v\n", cfg.Verbose)
	return sb.String()
}

func writeCUEList(sb *strings.Builder, name string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s: [\n", name)
	for _, v := range values {
		fmt.Fprintf(sb, "\t%q,\n", v)
	}
	sb.WriteString("]\n")
}
