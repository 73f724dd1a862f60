// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"schemabundle-cli/internal/artifact"
	"schemabundle-cli/internal/testutil"
)

func load(t *testing.T, opts LoadOptions) (*Config, string, error) {
	t.Helper()
	return NewProvider().Load(context.Background(), opts)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	testutil.MustWriteFile(t, FileIn(dir), content)
	return dir
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	cfg, path, err := load(t, LoadOptions{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty when no file exists", path)
	}

	want := DefaultConfig()
	if cfg.LocalSchemaFile != want.LocalSchemaFile || cfg.OutputFile != want.OutputFile || cfg.BuildDir != want.BuildDir {
		t.Errorf("paths = %q, %q, %q", cfg.LocalSchemaFile, cfg.OutputFile, cfg.BuildDir)
	}
	if cfg.SupportedFeatures != want.SupportedFeatures {
		t.Errorf("SupportedFeatures = %+v, want %+v", cfg.SupportedFeatures, want.SupportedFeatures)
	}
	if !slices.Equal(cfg.ArtifactDirs, want.ArtifactDirs) {
		t.Errorf("ArtifactDirs = %v, want %v", cfg.ArtifactDirs, want.ArtifactDirs)
	}
	if len(cfg.IncludeArtifacts) != 0 || len(cfg.IncludeSchemas) != 0 || len(cfg.Artifacts) != 0 || cfg.Verbose {
		t.Errorf("unexpected non-default values: %+v", cfg)
	}
}

func TestLoad_ProjectFile(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, `
output_file: "out/schema-form.json"
include_artifacts: ["io.gravitee:shared"]
include_schemas: ["schemas/**/*.json", "%regex[extra/.*\\.json]"]
supported_features: {
	expression_language_only: false
}
artifacts: [
	{path: "libs/shared.jar", coordinates: "io.gravitee:shared"},
	{path: "libs/plain.jar"},
]
verbose: true
`)

	cfg, path, err := load(t, LoadOptions{BaseDir: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != FileIn(dir) {
		t.Errorf("path = %q, want %q", path, FileIn(dir))
	}
	if cfg.OutputFile != "out/schema-form.json" {
		t.Errorf("OutputFile = %q", cfg.OutputFile)
	}
	if cfg.LocalSchemaFile != DefaultLocalSchemaFile {
		t.Errorf("LocalSchemaFile = %q, want the default", cfg.LocalSchemaFile)
	}
	if !slices.Equal(cfg.IncludeArtifacts, []string{"io.gravitee:shared"}) {
		t.Errorf("IncludeArtifacts = %v", cfg.IncludeArtifacts)
	}
	if !slices.Equal(cfg.IncludeSchemas, []string{"schemas/**/*.json", `%regex[extra/.*\.json]`}) {
		t.Errorf("IncludeSchemas = %v", cfg.IncludeSchemas)
	}
	if cfg.SupportedFeatures.ExpressionLanguageOnly || !cfg.SupportedFeatures.SecretsAndExpressionLanguage {
		t.Errorf("SupportedFeatures = %+v", cfg.SupportedFeatures)
	}
	wantArtifacts := []ArtifactEntry{
		{Path: "libs/shared.jar", Coordinates: "io.gravitee:shared"},
		{Path: "libs/plain.jar"},
	}
	if !slices.Equal(cfg.Artifacts, wantArtifacts) {
		t.Errorf("Artifacts = %+v", cfg.Artifacts)
	}
	if !cfg.Verbose {
		t.Error("Verbose = false")
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	explicit := testutil.MustWriteFile(t, filepath.Join(dir, "custom.cue"), `build_dir: "build"`)
	testutil.MustWriteFile(t, FileIn(dir), `build_dir: "ignored"`)

	cfg, path, err := load(t, LoadOptions{ConfigFilePath: explicit, BaseDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if path != explicit || cfg.BuildDir != "build" {
		t.Errorf("Load() = %q from %q, want build from %q", cfg.BuildDir, path, explicit)
	}

	_, _, err = load(t, LoadOptions{ConfigFilePath: filepath.Join(dir, "missing.cue")})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("Load(missing) error = %v", err)
	}
}

func TestLoad_Rejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
		wantMsg string
	}{
		{name: "syntax", content: `output_file: "x`, wantMsg: "schemabundle.cue"},
		{name: "unknown field", content: `outputFile: "x"`, wantMsg: "outputFile"},
		{name: "wrong type", content: `verbose: "yes"`, wantMsg: "verbose"},
		{name: "empty path", content: `output_file: ""`, wantMsg: "output_file"},
		{name: "bad coordinates", content: `include_artifacts: ["io.gravitee"]`, wantMsg: "include_artifacts"},
		{name: "artifact without path", content: `artifacts: [{coordinates: "g:a"}]`, wantMsg: "artifacts"},
		{name: "bad regex", content: `include_schemas: ["%regex[(]"]`, wantErr: ErrInvalidConfig},
		{name: "blank artifact dir", content: `artifact_dirs: ["  "]`, wantErr: ErrInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := load(t, LoadOptions{BaseDir: writeConfig(t, tt.content)})
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Load() error = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	dir := writeConfig(t, `output_file: "from-file.json"`)

	defer testutil.MustSetenv(t, "SCHEMABUNDLE_OUTPUT_FILE", "from-env.json")()
	defer testutil.MustSetenv(t, "SCHEMABUNDLE_SUPPORTED_FEATURES_SECRETS_AND_EXPRESSION_LANGUAGE", "false")()
	defer testutil.MustSetenv(t, "SCHEMABUNDLE_INCLUDE_ARTIFACTS", "g:one,g:two")()

	cfg, _, err := load(t, LoadOptions{BaseDir: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OutputFile != "from-env.json" {
		t.Errorf("OutputFile = %q, want the environment value", cfg.OutputFile)
	}
	if cfg.SupportedFeatures.SecretsAndExpressionLanguage {
		t.Error("SecretsAndExpressionLanguage = true, want false from the environment")
	}
	if !slices.Equal(cfg.IncludeArtifacts, []string{"g:one", "g:two"}) {
		t.Errorf("IncludeArtifacts = %v", cfg.IncludeArtifacts)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := NewProvider().Load(ctx, LoadOptions{BaseDir: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.IncludeArtifacts = []string{"io.gravitee:shared"}
	cfg.IncludeSchemas = []string{"schemas/**/*.json"}
	cfg.Artifacts = []ArtifactEntry{{Path: "a.jar", Coordinates: "g:a"}, {Path: "b.jar"}}
	cfg.SupportedFeatures.ExpressionLanguageOnly = false
	cfg.Verbose = true

	loaded, _, err := load(t, LoadOptions{BaseDir: writeConfig(t, GenerateCUE(cfg))})
	if err != nil {
		t.Fatalf("Load(GenerateCUE()) error = %v\n%s", err, GenerateCUE(cfg))
	}
	if GenerateCUE(loaded) != GenerateCUE(cfg) {
		t.Errorf("round trip changed the configuration:\n%s\nvs\n%s", GenerateCUE(loaded), GenerateCUE(cfg))
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	tests := []struct {
		format Format
		want   []string
	}{
		{FormatCUE, []string{"local_schema_file:", "supported_features: {", "artifact_dirs: ["}},
		{FormatTOML, []string{"local_schema_file = ", "[supported_features]", "expression_language_only = true"}},
		{FormatYAML, []string{"local_schema_file: ", "supported_features:", "    expression_language_only: true"}},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			t.Parallel()

			out, err := Render(cfg, tt.format)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("Render(%s) missing %q:\n%s", tt.format, w, out)
				}
			}
		})
	}

	if _, err := Render(cfg, "json"); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Render(json) error = %v, want ErrInvalidFormat", err)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := CreateDefaultConfig(dir, false)
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	if got := testutil.MustReadFile(t, path); got != GenerateCUE(DefaultConfig()) {
		t.Errorf("written config differs from defaults:\n%s", got)
	}

	if _, err := CreateDefaultConfig(dir, false); err == nil {
		t.Error("CreateDefaultConfig() must not replace an existing file")
	}
	if _, err := CreateDefaultConfig(dir, true); err != nil {
		t.Errorf("CreateDefaultConfig(overwrite) error = %v", err)
	}
}

func TestConfig_IsValid(t *testing.T) {
	t.Parallel()

	if valid, errs := DefaultConfig().IsValid(); !valid {
		t.Fatalf("DefaultConfig().IsValid() = %v", errs)
	}

	cfg := DefaultConfig()
	cfg.OutputFile = " "
	cfg.IncludeArtifacts = []string{"nope"}
	cfg.Artifacts = []ArtifactEntry{{Path: "", Coordinates: "x"}}

	valid, errs := cfg.IsValid()
	if valid || len(errs) != 1 {
		t.Fatalf("IsValid() = %v, %v", valid, errs)
	}
	err := errs[0]
	for _, target := range []error{ErrInvalidConfig, ErrInvalidPath, artifact.ErrInvalidCoordinates, ErrInvalidArtifactEntry} {
		if !errors.Is(err, target) {
			t.Errorf("errors.Is(%v, %v) = false", err, target)
		}
	}
	var cfgErr *InvalidConfigError
	if !errors.As(err, &cfgErr) || len(cfgErr.FieldErrors) != 3 {
		t.Errorf("field errors = %v", cfgErr)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := map[string][]string{
		"":                         nil,
		"verbose":                  {"verbose"},
		"artifacts[0].path":        {"artifacts", "0", "path"},
		"supported_features.x":     {"supported_features", "x"},
		"include_schemas[2]":       {"include_schemas", "2"},
		"0":                        {"0"},
	}
	for want, in := range tests {
		if got := formatPath(in); got != want {
			t.Errorf("formatPath(%v) = %q, want %q", in, got, want)
		}
	}
}
