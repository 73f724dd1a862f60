// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"schemabundle-cli/internal/bundler"
	"schemabundle-cli/internal/testutil"
	"schemabundle-cli/pkg/extdefs"
	"schemabundle-cli/pkg/jsondoc"
)

const localSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string", "description": "Name (Supports EL)"}
  },
  "gioExternalDefinitions": {
    "local": {"type": "string"}
  }
}`

type result struct {
	stdout string
	stderr string
	err    error
}

// execute runs the CLI against a fresh App with the given arguments.
func execute(t *testing.T, args ...string) result {
	t.Helper()

	var stdout, stderr bytes.Buffer
	app, err := NewApp(Dependencies{Stdout: &stdout, Stderr: &stderr, IssueStyle: "notty"})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}

	root := NewRootCommand(app)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err = root.ExecuteContext(t.Context())

	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// newProject lays out a Maven-style project with one dependency archive.
func newProject(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "src", "main", "resources", "schemas", "schema-form.json"), localSchema)
	testutil.MustWriteFile(t, filepath.Join(dir, ".prettierignore"), "target\n")
	testutil.NewJar(t).
		Coordinates("io.gravitee", "common", "1.0.0").
		File("schemas/common.json", `{"gioExternalDefinitions":{"ssl":{"type":"object"},"local":{"type":"number"}}}`).
		File("schemas/plain.json", `{"type":"object"}`).
		File("other/ignored.json", `{"gioExternalDefinitions":{"ignored":{}}}`).
		Write(filepath.Join(dir, "target", "dependency", "common-1.0.0.jar"))
	testutil.NewJar(t).
		Coordinates("io.gravitee", "extra", "2.0.0").
		File("schemas/extra.json", `{"gioExternalDefinitions":{"extra":{"description":"Extra (Supports EL)"}}}`).
		Write(filepath.Join(dir, "target", "dependency", "extra-2.0.0.jar"))
	return dir
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func definitionsOf(t *testing.T, path string) *jsondoc.Object {
	t.Helper()

	doc, err := jsondoc.ParseObject([]byte(testutil.MustReadFile(t, path)))
	if err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	defs, ok := extdefs.Lookup(doc)
	if !ok {
		t.Fatalf("output has no %s", extdefs.FieldName)
	}
	return defs
}

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.
	origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
	t.Cleanup(func() {
		Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
	})

	Version, Commit, BuildDate = "v1.2.3", "abc1234", "2025-06-15T10:00:00Z"
	if got, want := getVersionString(), "v1.2.3 (commit: abc1234, built: 2025-06-15T10:00:00Z)"; got != want {
		t.Errorf("getVersionString() = %q, want %q", got, want)
	}

	Version = "dev"
	if got, want := getVersionString(), "dev (built from source)"; got != want {
		t.Errorf("getVersionString() = %q, want %q", got, want)
	}
}

func TestBundle_Defaults(t *testing.T) {
	t.Parallel()

	dir := newProject(t)
	res := execute(t, "bundle", "-C", dir)
	if res.err != nil {
		t.Fatalf("bundle error = %v\nstderr:\n%s", res.err, res.stderr)
	}

	out := filepath.Join(dir, "target", "classes", "schemas", "schema-form.json")
	defs := definitionsOf(t, out)
	if got := strings.Join(defs.Keys(), ","); got != "extra,local,ssl" {
		t.Errorf("definitions = %s, want extra,local,ssl", got)
	}
	local, _ := defs.Get("local")
	if got, _ := jsondoc.Marshal(local); string(got) != `{"type":"string"}` {
		t.Errorf("local definition = %s, the local document must win", got)
	}
	if !strings.Contains(res.stdout, out) {
		t.Errorf("stdout does not name the output file:\n%s", res.stdout)
	}
	if !strings.Contains(res.stdout, "local overrides: local") {
		t.Errorf("stdout does not report the local override:\n%s", res.stdout)
	}
	if strings.Contains(res.stderr, ".prettierignore") {
		t.Errorf("unexpected prettier advice:\n%s", res.stderr)
	}
	// Default features keep every hint.
	if !strings.Contains(testutil.MustReadFile(t, out), "(Supports EL)") {
		t.Error("default run removed an EL hint")
	}
}

func TestBundle_PrettierGuidance(t *testing.T) {
	t.Parallel()

	dir := newProject(t)
	testutil.MustWriteFile(t, filepath.Join(dir, ".prettierignore"), "dist\n")

	res := execute(t, "bundle", "-C", dir)
	if res.err != nil {
		t.Fatalf("bundle error = %v\nstderr:\n%s", res.err, res.stderr)
	}
	if !strings.Contains(res.stderr, "Generated files are not ignored by Prettier") {
		t.Errorf("stderr misses the prettier guidance:\n%s", res.stderr)
	}

	skipped := execute(t, "bundle", "-C", dir, "--skip-prettier-check")
	if strings.Contains(skipped.stderr, "Prettier") {
		t.Errorf("--skip-prettier-check still printed advice:\n%s", skipped.stderr)
	}
}

func TestBundle_FlagsOverrideConfig(t *testing.T) {
	t.Parallel()

	dir := newProject(t)
	testutil.MustWriteFile(t, filepath.Join(dir, "schemabundle.cue"), `
output_file: "${BUILD_DIR}/from-config.json"
include_artifacts: ["io.gravitee:common"]
`)

	res := execute(t, "bundle", "-C", dir, "--output", "dist/schema.json", "--no-el")
	if res.err != nil {
		t.Fatalf("bundle error = %v\nstderr:\n%s", res.err, res.stderr)
	}

	out := filepath.Join(dir, "dist", "schema.json")
	defs := definitionsOf(t, out)
	if got := strings.Join(defs.Keys(), ","); got != "local,ssl" {
		t.Errorf("definitions = %s, want local,ssl (include_artifacts from the file still applies)", got)
	}
	if strings.Contains(testutil.MustReadFile(t, out), "Supports EL") {
		t.Error("--no-el left an EL hint in the output")
	}
}

func TestBundle_ExplicitArtifact(t *testing.T) {
	t.Parallel()

	dir := newProject(t)
	testutil.NewJar(t).
		File("schemas/bare.json", `{"gioExternalDefinitions":{"bare":{}}}`).
		Write(filepath.Join(dir, "libs", "bare.jar"))

	res := execute(t, "bundle", "-C", dir,
		"--artifact", "libs/bare.jar=com.example:bare",
		"--artifact-dir", "does-not-exist",
		"--include-artifact", "com.example:bare")
	if res.err != nil {
		t.Fatalf("bundle error = %v\nstderr:\n%s", res.err, res.stderr)
	}

	defs := definitionsOf(t, filepath.Join(dir, "target", "classes", "schemas", "schema-form.json"))
	if got := strings.Join(defs.Keys(), ","); got != "bare,local" {
		t.Errorf("definitions = %s, want bare,local", got)
	}
}

func TestBundle_MissingLocalSchema(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	res := execute(t, "bundle", "-C", dir, "--skip-prettier-check")

	var exitErr *ExitError
	if !errors.As(res.err, &exitErr) || exitErr.Code != exitFailure {
		t.Fatalf("error = %v, want ExitError with code %d", res.err, exitFailure)
	}
	if !errors.Is(res.err, bundler.ErrMissingInput) {
		t.Errorf("error = %v, want ErrMissingInput", res.err)
	}
	if !strings.Contains(res.stderr, "failed to read local schema") {
		t.Errorf("stderr misses the message:\n%s", res.stderr)
	}
	if !strings.Contains(res.stderr, "Local schema not found") {
		t.Errorf("stderr misses the issue guidance:\n%s", res.stderr)
	}
	if fileExists(filepath.Join(dir, "target")) {
		t.Error("a failed run created the build directory")
	}
}

func TestBundle_InvalidFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{"bad artifact coordinates", []string{"--artifact", "x.jar=not-coordinates"}},
		{"empty artifact path", []string{"--artifact", "=g:a"}},
		{"bad include-artifact", []string{"--include-artifact", "nocolon"}},
		{"bad include-schema regex", []string{"--include-schema", "%regex[(]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := execute(t, append([]string{"bundle", "-C", t.TempDir()}, tt.args...)...)
			var exitErr *ExitError
			if !errors.As(res.err, &exitErr) || exitErr.Code != exitConfig {
				t.Fatalf("error = %v, want ExitError with code %d", res.err, exitConfig)
			}
			if !errors.Is(res.err, errInvalidFlags) {
				t.Errorf("error = %v, want errInvalidFlags", res.err)
			}
		})
	}
}

func TestBundle_InvalidConfigFile(t *testing.T) {
	t.Parallel()

	dir := newProject(t)
	testutil.MustWriteFile(t, filepath.Join(dir, "schemabundle.cue"), `output_file: 42`)

	res := execute(t, "bundle", "-C", dir)
	var exitErr *ExitError
	if !errors.As(res.err, &exitErr) || exitErr.Code != exitConfig {
		t.Fatalf("error = %v, want ExitError with code %d", res.err, exitConfig)
	}
	if !strings.Contains(res.stderr, "Failed to load configuration") {
		t.Errorf("stderr misses the issue guidance:\n%s", res.stderr)
	}
}

func TestBundle_MalformedFragment(t *testing.T) {
	t.Parallel()

	dir := newProject(t)
	testutil.NewJar(t).
		File("schemas/broken.json", `{"gioExternalDefinitions":`).
		Write(filepath.Join(dir, "target", "dependency", "zz-broken.jar"))

	res := execute(t, "bundle", "-C", dir)
	if !errors.Is(res.err, bundler.ErrFragmentParse) {
		t.Fatalf("error = %v, want ErrFragmentParse", res.err)
	}
	if !strings.Contains(res.stderr, "zz-broken.jar!schemas/broken.json") {
		t.Errorf("stderr does not name the fragment:\n%s", res.stderr)
	}
	if fileExists(filepath.Join(dir, "target", "classes", "schemas", "schema-form.json")) {
		t.Error("output written despite a malformed fragment")
	}
}

func TestBundle_VerboseLogsDebug(t *testing.T) {
	t.Parallel()

	dir := newProject(t)
	res := execute(t, "bundle", "-C", dir, "-v")
	if res.err != nil {
		t.Fatalf("bundle error = %v\nstderr:\n%s", res.err, res.stderr)
	}
	if !strings.Contains(res.stderr, "resolved artifacts") {
		t.Errorf("debug log missing with -v:\n%s", res.stderr)
	}

	quiet := execute(t, "bundle", "-C", dir)
	if strings.Contains(quiet.stderr, "resolved artifacts") {
		t.Errorf("debug log printed without -v:\n%s", quiet.stderr)
	}
}

func TestParseArtifactFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		path    string
		coords  string
		wantErr bool
	}{
		{raw: "libs/a.jar", path: "libs/a.jar"},
		{raw: " libs/a.jar = g:a ", path: "libs/a.jar", coords: "g:a"},
		{raw: "libs/a.jar=g:a:1.0", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		entry, err := parseArtifactFlag(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseArtifactFlag(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if err == nil && (entry.Path != tt.path || entry.Coordinates != tt.coords) {
			t.Errorf("parseArtifactFlag(%q) = %+v", tt.raw, entry)
		}
	}
}
