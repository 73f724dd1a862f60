// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"

	"schemabundle-cli/internal/artifact"
	"schemabundle-cli/pkg/sanitize"
)

const (
	// BaseDirVar names the project base directory in path settings.
	BaseDirVar = "BASEDIR"
	// BuildDirVar names the build directory in path settings.
	BuildDirVar = "BUILD_DIR"
	// DotEnvFile is read from the base directory for extra variables.
	DotEnvFile = ".env"
)

// Settings is a Config with every path expanded and made absolute, ready to
// drive a bundling run.
type Settings struct {
	BaseDir          string
	BuildDir         string
	LocalSchemaFile  string
	OutputFile       string
	IncludeArtifacts []string
	IncludeSchemas   []string
	Features         sanitize.Features
	Artifacts        []artifact.Entry
	ArtifactDirs     []string
	Verbose          bool
}

// Resolve expands the path settings of c against baseDir.
//
// Variables come from, in increasing precedence: <baseDir>/.env, the process
// environment, then BASEDIR and BUILD_DIR. An unset variable without a
// ${VAR:-default} fallback is an error.
func (c *Config) Resolve(baseDir string) (*Settings, error) {
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}

	env, err := environ(base)
	if err != nil {
		return nil, err
	}
	x := &expander{base: base, vars: append(env, BaseDirVar+"="+filepath.ToSlash(base))}

	s := &Settings{
		BaseDir:          base,
		IncludeArtifacts: c.IncludeArtifacts,
		IncludeSchemas:   c.IncludeSchemas,
		Features:         c.SupportedFeatures.Features(),
		Verbose:          c.Verbose,
	}

	if s.BuildDir, err = x.path("build_dir", c.BuildDir); err != nil {
		return nil, err
	}
	x.vars = append(x.vars, BuildDirVar+"="+filepath.ToSlash(s.BuildDir))

	if s.LocalSchemaFile, err = x.path("local_schema_file", c.LocalSchemaFile); err != nil {
		return nil, err
	}
	if s.OutputFile, err = x.path("output_file", c.OutputFile); err != nil {
		return nil, err
	}
	for i, e := range c.Artifacts {
		p, err := x.path(fmt.Sprintf("artifacts[%d].path", i), e.Path)
		if err != nil {
			return nil, err
		}
		entry := e.Entry()
		entry.Path = p
		s.Artifacts = append(s.Artifacts, entry)
	}
	for i, d := range c.ArtifactDirs {
		p, err := x.path(fmt.Sprintf("artifact_dirs[%d]", i), d)
		if err != nil {
			return nil, err
		}
		s.ArtifactDirs = append(s.ArtifactDirs, p)
	}
	return s, nil
}

// ExpandPath expands variables in a single path the way Resolve does, for
// command-line overrides.
func (s *Settings) ExpandPath(field, value string) (string, error) {
	env, err := environ(s.BaseDir)
	if err != nil {
		return "", err
	}
	x := &expander{
		base: s.BaseDir,
		vars: append(env, BaseDirVar+"="+filepath.ToSlash(s.BaseDir), BuildDirVar+"="+filepath.ToSlash(s.BuildDir)),
	}
	return x.path(field, value)
}

type expander struct {
	base string
	vars []string
}

// path expands value as a single shell word and makes it absolute.
// Separators are converted to '/' first so Windows paths survive the shell
// quoting rules.
func (x *expander) path(field, value string) (string, error) {
	word, err := syntax.NewParser().Document(strings.NewReader(filepath.ToSlash(value)))
	if err != nil {
		return "", fmt.Errorf("%s: cannot parse %q: %w", field, value, err)
	}
	cfg := &expand.Config{Env: expand.ListEnviron(x.vars...), NoUnset: true}
	expanded, err := expand.Literal(cfg, word)
	if err != nil {
		return "", fmt.Errorf("%s: cannot expand %q: %w", field, value, err)
	}

	p := filepath.FromSlash(expanded)
	if !filepath.IsAbs(p) {
		p = filepath.Join(x.base, p)
	}
	return filepath.Clean(p), nil
}

// environ returns the .env pairs of baseDir followed by the process
// environment, so the process wins on duplicates.
func environ(baseDir string) ([]string, error) {
	var pairs []string
	dotenv, err := godotenv.Read(filepath.Join(baseDir, DotEnvFile))
	switch {
	case err == nil:
		for k, v := range dotenv {
			pairs = append(pairs, k+"="+v)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", filepath.Join(baseDir, DotEnvFile), err)
	}
	return append(pairs, os.Environ()...), nil
}
