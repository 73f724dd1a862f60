// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"schemabundle-cli/internal/artifact"
	"schemabundle-cli/pkg/antpath"
	"schemabundle-cli/pkg/extdefs"
	"schemabundle-cli/pkg/jsondoc"
	"schemabundle-cli/pkg/sanitize"
)

type (
	// Source enumerates the candidate fragments of one invocation, in
	// discovery order: archive order first, then entry order within an archive.
	Source interface {
		Fragments(ctx context.Context, patterns []string) ([]artifact.Fragment, error)
	}

	// SourceFunc adapts a function to Source.
	SourceFunc func(ctx context.Context, patterns []string) ([]artifact.Fragment, error)

	// Options configures a Bundler.
	Options struct {
		LocalSchemaFile string
		OutputFile      string
		// IncludeSchemas selects fragment entries. Empty means antpath.DefaultPattern.
		IncludeSchemas []string
		Features       sanitize.Features
		// BaseDir is where the .prettierignore lookup starts.
		BaseDir string
		// BuildDir is the directory name .prettierignore is expected to list.
		BuildDir string
		// SkipPrettierCheck disables the .prettierignore advice.
		SkipPrettierCheck bool
	}

	// Report describes a successful invocation.
	Report struct {
		// Document is the final document.
		Document *jsondoc.Object
		// OutputFile is the absolute path written by Run; empty after Build.
		OutputFile string
		// Fragments is the number of candidate fragments examined.
		Fragments int
		// Contributions lists the "archive!entry" locations that published
		// external definitions, in merge order.
		Contributions []string
		// Synthesized is true when the local document had no
		// external-definitions member.
		Synthesized bool
		// LocalOverrides lists external keys replaced by local definitions.
		LocalOverrides []string
		// Shadowed lists keys published by more than one fragment.
		Shadowed []string
		// Prettier is the outcome of the .prettierignore check; always
		// PrettierIgnoreOK after Build or when the check is skipped.
		Prettier PrettierStatus
	}

	// Bundler runs bundling invocations. It holds no state between runs.
	Bundler struct {
		opts   Options
		source Source
		logger *slog.Logger
	}
)

// Fragments implements Source.
func (f SourceFunc) Fragments(ctx context.Context, patterns []string) ([]artifact.Fragment, error) {
	return f(ctx, patterns)
}

// New returns a Bundler. A nil source yields no fragments and a nil logger
// logs through slog.Default().
func New(opts Options, source Source, logger *slog.Logger) *Bundler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bundler{opts: opts, source: source, logger: logger}
}

// Run builds the final document and writes it to the output file.
func (b *Bundler) Run(ctx context.Context) (*Report, error) {
	prettier := PrettierIgnoreOK
	if !b.opts.SkipPrettierCheck {
		prettier = warnPrettierIgnore(b.logger, b.baseDir(), b.opts.BuildDir)
	}

	report, err := b.Build(ctx)
	if err != nil {
		return nil, err
	}
	report.Prettier = prettier

	out := absPath(b.opts.OutputFile)
	if err := WriteDocument(out, report.Document); err != nil {
		return nil, &Error{Kind: KindOutputWrite, Resource: out, Err: err}
	}
	report.OutputFile = out

	b.logger.Info("schema merged successfully", "output", out)
	return report, nil
}

// Build produces the final document without writing it.
func (b *Bundler) Build(ctx context.Context) (*Report, error) {
	patterns := b.opts.IncludeSchemas
	if len(patterns) == 0 {
		b.logger.Debug("no include pattern configured, using default", "pattern", antpath.DefaultPattern)
		patterns = antpath.Patterns(nil)
	}

	local, err := LoadLocal(b.opts.LocalSchemaFile)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("local schema parsed", "file", absPath(b.opts.LocalSchemaFile))

	var fragments []artifact.Fragment
	if b.source != nil {
		fragments, err = b.source.Fragments(ctx, patterns)
		if err != nil {
			return nil, sourceError(err)
		}
	}

	report, err := Assemble(local, fragments, b.opts.Features)
	if err != nil {
		return nil, err
	}

	if report.Synthesized {
		b.logger.Debug("local schema has no external definitions, creating them", "field", extdefs.FieldName)
	}
	for _, loc := range report.Contributions {
		b.logger.Debug("found external definitions", "fragment", loc)
	}
	for _, key := range report.LocalOverrides {
		b.logger.Debug("local definition overrides external one", "key", key)
	}
	for _, key := range report.Shadowed {
		b.logger.Debug("external definition published by several fragments, keeping the last one", "key", key)
	}
	return report, nil
}

// Assemble merges the external definitions of fragments into local and
// sanitizes the result with features. It mutates local and returns it as
// Report.Document. Fragments are extracted in the given order and the first
// malformed one aborts with a KindFragmentParse error.
func Assemble(local *jsondoc.Object, fragments []artifact.Fragment, features sanitize.Features) (*Report, error) {
	if local == nil {
		local = jsondoc.NewObject()
	}

	synthesized := false
	if !local.Has(extdefs.FieldName) {
		local.Set(extdefs.FieldName, jsondoc.NewObject())
		synthesized = true
	}
	localDefs, ok := extdefs.Lookup(local)
	if !ok {
		return nil, &Error{Kind: KindInvalidLocalDocument, Err: errors.New(extdefs.FieldName + " is not an object")}
	}

	var (
		externals     []*jsondoc.Object
		contributions []string
	)
	for _, f := range fragments {
		defs, ok, err := extdefs.Extract(f.Data)
		if err != nil {
			return nil, &Error{Kind: KindFragmentParse, Resource: f.Location(), Err: err}
		}
		if !ok {
			continue
		}
		externals = append(externals, defs)
		contributions = append(contributions, f.Location())
	}

	merged := extdefs.MergeDetailed(localDefs, externals)
	local.Set(extdefs.FieldName, merged.Definitions)
	sanitize.Sanitize(local, features)

	return &Report{
		Document:       local,
		Fragments:      len(fragments),
		Contributions:  contributions,
		Synthesized:    synthesized,
		LocalOverrides: merged.LocalOverrides,
		Shadowed:       merged.Shadowed,
	}, nil
}

// LoadLocal reads and parses the local schema-form document. Only a file that
// does not exist is a KindMissingInput error. A path that exists but cannot be
// read, a file that is not a JSON object, or one whose external-definitions
// member is not an object is KindInvalidLocalDocument.
func LoadLocal(path string) (*jsondoc.Object, error) {
	abs := absPath(path)
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &Error{Kind: KindMissingInput, Resource: abs, Err: err}
	}
	if err != nil {
		return nil, &Error{Kind: KindInvalidLocalDocument, Resource: abs, Err: err}
	}
	local, err := jsondoc.ParseObject(data)
	if err != nil {
		return nil, &Error{Kind: KindInvalidLocalDocument, Resource: abs, Err: err}
	}
	if v, ok := local.Get(extdefs.FieldName); ok {
		if _, isObj := jsondoc.AsObject(v); !isObj {
			return nil, &Error{
				Kind:     KindInvalidLocalDocument,
				Resource: abs,
				Err:      errors.New(extdefs.FieldName + " is not an object"),
			}
		}
	}
	return local, nil
}

// WriteDocument writes doc as indented JSON to path, creating parent
// directories. The content goes to a temporary file in the same directory
// first and is renamed over path, so path is either fully replaced or left
// untouched.
func WriteDocument(path string, doc jsondoc.Node) error {
	data, err := jsondoc.MarshalIndent(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	renamed = true
	return nil
}

func sourceError(err error) error {
	var readErr *artifact.EntryReadError
	if errors.As(err, &readErr) {
		return &Error{Kind: KindFragmentRead, Resource: readErr.Archive + "!" + readErr.Entry, Err: readErr.Err}
	}
	return &Error{Kind: KindSource, Err: err}
}

func (b *Bundler) baseDir() string {
	if b.opts.BaseDir != "" {
		return b.opts.BaseDir
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
