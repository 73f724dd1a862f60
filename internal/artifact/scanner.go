// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"

	"schemabundle-cli/pkg/antpath"
)

// DefaultConcurrency is the number of archives a Scanner reads at once.
const DefaultConcurrency = 4

// ErrEntryRead is the sentinel error wrapped by EntryReadError.
var ErrEntryRead = errors.New("cannot read archive entry")

type (
	// Scanner reads the entries matching a set of include patterns out of
	// dependency archives.
	Scanner struct {
		// Concurrency bounds the archives read in parallel. Zero means
		// DefaultConcurrency.
		Concurrency int
		Logger      *slog.Logger
	}

	// EntryReadError is returned when an archive opened fine but one of its
	// selected entries could not be read.
	EntryReadError struct {
		Archive string
		Entry   string
		Err     error
	}
)

// Error implements the error interface.
func (e *EntryReadError) Error() string {
	return fmt.Sprintf("read %s!%s: %v", e.Archive, e.Entry, e.Err)
}

// Unwrap returns ErrEntryRead so callers can use errors.Is for programmatic detection.
func (e *EntryReadError) Unwrap() []error { return []error{ErrEntryRead, e.Err} }

// Fragments returns every entry of the given archives that matches at least
// one pattern. Archives are read concurrently, but the result follows the
// artifact order and, within one archive, the entry order; an entry listed
// twice in the same archive is returned once.
//
// Artifacts without a file, missing files and files that are not zip archives
// are skipped. Failing to read a selected entry aborts the scan.
func (s *Scanner) Fragments(ctx context.Context, artifacts []Artifact, patterns []string) ([]Fragment, error) {
	patterns = antpath.Patterns(patterns)

	limit := s.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([][]Fragment, len(artifacts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, a := range artifacts {
		g.Go(func() error {
			frags, err := s.scanArchive(gctx, a, patterns)
			results[i] = frags
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Fragment
	for _, frags := range results {
		out = append(out, frags...)
	}
	return out, nil
}

func (s *Scanner) scanArchive(ctx context.Context, a Artifact, patterns []string) ([]Fragment, error) {
	logger := s.logger()

	if a.File == "" {
		logger.Debug("artifact has no file, skipping", "artifact", a.String())
		return nil, nil
	}
	zr, err := zip.OpenReader(a.File)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("artifact file does not exist, skipping", "file", a.File)
		} else {
			logger.Debug("artifact is not a readable archive, skipping", "file", a.File, "error", err)
		}
		return nil, nil
	}
	defer func() { _ = zr.Close() }()

	var (
		frags []Fragment
		seen  = make(map[string]struct{})
	)
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := f.Name
		if antpath.IsContainer(name) || f.FileInfo().IsDir() {
			continue
		}
		if !antpath.AnyMatch(name, patterns) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		data, err := readEntry(f)
		if err != nil {
			return nil, &EntryReadError{Archive: a.File, Entry: name, Err: err}
		}
		frags = append(frags, Fragment{Origin: a.File, Path: name, Data: data})
	}

	if len(frags) > 0 {
		logger.Debug("found schema fragments", "artifact", a.String(), "count", len(frags))
	}
	return frags, nil
}

func (s *Scanner) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}
