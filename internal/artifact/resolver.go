// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// archivePattern selects dependency archives inside an artifact directory.
const archivePattern = "**/*.{jar,zip}"

type (
	// Entry is an explicitly declared dependency archive.
	Entry struct {
		// Path is the archive location; relative paths resolve against the
		// resolver's base directory.
		Path string
		// Coordinates is "groupId:artifactId". When empty, coordinates are read
		// from the archive.
		Coordinates string
	}

	// Resolver builds the ordered artifact list of one invocation: explicit
	// entries first, in declaration order, then archives found under each
	// directory in lexical order. An archive reachable both ways is listed
	// once, at its first position.
	Resolver struct {
		BaseDir  string
		Entries  []Entry
		Dirs     []string
		Detector *Detector
		Logger   *slog.Logger
	}
)

// Resolve returns the artifacts in discovery order.
func (r *Resolver) Resolve(ctx context.Context) ([]Artifact, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		out  []Artifact
		seen = make(map[string]struct{})
	)
	add := func(a Artifact) {
		if _, dup := seen[a.File]; dup {
			return
		}
		seen[a.File] = struct{}{}
		out = append(out, a)
	}

	for _, e := range r.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a, err := r.resolveEntry(e, logger)
		if err != nil {
			return nil, err
		}
		add(a)
	}

	for _, dir := range r.Dirs {
		files, err := r.archivesIn(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("artifact directory does not exist, skipping", "dir", dir)
				continue
			}
			return nil, err
		}
		for _, file := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			add(r.detect(file, logger))
		}
	}
	return out, nil
}

func (r *Resolver) resolveEntry(e Entry, logger *slog.Logger) (Artifact, error) {
	file := r.abs(e.Path)
	if e.Coordinates == "" {
		return r.detect(file, logger), nil
	}
	group, id, err := ParseCoordinates(e.Coordinates)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{GroupID: group, ArtifactID: id, File: file}, nil
}

// detect never fails: an archive that cannot be inspected is kept without
// coordinates and the scanner decides what to do with it.
func (r *Resolver) detect(file string, logger *slog.Logger) Artifact {
	if r.Detector == nil {
		return Artifact{File: file}
	}
	a, err := r.Detector.Detect(file)
	if err != nil {
		logger.Debug("could not read artifact coordinates", "file", file, "error", err)
		return Artifact{File: file}
	}
	return a
}

func (r *Resolver) archivesIn(dir string) ([]string, error) {
	root := r.abs(dir)
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("artifact directory %s is not a directory", root)
	}

	matches, err := doublestar.Glob(os.DirFS(root), archivePattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
	if err != nil {
		return nil, fmt.Errorf("scan artifact directory %s: %w", root, err)
	}
	slices.Sort(matches)

	files := make([]string, len(matches))
	for i, m := range matches {
		files[i] = filepath.Join(root, filepath.FromSlash(m))
	}
	return files, nil
}

func (r *Resolver) abs(path string) string {
	if !filepath.IsAbs(path) && r.BaseDir != "" {
		path = filepath.Join(r.BaseDir, path)
	}
	if a, err := filepath.Abs(path); err == nil {
		return a
	}
	return filepath.Clean(path)
}
