// SPDX-License-Identifier: MPL-2.0

// Package artifact locates dependency archives and reads candidate schema
// fragments out of them.
//
// A build declares its dependencies either explicitly, as a list of archive
// paths with optional Maven coordinates, or implicitly, as directories holding
// JAR/ZIP files. The Resolver turns both into an ordered Artifact list, Filter
// applies the coordinate allow-list and the Scanner reads every matching
// archive entry into a Fragment.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidCoordinates is the sentinel error wrapped by InvalidCoordinatesError.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

type (
	// Artifact is one dependency archive. File is empty when the artifact
	// was declared but has no file to read; such artifacts are skipped.
	Artifact struct {
		GroupID    string
		ArtifactID string
		Version    string
		File       string
	}

	// Fragment is one archive entry selected by the include patterns.
	Fragment struct {
		// Origin is the archive the entry was read from.
		Origin string
		// Path is the entry name inside the archive, with '/' separators.
		Path string
		Data []byte
	}

	// InvalidCoordinatesError is returned when a "groupId:artifactId" value
	// does not have exactly two non-empty parts.
	InvalidCoordinatesError struct {
		Value string
	}
)

// Coordinates returns "groupId:artifactId", or "" when either part is unknown.
func (a Artifact) Coordinates() string {
	if a.GroupID == "" || a.ArtifactID == "" {
		return ""
	}
	return a.GroupID + ":" + a.ArtifactID
}

// String names the artifact for humans: its coordinates and version when
// known, otherwise the archive file name.
func (a Artifact) String() string {
	if c := a.Coordinates(); c != "" {
		if a.Version != "" {
			return c + ":" + a.Version
		}
		return c
	}
	if a.File == "" {
		return "<no file>"
	}
	return filepath.Base(a.File)
}

// Exists reports whether the artifact has a file on disk.
func (a Artifact) Exists() bool {
	if a.File == "" {
		return false
	}
	_, err := os.Stat(a.File)
	return err == nil
}

// Location returns "origin!path", the form used in diagnostics.
func (f Fragment) Location() string {
	return f.Origin + "!" + f.Path
}

// Error implements the error interface.
func (e *InvalidCoordinatesError) Error() string {
	return fmt.Sprintf("invalid coordinates %q (expected groupId:artifactId)", e.Value)
}

// Unwrap returns ErrInvalidCoordinates so callers can use errors.Is for programmatic detection.
func (e *InvalidCoordinatesError) Unwrap() error { return ErrInvalidCoordinates }

// ParseCoordinates splits "groupId:artifactId".
func ParseCoordinates(s string) (groupID, artifactID string, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &InvalidCoordinatesError{Value: s}
	}
	return parts[0], parts[1], nil
}
