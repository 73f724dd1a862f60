// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

type (
	// JarBuilder assembles a JAR-like zip archive entry by entry. Entries are
	// written in the order they were added.
	//
	// Usage:
	//
	//	path := testutil.NewJar(t).
	//	    Coordinates("io.gravitee", "shared-schemas", "1.0.0").
	//	    File("schemas/external/a.json", `{"gioExternalDefinitions":{}}`).
	//	    Write(filepath.Join(t.TempDir(), "shared.jar"))
	JarBuilder struct {
		t       testing.TB
		entries []jarEntry
	}

	jarEntry struct {
		name    string
		content []byte
	}
)

// NewJar returns an empty builder.
func NewJar(t testing.TB) *JarBuilder {
	t.Helper()
	return &JarBuilder{t: t}
}

// File adds a file entry.
func (b *JarBuilder) File(name, content string) *JarBuilder {
	b.entries = append(b.entries, jarEntry{name: name, content: []byte(content)})
	return b
}

// Dir adds a directory entry. A trailing slash is appended when missing.
func (b *JarBuilder) Dir(name string) *JarBuilder {
	if name == "" || name[len(name)-1] != '/' {
		name += "/"
	}
	b.entries = append(b.entries, jarEntry{name: name})
	return b
}

// Coordinates adds the pom.properties entry Maven writes into every artifact
// it packages.
func (b *JarBuilder) Coordinates(groupID, artifactID, version string) *JarBuilder {
	name := fmt.Sprintf("META-INF/maven/%s/%s/pom.properties", groupID, artifactID)
	content := fmt.Sprintf("#Generated by Maven\nartifactId=%s\ngroupId=%s\nversion=%s\n", artifactID, groupID, version)
	return b.File(name, content)
}

// Write stores the archive at path, creating parent directories, and returns
// path. The test fails immediately on any error.
func (b *JarBuilder) Write(path string) string {
	b.t.Helper()

	MustMkdirAll(b.t, filepath.Dir(path), 0o755)
	f, err := os.Create(path)
	if err != nil {
		b.t.Fatalf("failed to create archive %s: %v", path, err)
	}
	defer MustClose(b.t, f)

	zw := zip.NewWriter(f)
	for _, e := range b.entries {
		w, err := zw.Create(e.name)
		if err != nil {
			b.t.Fatalf("failed to add %s to %s: %v", e.name, path, err)
		}
		if _, err := w.Write(e.content); err != nil {
			b.t.Fatalf("failed to write %s to %s: %v", e.name, path, err)
		}
	}
	if err := zw.Close(); err != nil {
		b.t.Fatalf("failed to finish archive %s: %v", path, err)
	}
	return path
}
