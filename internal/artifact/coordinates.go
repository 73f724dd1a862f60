// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zip"
	"github.com/magiconair/properties"
)

const (
	// DefaultDetectorCacheSize bounds the number of archives whose metadata
	// stays cached between runs.
	DefaultDetectorCacheSize = 512

	pomDir        = "META-INF/maven/"
	pomProperties = "/pom.properties"
)

// ErrUnreadableArchive is returned when a file exists but is not a readable zip archive.
var ErrUnreadableArchive = errors.New("unreadable archive")

type (
	// Detector reads Maven coordinates from the pom.properties entry that
	// Maven packages into every artifact it builds.
	//
	// Results are cached by file path, size and modification time so that
	// repeated runs over unchanged archives do not reopen them.
	Detector struct {
		stat  func(string) (fileStamp, error)
		cache *lru.Cache[fileStamp, Artifact]
	}

	fileStamp struct {
		path    string
		size    int64
		modTime int64
	}
)

// NewDetector returns a Detector caching up to size archives.
func NewDetector(size int) (*Detector, error) {
	cache, err := lru.New[fileStamp, Artifact](size)
	if err != nil {
		return nil, fmt.Errorf("create coordinate cache: %w", err)
	}
	return &Detector{stat: stampOf, cache: cache}, nil
}

// Detect returns the artifact stored at path. Coordinates are left empty when
// the archive carries no Maven metadata. A missing file is reported as an
// fs.ErrNotExist error, a file that is not a zip archive as ErrUnreadableArchive.
func (d *Detector) Detect(path string) (Artifact, error) {
	stamp, err := d.stat(path)
	if err != nil {
		return Artifact{}, err
	}
	if a, ok := d.cache.Get(stamp); ok {
		return a, nil
	}

	a, err := readCoordinates(path)
	if err != nil {
		return Artifact{}, err
	}
	d.cache.Add(stamp, a)
	return a, nil
}

// Len returns the number of cached archives.
func (d *Detector) Len() int {
	return d.cache.Len()
}

func readCoordinates(path string) (Artifact, error) {
	a := Artifact{File: path}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w %s: %w", ErrUnreadableArchive, path, err)
	}
	defer func() { _ = zr.Close() }()

	for _, f := range zr.File {
		if !isPomProperties(f.Name) {
			continue
		}
		p, err := loadProperties(f)
		if err != nil {
			return Artifact{}, fmt.Errorf("read %s!%s: %w", path, f.Name, err)
		}
		group, okGroup := p.Get("groupId")
		id, okID := p.Get("artifactId")
		if !okGroup || !okID {
			continue
		}
		a.GroupID = strings.TrimSpace(group)
		a.ArtifactID = strings.TrimSpace(id)
		a.Version = strings.TrimSpace(p.GetString("version", ""))
		break
	}
	return a, nil
}

// isPomProperties matches META-INF/maven/<groupId>/<artifactId>/pom.properties.
func isPomProperties(name string) bool {
	if !strings.HasPrefix(name, pomDir) || !strings.HasSuffix(name, pomProperties) {
		return false
	}
	middle := strings.TrimSuffix(strings.TrimPrefix(name, pomDir), pomProperties)
	parts := strings.Split(middle, "/")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}

func loadProperties(f *zip.File) (*properties.Properties, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	l := &properties.Loader{Encoding: properties.ISO_8859_1, DisableExpansion: true}
	return l.LoadBytes(data)
}

func stampOf(path string) (fileStamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}, err
	}
	return fileStamp{path: path, size: info.Size(), modTime: info.ModTime().UnixNano()}, nil
}
