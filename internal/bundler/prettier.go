// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// PrettierIgnoreFile is the file Prettier reads its ignore list from.
const PrettierIgnoreFile = ".prettierignore"

// PrettierStatus is the outcome of CheckPrettierIgnore.
type PrettierStatus int

const (
	// PrettierIgnoreOK means a .prettierignore file ignores the build directory.
	PrettierIgnoreOK PrettierStatus = iota
	// PrettierIgnoreMissing means no .prettierignore was found up to the filesystem root.
	PrettierIgnoreMissing
	// PrettierIgnoreIncomplete means the nearest .prettierignore does not ignore the build directory.
	PrettierIgnoreIncomplete
	// PrettierIgnoreUnreadable means the nearest .prettierignore could not be read.
	PrettierIgnoreUnreadable
)

// FindPrettierIgnore returns the nearest .prettierignore in dir or one of its
// parents, or "" when there is none. The search stops at the first directory
// that does not exist.
func FindPrettierIgnore(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	for {
		if _, err := os.Stat(dir); err != nil {
			return ""
		}
		candidate := filepath.Join(dir, PrettierIgnoreFile)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// CheckPrettierIgnore looks for a .prettierignore from baseDir upward and
// reports whether it ignores buildDir ("target" when empty). The accepted
// lines are the directory name with or without leading and trailing slashes.
// The returned path is the file inspected, if any.
func CheckPrettierIgnore(baseDir, buildDir string) (PrettierStatus, string) {
	path := FindPrettierIgnore(baseDir)
	if path == "" {
		return PrettierIgnoreMissing, ""
	}
	if buildDir == "" {
		buildDir = "target"
	}
	accepted := map[string]struct{}{
		buildDir:             {},
		buildDir + "/":       {},
		"/" + buildDir:       {},
		"/" + buildDir + "/": {},
	}

	f, err := os.Open(path)
	if err != nil {
		return PrettierIgnoreUnreadable, path
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if _, ok := accepted[strings.TrimSpace(sc.Text())]; ok {
			return PrettierIgnoreOK, path
		}
	}
	if sc.Err() != nil {
		return PrettierIgnoreUnreadable, path
	}
	return PrettierIgnoreIncomplete, path
}

// warnPrettierIgnore logs the advice matching the outcome of CheckPrettierIgnore
// and returns that outcome.
// It never fails the run.
func warnPrettierIgnore(logger *slog.Logger, baseDir, buildDir string) PrettierStatus {
	if buildDir == "" {
		buildDir = "target"
	}
	status, path := CheckPrettierIgnore(baseDir, buildDir)
	switch status {
	case PrettierIgnoreMissing:
		logger.Warn("no .prettierignore file found in project hierarchy", "from", baseDir)
		logger.Warn("create a .prettierignore file containing '" + buildDir + "' to keep Prettier away from generated files")
	case PrettierIgnoreIncomplete:
		logger.Warn(".prettierignore does not ignore the build directory", "file", path, "dir", buildDir)
		logger.Warn("add '" + buildDir + "' to your .prettierignore file to keep Prettier away from generated files")
	case PrettierIgnoreUnreadable:
		logger.Warn("could not read .prettierignore file", "file", path)
	case PrettierIgnoreOK:
	}
	return status
}
