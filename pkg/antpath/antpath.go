// SPDX-License-Identifier: MPL-2.0

// Package antpath matches slash-separated entry paths against Ant-style
// patterns, the selector syntax build tools use for resource includes:
//
//   - "*" matches any run of characters inside one path segment
//   - "**" matches zero or more whole segments
//   - "?" matches exactly one character other than the separator
//   - everything else matches literally, case sensitively
//
// Backslashes are treated as separators on both sides, so the same pattern
// behaves identically for entries written on any platform. A pattern wrapped
// in %regex[...] is matched as a regular expression against the whole path,
// and %ant[...] is an explicit wrapper for an Ant pattern.
package antpath

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// DefaultPattern selects every JSON document below a top-level schemas
	// directory. It is used when no include pattern is configured.
	DefaultPattern = "schemas/**/*.json"

	// Separator is the canonical path separator.
	Separator = "/"

	regexPrefix = "%regex["
	antPrefix   = "%ant["
	wrapSuffix  = "]"
)

// globEscaper escapes the characters doublestar treats as syntax but Ant
// treats as literals.
var globEscaper = strings.NewReplacer(
	"[", `\[`,
	"]", `\]`,
	"{", `\{`,
	"}", `\}`,
)

// Patterns returns patterns, or a single DefaultPattern when patterns is empty.
func Patterns(patterns []string) []string {
	if len(patterns) == 0 {
		return []string{DefaultPattern}
	}
	return patterns
}

// IsContainer reports whether path names a directory entry of an archive.
// Directory entries never take part in matching.
func IsContainer(path string) bool {
	return strings.HasSuffix(Normalize(path), Separator)
}

// Normalize converts backslashes to slashes and collapses repeated
// separators. A single leading or trailing separator is kept.
func Normalize(path string) string {
	path = strings.ReplaceAll(path, `\`, Separator)
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", Separator)
	}
	return path
}

// Match reports whether path satisfies pattern.
func Match(path, pattern string) bool {
	if isWrapped(pattern, regexPrefix) {
		re, err := compileRegex(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(Normalize(path))
	}
	if isWrapped(pattern, antPrefix) {
		pattern = unwrap(pattern, antPrefix)
	}

	path = Normalize(path)
	pattern = Normalize(pattern)

	// A rooted pattern only matches a rooted path and vice versa.
	if strings.HasPrefix(path, Separator) != strings.HasPrefix(pattern, Separator) {
		return false
	}

	matched, err := doublestar.Match(globEscaper.Replace(pattern), path)
	return err == nil && matched
}

// AnyMatch reports whether path satisfies at least one of patterns.
func AnyMatch(path string, patterns []string) bool {
	for _, p := range patterns {
		if Match(path, p) {
			return true
		}
	}
	return false
}

// Validate reports the first pattern that can never match because it is
// malformed. Plain Ant patterns are always valid; only %regex[...] bodies can
// fail to compile.
func Validate(patterns []string) error {
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("empty include pattern")
		}
		if !isWrapped(p, regexPrefix) {
			continue
		}
		if _, err := compileRegex(p); err != nil {
			return fmt.Errorf("invalid include pattern %q: %w", p, err)
		}
	}
	return nil
}

func isWrapped(pattern, prefix string) bool {
	return len(pattern) > len(prefix) &&
		strings.HasPrefix(pattern, prefix) &&
		strings.HasSuffix(pattern, wrapSuffix)
}

func unwrap(pattern, prefix string) string {
	return pattern[len(prefix) : len(pattern)-len(wrapSuffix)]
}

// compileRegex compiles the body of a %regex[...] pattern anchored at both ends.
func compileRegex(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + unwrap(pattern, regexPrefix) + `)$`)
}
