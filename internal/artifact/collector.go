// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"context"
	"log/slog"
)

// Collector enumerates the candidate fragments of one invocation: it resolves
// the artifacts, keeps those on the allow-list and scans them.
type Collector struct {
	Resolver *Resolver
	// Allow lists the "groupId:artifactId" coordinates to scan. Empty scans
	// every resolved artifact.
	Allow   []string
	Scanner *Scanner
	Logger  *slog.Logger
}

// Artifacts returns the resolved artifacts and the subset kept by the allow-list.
func (c *Collector) Artifacts(ctx context.Context) (all, kept []Artifact, err error) {
	if c.Resolver == nil {
		return nil, nil, nil
	}
	all, err = c.Resolver.Resolve(ctx)
	if err != nil {
		return nil, nil, err
	}
	return all, Filter(all, c.Allow), nil
}

// Fragments resolves, filters and scans the artifacts.
func (c *Collector) Fragments(ctx context.Context, patterns []string) ([]Fragment, error) {
	all, kept, err := c.Artifacts(ctx)
	if err != nil {
		return nil, err
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("resolved artifacts", "total", len(all), "selected", len(kept))

	scanner := c.Scanner
	if scanner == nil {
		scanner = &Scanner{Logger: logger}
	}
	return scanner.Fragments(ctx, kept, patterns)
}
