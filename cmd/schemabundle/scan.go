// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"schemabundle-cli/internal/artifact"
	"schemabundle-cli/pkg/antpath"
	"schemabundle-cli/pkg/extdefs"
	"schemabundle-cli/pkg/jsondoc"

	"github.com/spf13/cobra"
)

type (
	scanFlagValues struct {
		json bool
	}

	// scanEntry is one matched fragment and what it contributes.
	scanEntry struct {
		location  string
		keys      []string
		publishes bool
		err       error
	}

	// scanResult is the outcome of a dry run of the collection phase.
	scanResult struct {
		all       []artifact.Artifact
		selected  map[string]bool
		fragments []scanEntry
	}
)

func newScanCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &scanFlagValues{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List dependency archives and the definitions they publish",
		Long: `List the dependency archives considered for merging, whether
include_artifacts selects them, and the external definitions every matched
entry publishes. Nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := app.settings(cmd.Context(), rootFlags, nil)
			if err != nil {
				return app.fail(cmd, err, rootFlags.verbose)
			}

			_, collector := app.pipeline(settings, pipelineOptions{skipPrettierCheck: true})
			all, kept, err := collector.Artifacts(cmd.Context())
			if err != nil {
				return app.fail(cmd, err, rootFlags.verbose)
			}
			fragments, err := collector.Scanner.Fragments(cmd.Context(), kept, settings.IncludeSchemas)
			if err != nil {
				return app.fail(cmd, err, rootFlags.verbose)
			}

			res := newScanResult(all, kept, fragments)
			if flags.json {
				return writeScanJSON(cmd.OutOrStdout(), res)
			}
			writeScanText(cmd.OutOrStdout(), res, settings.BaseDir, antpath.Patterns(settings.IncludeSchemas))
			return nil
		},
	}

	cmd.Flags().BoolVar(&flags.json, "json", false, "print the result as JSON")
	return cmd
}

func newScanResult(all, kept []artifact.Artifact, fragments []artifact.Fragment) scanResult {
	res := scanResult{all: all, selected: make(map[string]bool, len(kept))}
	for _, a := range kept {
		res.selected[a.File] = true
	}
	for _, f := range fragments {
		entry := scanEntry{location: f.Location()}
		defs, ok, err := extdefs.Extract(f.Data)
		entry.err = err
		entry.publishes = ok
		if ok {
			entry.keys = defs.Keys()
		}
		res.fragments = append(res.fragments, entry)
	}
	return res
}

func writeScanText(w io.Writer, res scanResult, baseDir string, patterns []string) {
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("Artifacts"),
		SubtitleStyle.Render(fmt.Sprintf("(%d found, %d selected)", len(res.all), len(res.selected))))
	if len(res.all) == 0 {
		fmt.Fprintln(w, listStyle.Render(SubtitleStyle.Render("(none)")))
	}
	for _, a := range res.all {
		mark := SuccessStyle.Render("✓")
		if !res.selected[a.File] {
			mark = SubtitleStyle.Render("-")
		}
		fmt.Fprintln(w, listStyle.Render(fmt.Sprintf("%s %s %s", mark, KeyStyle.Render(a.String()), displayPath(baseDir, a.File))))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("Fragments"), SubtitleStyle.Render(strings.Join(patterns, ", ")))
	if len(res.fragments) == 0 {
		fmt.Fprintln(w, listStyle.Render(SubtitleStyle.Render("(none)")))
	}
	for _, f := range res.fragments {
		loc := displayPath(baseDir, f.location)
		switch {
		case f.err != nil:
			fmt.Fprintln(w, listStyle.Render(fmt.Sprintf("%s %s: %v", ErrorStyle.Render("✗"), loc, f.err)))
		case !f.publishes:
			fmt.Fprintln(w, listStyle.Render(fmt.Sprintf("%s %s", SubtitleStyle.Render("-"), loc)))
		default:
			fmt.Fprintln(w, listStyle.Render(fmt.Sprintf("%s %s → %s", SuccessStyle.Render("✓"), loc, strings.Join(f.keys, ", "))))
		}
	}
}

// writeScanJSON prints the result with the same encoder as the merged schema.
func writeScanJSON(w io.Writer, res scanResult) error {
	artifacts := &jsondoc.Array{}
	for _, a := range res.all {
		obj := jsondoc.NewObject()
		obj.Set("file", jsondoc.String(a.File))
		if c := a.Coordinates(); c != "" {
			obj.Set("coordinates", jsondoc.String(c))
		}
		if a.Version != "" {
			obj.Set("version", jsondoc.String(a.Version))
		}
		obj.Set("selected", jsondoc.Bool(res.selected[a.File]))
		artifacts.Items = append(artifacts.Items, obj)
	}

	fragments := &jsondoc.Array{}
	for _, f := range res.fragments {
		obj := jsondoc.NewObject()
		obj.Set("location", jsondoc.String(f.location))
		if f.err != nil {
			obj.Set("error", jsondoc.String(f.err.Error()))
		} else {
			keys := &jsondoc.Array{Items: []jsondoc.Node{}}
			for _, k := range f.keys {
				keys.Items = append(keys.Items, jsondoc.String(k))
			}
			obj.Set("publishes", jsondoc.Bool(f.publishes))
			obj.Set("definitions", keys)
		}
		fragments.Items = append(fragments.Items, obj)
	}

	root := jsondoc.NewObject()
	root.Set("artifacts", artifacts)
	root.Set("fragments", fragments)
	return jsondoc.Encode(w, root)
}

// displayPath shortens paths below baseDir.
func displayPath(baseDir, path string) string {
	rel, err := filepath.Rel(baseDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
