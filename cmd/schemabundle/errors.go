// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"schemabundle-cli/internal/bundler"
	"schemabundle-cli/internal/issue"

	"github.com/spf13/cobra"
)

const (
	// exitFailure is returned when bundling fails.
	exitFailure = 1
	// exitConfig is returned when the configuration or the flags are invalid.
	exitConfig = 2
)

// kindIssues maps bundling failures to their catalog entry and a verb phrase
// for the message.
var kindIssues = map[bundler.Kind]struct {
	operation string
	id        issue.Id
}{
	bundler.KindMissingInput:         {"read local schema", issue.LocalSchemaNotFoundId},
	bundler.KindInvalidLocalDocument: {"parse local schema", issue.LocalSchemaInvalidId},
	bundler.KindFragmentParse:        {"parse schema fragment", issue.FragmentParseFailedId},
	bundler.KindFragmentRead:         {"read schema fragment", issue.FragmentReadFailedId},
	bundler.KindSource:               {"list dependency archives", issue.ArtifactSourceFailedId},
	bundler.KindOutputWrite:          {"write merged schema", issue.OutputWriteFailedId},
}

// describe converts err into an ActionableError for display. Errors that are
// already actionable are returned as they are.
func describe(err error) *issue.ActionableError {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae
	}

	var be *bundler.Error
	if errors.As(err, &be) {
		if ki, ok := kindIssues[be.Kind]; ok {
			return issue.NewErrorContext().
				WithOperation(ki.operation).
				WithResource(be.Resource).
				WithIssue(ki.id).
				Wrap(be.Err).
				Build()
		}
	}

	return issue.WrapWithContext(err, "bundle schema", "")
}

// exitCodeFor tells configuration problems apart from bundling failures.
func exitCodeFor(err error) int {
	if bundler.KindOf(err) != 0 {
		return exitFailure
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Issue == issue.ConfigLoadFailedId {
		return exitConfig
	}
	if errors.Is(err, errInvalidFlags) {
		return exitConfig
	}
	return exitFailure
}

// renderError writes err, its suggestions and, when it links to the issue
// catalog, the rendered guidance.
func renderError(w io.Writer, err error, verbose bool, style string) {
	ae := describe(err)
	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+ae.Format(verbose))

	if ae.Issue != 0 {
		renderIssue(w, ae.Issue, style)
	}
}

// renderIssue writes the catalog entry of id rendered with glamour.
func renderIssue(w io.Writer, id issue.Id, style string) {
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, err := entry.Render(style)
	if err != nil {
		slog.Warn("failed to render issue catalog entry", "issueID", id, "error", err)
		return
	}
	fmt.Fprint(w, rendered)
}

// fail renders err and returns the ExitError a RunE handler should return.
func (a *App) fail(cmd *cobra.Command, err error, verbose bool) error {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	renderError(a.stderr, err, verbose, a.issueStyle)
	return &ExitError{Code: exitCodeFor(err), Err: err}
}
