// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// logPrefix is printed in front of every log line.
const logPrefix = "schemabundle"

// newLogger returns a slog logger backed by a charm log handler writing to w,
// plus the handler itself so the level can be raised after the configuration
// has been read.
func newLogger(w io.Writer, verbose bool) (*slog.Logger, *log.Logger) {
	handler := log.NewWithOptions(w, log.Options{
		Prefix: logPrefix,
		Level:  levelFor(verbose),
	})
	return slog.New(handler), handler
}

func levelFor(verbose bool) log.Level {
	if verbose {
		return log.DebugLevel
	}
	return log.InfoLevel
}
