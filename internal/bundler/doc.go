// SPDX-License-Identifier: MPL-2.0

// Package bundler runs one schema bundling invocation.
//
// A run loads the local schema-form document, enumerates candidate fragments
// from a Source, extracts the external definitions each fragment publishes,
// merges them under the local document's own definitions, sanitizes
// descriptions and writes the result. Every fatal failure is returned as a
// single *Error carrying its Kind; nothing is retried and no output file is
// written or replaced unless the whole run succeeds.
package bundler
