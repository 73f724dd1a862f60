// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors for the command line.
//
// An ActionableError names the failed operation and the file involved and
// carries remediation hints. It may point at a catalog Issue whose longer
// Markdown guidance is rendered with glamour.
package issue
