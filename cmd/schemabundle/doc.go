// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI commands for schemabundle.
//
// The root command wires configuration loading, logging and the shared
// artifact detector; bundle, scan and config are its subcommands.
package cmd
