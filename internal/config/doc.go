// SPDX-License-Identifier: MPL-2.0

// Package config handles project configuration using Viper with CUE as the file format.
//
// Configuration is loaded from schemabundle.cue in the project base directory (or an
// explicit --config file), validated against an embedded CUE schema
// (config_schema.cue), layered over built-in defaults and overridden by
// SCHEMABUNDLE_* environment variables.
//
// Path settings may reference variables shell-style ($VAR, ${VAR}, ${VAR:-default}).
// BASEDIR and BUILD_DIR are always defined; variables from <BASEDIR>/.env and the
// process environment are available too. Expanded paths are made absolute against
// BASEDIR.
package config
