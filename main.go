// SPDX-License-Identifier: MPL-2.0

// schemabundle merges the external schema-form definitions published by
// dependency archives into the schema-form document of a plugin.
package main

import cmd "schemabundle-cli/cmd/schemabundle"

func main() {
	cmd.Execute()
}
