// SPDX-License-Identifier: MPL-2.0

package artifact

// Filter keeps the artifacts whose coordinates are in allow, preserving order.
// An empty allow-list keeps every artifact. Artifacts with unknown coordinates
// never match a non-empty allow-list.
func Filter(artifacts []Artifact, allow []string) []Artifact {
	out := make([]Artifact, 0, len(artifacts))
	if len(allow) == 0 {
		return append(out, artifacts...)
	}

	allowed := make(map[string]struct{}, len(allow))
	for _, c := range allow {
		allowed[c] = struct{}{}
	}
	for _, a := range artifacts {
		c := a.Coordinates()
		if c == "" {
			continue
		}
		if _, ok := allowed[c]; ok {
			out = append(out, a)
		}
	}
	return out
}
