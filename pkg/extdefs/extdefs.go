// SPDX-License-Identifier: MPL-2.0

// Package extdefs extracts and merges external definitions: the reusable
// definition entries a schema-form document publishes under its root
// "gioExternalDefinitions" member.
//
// Extraction decides whether one fragment contributes anything. Merging folds
// the contributions of every fragment, in discovery order, and then the local
// document's own entries, so that local entries always win. The merged object
// is returned with its keys sorted so generated files are stable across runs.
package extdefs

import (
	"slices"

	"schemabundle-cli/pkg/jsondoc"
)

// FieldName is the root member holding external definitions.
const FieldName = "gioExternalDefinitions"

// Result is the outcome of MergeDetailed.
type Result struct {
	// Definitions holds every merged entry with keys in ascending order.
	Definitions *jsondoc.Object
	// LocalOverrides lists keys that an external fragment defined and the
	// local document replaced, in ascending order.
	LocalOverrides []string
	// Shadowed lists keys defined by more than one external fragment, in
	// ascending order. The last fragment in discovery order won.
	Shadowed []string
}

// Extract parses one fragment and returns its external-definitions object.
// The boolean is false when the document is well formed but contributes
// nothing: the root is not an object, the member is missing, or the member is
// not an object. Malformed input always returns a *jsondoc.SyntaxError.
func Extract(data []byte) (*jsondoc.Object, bool, error) {
	root, err := jsondoc.Parse(data)
	if err != nil {
		return nil, false, err
	}
	defs, ok := Lookup(root)
	return defs, ok, nil
}

// Lookup returns the external-definitions object of an already parsed
// document, with the same contribution rules as Extract.
func Lookup(root jsondoc.Node) (*jsondoc.Object, bool) {
	obj, ok := jsondoc.AsObject(root)
	if !ok {
		return nil, false
	}
	field, ok := obj.Get(FieldName)
	if !ok {
		return nil, false
	}
	return jsondoc.AsObject(field)
}

// Merge combines local with externals and returns the key-sorted result.
// Externals are folded in the given order, later ones replacing earlier ones
// on key collisions; local entries are folded last and always win. Values are
// shared, never copied or rewritten. A nil local is treated as empty.
func Merge(local *jsondoc.Object, externals []*jsondoc.Object) *jsondoc.Object {
	return MergeDetailed(local, externals).Definitions
}

// MergeDetailed is Merge with a report of overridden keys.
func MergeDetailed(local *jsondoc.Object, externals []*jsondoc.Object) Result {
	acc := jsondoc.NewObject()
	shadowed := make(map[string]struct{})

	for _, ext := range externals {
		ext.Each(func(key string, value jsondoc.Node) bool {
			if acc.Has(key) {
				shadowed[key] = struct{}{}
			}
			acc.Set(key, value)
			return true
		})
	}

	var overrides []string
	local.Each(func(key string, value jsondoc.Node) bool {
		if acc.Has(key) {
			overrides = append(overrides, key)
		}
		acc.Set(key, value)
		return true
	})

	slices.Sort(overrides)
	return Result{
		Definitions:    Sorted(acc),
		LocalOverrides: overrides,
		Shadowed:       sortedKeys(shadowed),
	}
}

// Sorted returns a new object with the members of obj in ascending key order.
// Keys compare by their UTF-8 bytes, which is code point order.
func Sorted(obj *jsondoc.Object) *jsondoc.Object {
	keys := obj.Keys()
	slices.Sort(keys)

	out := jsondoc.NewObject()
	for _, k := range keys {
		v, _ := obj.Get(k)
		out.Set(k, v)
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
