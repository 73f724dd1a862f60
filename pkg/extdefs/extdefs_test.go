// SPDX-License-Identifier: MPL-2.0

package extdefs_test

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"schemabundle-cli/pkg/extdefs"
	"schemabundle-cli/pkg/jsondoc"
)

func mustObject(t *testing.T, src string) *jsondoc.Object {
	t.Helper()

	obj, err := jsondoc.ParseObject([]byte(src))
	if err != nil {
		t.Fatalf("ParseObject(%s) error = %v", src, err)
	}
	return obj
}

// sameJSON compares two nodes by their encoding, which keeps member order.
func sameJSON(t *testing.T, a, b jsondoc.Node) bool {
	t.Helper()

	ab, err := jsondoc.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	bb, err := jsondoc.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return string(ab) == string(bb)
}

func keysOf(obj *jsondoc.Object) string {
	return strings.Join(obj.Keys(), ",")
}

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		wantOK   bool
		wantKeys string
	}{
		{
			name:     "object field contributes",
			input:    `{"type":"object","gioExternalDefinitions":{"c":{"type":"string"}}}`,
			wantOK:   true,
			wantKeys: "c",
		},
		{
			name:     "empty object still contributes",
			input:    `{"gioExternalDefinitions":{}}`,
			wantOK:   true,
			wantKeys: "",
		},
		{name: "field missing", input: `{"type":"object"}`},
		{name: "field is array", input: `{"gioExternalDefinitions":[]}`},
		{name: "field is string", input: `{"gioExternalDefinitions":"x"}`},
		{name: "field is null", input: `{"gioExternalDefinitions":null}`},
		{name: "root is array", input: `[{"gioExternalDefinitions":{}}]`},
		{name: "root is scalar", input: `"gioExternalDefinitions"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			defs, ok, err := extdefs.Extract([]byte(tt.input))
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("Extract() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && keysOf(defs) != tt.wantKeys {
				t.Errorf("Extract() keys = %q, want %q", keysOf(defs), tt.wantKeys)
			}
		})
	}
}

func TestExtract_MalformedIsAnError(t *testing.T) {
	t.Parallel()

	_, ok, err := extdefs.Extract([]byte(`{"gioExternalDefinitions": {`))
	if err == nil {
		t.Fatal("Extract() expected error for malformed input")
	}
	if ok {
		t.Error("Extract() ok = true on error")
	}
	var se *jsondoc.SyntaxError
	if !errors.As(err, &se) {
		t.Errorf("Extract() error = %T, want *jsondoc.SyntaxError", err)
	}
}

func TestMerge_NoExternals(t *testing.T) {
	t.Parallel()

	local := mustObject(t, `{"b":{"type":"number"},"a":{"type":"string"}}`)
	got := extdefs.Merge(local, nil)

	if keysOf(got) != "a,b" {
		t.Errorf("Merge() keys = %q, want a,b", keysOf(got))
	}
	for _, k := range []string{"a", "b"} {
		want, _ := local.Get(k)
		have, _ := got.Get(k)
		if !sameJSON(t, want, have) {
			t.Errorf("value of %q changed", k)
		}
	}
}

func TestMerge_ExternalsAreAddedSorted(t *testing.T) {
	t.Parallel()

	local := mustObject(t, `{"a":{},"b":{}}`)
	ext := mustObject(t, `{"d":{"n":4},"c":{"n":3}}`)

	got := extdefs.Merge(local, []*jsondoc.Object{ext})
	if keysOf(got) != "a,b,c,d" {
		t.Errorf("Merge() keys = %q, want a,b,c,d", keysOf(got))
	}
}

func TestMerge_LocalWins(t *testing.T) {
	t.Parallel()

	local := mustObject(t, `{"a":{"type":"string","title":"X"},"b":{}}`)
	ext := mustObject(t, `{"a":{"type":"number","title":"Y","extra":true}}`)

	res := extdefs.MergeDetailed(local, []*jsondoc.Object{ext})
	if keysOf(res.Definitions) != "a,b" {
		t.Errorf("keys = %q, want a,b", keysOf(res.Definitions))
	}

	want, _ := local.Get("a")
	got, _ := res.Definitions.Get("a")
	if !sameJSON(t, want, got) {
		got, _ := jsondoc.Marshal(got)
		t.Errorf("a = %s, want the local value", got)
	}
	if !slices.Equal(res.LocalOverrides, []string{"a"}) {
		t.Errorf("LocalOverrides = %v, want [a]", res.LocalOverrides)
	}
}

func TestMerge_LastExternalWins(t *testing.T) {
	t.Parallel()

	first := mustObject(t, `{"shared":{"v":1},"x":{}}`)
	second := mustObject(t, `{"shared":{"v":2},"y":{}}`)

	res := extdefs.MergeDetailed(nil, []*jsondoc.Object{first, second})
	got, _ := res.Definitions.Get("shared")
	want, _ := second.Get("shared")
	if !sameJSON(t, got, want) {
		t.Error("shared should come from the last external in discovery order")
	}
	if !slices.Equal(res.Shadowed, []string{"shared"}) {
		t.Errorf("Shadowed = %v, want [shared]", res.Shadowed)
	}
	if keysOf(res.Definitions) != "shared,x,y" {
		t.Errorf("keys = %q", keysOf(res.Definitions))
	}

	// Reversing the discovery order flips the winner.
	res = extdefs.MergeDetailed(nil, []*jsondoc.Object{second, first})
	got, _ = res.Definitions.Get("shared")
	want, _ = first.Get("shared")
	if !sameJSON(t, got, want) {
		t.Error("shared should follow discovery order")
	}
}

func TestMerge_ValuesAreShared(t *testing.T) {
	t.Parallel()

	ext := mustObject(t, `{"c":{"type":"string"}}`)
	got := extdefs.Merge(jsondoc.NewObject(), []*jsondoc.Object{ext})

	src, _ := ext.Get("c")
	dst, _ := got.Get("c")
	if src != dst {
		t.Error("Merge() copied a value; values must be shared by reference")
	}
}

func TestMerge_SortIsByteOrder(t *testing.T) {
	t.Parallel()

	local := mustObject(t, `{"b":1,"B":2,"a":3,"_":4,"é":5,"z":6,"10":7,"9":8}`)
	got := extdefs.Merge(local, nil)

	keys := got.Keys()
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Fatalf("keys not strictly ascending: %q", keys)
		}
	}
	if keysOf(got) != "10,9,B,_,a,b,z,é" {
		t.Errorf("keys = %q", keysOf(got))
	}
}

func TestMerge_Deterministic(t *testing.T) {
	t.Parallel()

	local := mustObject(t, `{"m":{},"a":{}}`)
	exts := []*jsondoc.Object{
		mustObject(t, `{"z":{},"k":{}}`),
		mustObject(t, `{"c":{},"k":{"v":1}}`),
	}

	first, err := jsondoc.MarshalIndent(extdefs.Merge(local, exts))
	if err != nil {
		t.Fatal(err)
	}
	for range 5 {
		again, err := jsondoc.MarshalIndent(extdefs.Merge(local, exts))
		if err != nil {
			t.Fatal(err)
		}
		if string(again) != string(first) {
			t.Fatalf("Merge() output differs between runs:\n%s\nvs\n%s", first, again)
		}
	}
}

func TestSorted_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	obj := mustObject(t, `{"b":1,"a":2}`)
	_ = extdefs.Sorted(obj)
	if keysOf(obj) != "b,a" {
		t.Errorf("input keys = %q, want b,a", keysOf(obj))
	}
}
