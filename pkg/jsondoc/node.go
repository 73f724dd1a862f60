// SPDX-License-Identifier: MPL-2.0

// Package jsondoc provides an order-preserving JSON document model.
//
// Schema-form documents are diffed and reviewed by humans, so object members
// keep the order in which they were read (or inserted) and the encoder writes
// them back in that order. The model is a small tagged union: *Object, *Array,
// String, Number, Bool and Null all implement Node, and callers dispatch on
// Kind() or with a type switch.
package jsondoc

import "encoding/json"

const (
	// KindNull is the JSON null literal.
	KindNull Kind = iota
	// KindBool is a JSON boolean.
	KindBool
	// KindNumber is a JSON number, kept in its textual form.
	KindNumber
	// KindString is a JSON string.
	KindString
	// KindArray is a JSON array.
	KindArray
	// KindObject is a JSON object.
	KindObject
)

type (
	// Kind identifies the variant of a Node.
	Kind uint8

	// Node is one value of a JSON document.
	Node interface {
		Kind() Kind
	}

	// Object is a JSON object whose members keep insertion order.
	// The zero value is an empty object ready to use.
	Object struct {
		keys   []string
		values map[string]Node
	}

	// Array is a JSON array.
	Array struct {
		Items []Node
	}

	// String is a JSON string.
	String string

	// Number is a JSON number. The literal text is preserved so that
	// re-encoding never changes precision or notation.
	Number json.Number

	// Bool is a JSON boolean.
	Bool bool

	// Null is the JSON null literal.
	Null struct{}
)

// String returns the lowercase JSON name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Kind implements Node.
func (*Object) Kind() Kind { return KindObject }

// Kind implements Node.
func (*Array) Kind() Kind { return KindArray }

// Kind implements Node.
func (String) Kind() Kind { return KindString }

// Kind implements Node.
func (Number) Kind() Kind { return KindNumber }

// Kind implements Node.
func (Bool) Kind() Kind { return KindBool }

// Kind implements Node.
func (Null) Kind() Kind { return KindNull }

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{}
}

// Len returns the number of members.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the member names in order. The slice is a copy.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Has reports whether the object has a member named key.
func (o *Object) Has(key string) bool {
	if o == nil {
		return false
	}
	_, ok := o.values[key]
	return ok
}

// Get returns the member named key, or nil and false.
func (o *Object) Get(key string) (Node, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.values[key]
	return v, ok
}

// Set adds or replaces the member named key. A replaced member keeps its
// original position; a new member is appended.
func (o *Object) Set(key string, value Node) {
	if value == nil {
		value = Null{}
	}
	if o.values == nil {
		o.values = make(map[string]Node)
	}
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Delete removes the member named key. It reports whether a member was removed.
func (o *Object) Delete(key string) bool {
	if o == nil {
		return false
	}
	if _, ok := o.values[key]; !ok {
		return false
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// Each calls fn for every member in order until fn returns false.
func (o *Object) Each(fn func(key string, value Node) bool) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !fn(k, o.values[k]) {
			return
		}
	}
}

// Members returns a copy of the members in order.
func (o *Object) Members() []Member {
	if o == nil {
		return nil
	}
	out := make([]Member, 0, len(o.keys))
	for _, k := range o.keys {
		out = append(out, Member{Key: k, Value: o.values[k]})
	}
	return out
}

// Member is one key/value pair of an Object.
type Member struct {
	Key   string
	Value Node
}

// AsObject returns n as an *Object when it is one.
func AsObject(n Node) (*Object, bool) {
	o, ok := n.(*Object)
	return o, ok && o != nil
}

// AsString returns n as a Go string when it is a String.
func AsString(n Node) (string, bool) {
	s, ok := n.(String)
	return string(s), ok
}
