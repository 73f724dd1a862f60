// SPDX-License-Identifier: MPL-2.0

package jsondoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Indent is the indentation unit used by Encode.
const Indent = "  "

// MarshalJSON writes the object compactly with members in order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeNode(&buf, o); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON writes the array compactly.
func (a *Array) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeNode(&buf, a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON writes the number literal unchanged.
func (n Number) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("0"), nil
	}
	return []byte(n), nil
}

// MarshalJSON writes null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Marshal returns the compact encoding of n.
func Marshal(n Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeNode(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalIndent returns the human-readable encoding of n: two-space
// indentation, members in document order, no HTML escaping and a trailing
// newline. Identical trees always produce identical bytes.
func MarshalIndent(n Node) ([]byte, error) {
	compact, err := Marshal(n)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", Indent); err != nil {
		return nil, fmt.Errorf("indent document: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// Encode writes the human-readable encoding of n to w.
func Encode(w io.Writer, n Node) error {
	data, err := MarshalIndent(n)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func writeNode(buf *bytes.Buffer, n Node) error {
	switch v := n.(type) {
	case nil:
		buf.WriteString("null")
	case *Object:
		buf.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			if err := writeNode(buf, v.values[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case *Array:
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case String:
		writeString(buf, string(v))
	case Number:
		if v == "" {
			buf.WriteByte('0')
			break
		}
		if !json.Valid([]byte(v)) {
			return fmt.Errorf("invalid number literal %q", string(v))
		}
		buf.WriteString(string(v))
	case Bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Null:
		buf.WriteString("null")
	default:
		return fmt.Errorf("unsupported node type %T", n)
	}
	return nil
}

// writeString appends s as a JSON string literal without HTML escaping.
func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	// Encoding a string never fails; the encoder appends a newline we drop.
	_ = enc.Encode(s)
	buf.Truncate(buf.Len() - 1)
}
