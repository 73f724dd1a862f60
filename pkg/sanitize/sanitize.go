// SPDX-License-Identifier: MPL-2.0

// Package sanitize rewrites the "description" hints of a schema-form document
// for plugins that do not support expression language (EL) or secrets.
//
// The rule set is fixed. Each of the two Features flags, when false, removes a
// fixed list of hint phrases from every description in the document. When both
// flags are true, which is the default, the document is left untouched.
package sanitize

import (
	"strings"

	"schemabundle-cli/pkg/jsondoc"
)

// DescriptionField is the member rewritten by Sanitize.
const DescriptionField = "description"

// Features describes what the target plugin supports.
type Features struct {
	// ExpressionLanguageOnly is true when EL is supported. When false, the
	// "(Supports EL)" and "Supports EL" hints are removed.
	ExpressionLanguageOnly bool `json:"expression_language_only" mapstructure:"expression_language_only"`
	// SecretsAndExpressionLanguage is true when secrets and EL are supported.
	// When false, the "(Supports EL and secrets)" and "All fields support EL
	// and secrets" hints are removed.
	SecretsAndExpressionLanguage bool `json:"secrets_and_expression_language" mapstructure:"secrets_and_expression_language"`
}

var (
	secretsHints = []string{"(Supports EL and secrets)", "All fields support EL and secrets"}
	elHints      = []string{"(Supports EL)", "Supports EL"}
)

// DefaultFeatures returns the features of a plugin supporting everything.
func DefaultFeatures() Features {
	return Features{ExpressionLanguageOnly: true, SecretsAndExpressionLanguage: true}
}

// IsNoop reports whether Sanitize leaves documents unchanged under f.
func (f Features) IsNoop() bool {
	return f.ExpressionLanguageOnly && f.SecretsAndExpressionLanguage
}

// Sanitize rewrites every description in the tree rooted at node, in place,
// and returns node.
//
// Within one description the EL hints are removed before the secrets hints.
// With both flags false, "(Supports EL and secrets)" therefore loses its
// "Supports EL" part first and is left as "( and secrets)". When anything was
// removed, runs of spaces collapse to one and the text is trimmed; a
// description left empty is deleted from its object.
func Sanitize(node jsondoc.Node, f Features) jsondoc.Node {
	if f.IsNoop() {
		return node
	}
	var hints []string
	if !f.ExpressionLanguageOnly {
		hints = append(hints, elHints...)
	}
	if !f.SecretsAndExpressionLanguage {
		hints = append(hints, secretsHints...)
	}
	walk(node, hints)
	return node
}

func walk(node jsondoc.Node, hints []string) {
	switch n := node.(type) {
	case *jsondoc.Object:
		rewriteDescription(n, hints)
		n.Each(func(_ string, child jsondoc.Node) bool {
			walk(child, hints)
			return true
		})
	case *jsondoc.Array:
		for _, item := range n.Items {
			walk(item, hints)
		}
	}
}

func rewriteDescription(obj *jsondoc.Object, hints []string) {
	value, ok := obj.Get(DescriptionField)
	if !ok {
		return
	}
	text, ok := jsondoc.AsString(value)
	if !ok {
		return
	}

	cleaned, changed := Clean(text, hints)
	if !changed {
		return
	}
	if cleaned == "" {
		obj.Delete(DescriptionField)
		return
	}
	obj.Set(DescriptionField, jsondoc.String(cleaned))
}

// Clean removes every occurrence of each hint, in order, from text. When at
// least one hint was found the result has its space runs collapsed and is
// trimmed; otherwise text is returned unchanged and changed is false.
//
// Removal repeats until no hint is left, so phrases that only appear once a
// surrounding hint is cut out are removed too and Clean(Clean(x)) == Clean(x).
func Clean(text string, hints []string) (cleaned string, changed bool) {
	cleaned = text
	for {
		removed := false
		for _, h := range hints {
			if strings.Contains(cleaned, h) {
				cleaned = strings.ReplaceAll(cleaned, h, "")
				removed = true
			}
		}
		if !removed {
			break
		}
		changed = true
		cleaned = strings.TrimSpace(collapseSpaces(cleaned))
	}
	if !changed {
		return text, false
	}
	return cleaned, true
}

func collapseSpaces(s string) string {
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return s
}
