// Package schema validates untyped structure documents and converts them into
// doctree nodes. Validation is all-or-nothing: either every node is well formed
// and a tree is returned, or a *ValidationError lists every violation found.
package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgallion1/docnav/internal/doctree"
)

// Violation is a single structural problem at a field path such as
// "[0].children[2].title".
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (v Violation) String() string {
	return v.Field + ": " + v.Reason
}

// ValidationError reports every violation found in a structure document.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "invalid documentation structure"
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	noun := "violations"
	if len(parts) == 1 {
		noun = "violation"
	}
	return fmt.Sprintf("invalid documentation structure: %d %s: %s", len(parts), noun, strings.Join(parts, "; "))
}

// known fields of a node object; anything else is carried in Node.Extra.
var knownFields = map[string]bool{
	"title":    true,
	"kind":     true,
	"path":     true,
	"route":    true,
	"children": true,
	"metadata": true,
}

// Decode parses raw JSON and validates it. Malformed JSON is reported as a
// ValidationError with a single violation at "$".
func Decode(data []byte) ([]*doctree.Node, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ValidationError{Violations: []Violation{{Field: "$", Reason: "malformed JSON: " + err.Error()}}}
	}
	return Validate(raw)
}

// Validate checks an already-decoded JSON value against the node schema.
func Validate(raw any) ([]*doctree.Node, error) {
	v := &validator{}
	items, ok := raw.([]any)
	if !ok {
		v.add("$", "expected an array of nodes, got "+typeName(raw))
		return nil, v.err()
	}
	nodes := v.nodes(items, "")
	if err := v.err(); err != nil {
		return nil, err
	}
	return nodes, nil
}

type validator struct {
	violations []Violation
}

func (v *validator) add(field, reason string) {
	v.violations = append(v.violations, Violation{Field: field, Reason: reason})
}

func (v *validator) err() error {
	if len(v.violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: v.violations}
}

// nodes validates one sibling group. prefix is the field path of the owning
// array, e.g. "" for the top level or "[0].children".
func (v *validator) nodes(items []any, prefix string) []*doctree.Node {
	out := make([]*doctree.Node, 0, len(items))
	seen := make(map[string]int, len(items))
	for i, item := range items {
		at := prefix + "[" + strconv.Itoa(i) + "]"
		n := v.node(item, at)
		if n == nil {
			continue
		}
		if n.Path != "" {
			if first, dup := seen[n.Path]; dup {
				v.add(at+".path", fmt.Sprintf("duplicate path %q, already used by %s[%d]", n.Path, prefix, first))
			} else {
				seen[n.Path] = i
			}
		}
		out = append(out, n)
	}
	return out
}

func (v *validator) node(item any, at string) *doctree.Node {
	obj, ok := item.(map[string]any)
	if !ok {
		v.add(at, "expected an object, got "+typeName(item))
		return nil
	}

	n := &doctree.Node{}
	n.Title, _ = v.requiredString(obj, at, "title")
	n.Path, _ = v.requiredString(obj, at, "path")

	if kind, ok := v.requiredString(obj, at, "kind"); ok {
		n.Kind = doctree.Kind(kind)
		if !n.Kind.Valid() {
			v.add(at+".kind", fmt.Sprintf("must be one of %q, %q, got %q", doctree.KindDirectory, doctree.KindFile, kind))
		}
	}

	if raw, present := obj["route"]; present && raw != nil {
		if s, ok := raw.(string); ok {
			n.Route = s
		} else {
			v.add(at+".route", "must be a string, got "+typeName(raw))
		}
	}

	if raw, present := obj["metadata"]; present && raw != nil {
		if m, ok := raw.(map[string]any); ok {
			n.Metadata = m
		} else {
			v.add(at+".metadata", "must be an object, got "+typeName(raw))
		}
	}

	if raw, present := obj["children"]; present && raw != nil {
		items, ok := raw.([]any)
		switch {
		case !ok:
			v.add(at+".children", "must be an array, got "+typeName(raw))
		case len(items) == 0:
			// Empty children is the same as no children.
		case n.Kind == doctree.KindFile:
			v.add(at+".children", "files cannot have children")
		default:
			n.Children = v.nodes(items, at+".children")
		}
	}

	for k, val := range obj {
		if knownFields[k] {
			continue
		}
		if n.Extra == nil {
			n.Extra = make(map[string]any)
		}
		n.Extra[k] = val
	}
	return n
}

func (v *validator) requiredString(obj map[string]any, at, field string) (string, bool) {
	raw, present := obj[field]
	if !present {
		v.add(at+"."+field, "required field is missing")
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		v.add(at+"."+field, "must be a string, got "+typeName(raw))
		return "", false
	}
	return s, true
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, float32, int, int64, json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
