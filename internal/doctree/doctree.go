package doctree

import (
	"encoding/json"
	"math"
	"strings"
)

// Kind distinguishes navigable documents from the directories that group them.
type Kind string

const (
	KindDirectory Kind = "directory"
	KindFile      Kind = "file"
)

// Valid reports whether k is one of the two known kinds.
func (k Kind) Valid() bool {
	return k == KindDirectory || k == KindFile
}

// Node is one entry of the documentation structure. Directories carry
// Children; files never do once the tree has passed schema validation.
type Node struct {
	Title    string         // Display title
	Kind     Kind           // directory or file
	Path     string         // Slash-separated identifier, unique among siblings
	Route    string         // Resolved URL (optional)
	Children []*Node        // Ordered children, nil when absent
	Metadata map[string]any // Front matter, may contain "order"

	// Extra holds unknown keys from the source document so they survive a
	// decode/encode cycle.
	Extra map[string]any
}

// IsDir reports whether n is a directory.
func (n *Node) IsDir() bool { return n.Kind == KindDirectory }

// IsFile reports whether n is a file.
func (n *Node) IsFile() bool { return n.Kind == KindFile }

// Segments returns the node path split into its non-empty segments.
func (n *Node) Segments() []string {
	return SplitPath(n.Path)
}

// Name returns the final path segment, or "" for an empty path.
func (n *Node) Name() string {
	segs := n.Segments()
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// Order returns the numeric metadata.order value if one is present.
// NaN and infinities are treated as absent.
func (n *Node) Order() (float64, bool) {
	if n.Metadata == nil {
		return 0, false
	}
	var f float64
	switch v := n.Metadata["order"].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Clone returns a copy of n with its own Children slice. Grandchildren,
// Metadata and Extra are shared; trees are treated as immutable.
func (n *Node) Clone() *Node {
	c := *n
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		copy(c.Children, n.Children)
	}
	return &c
}

// SplitPath splits a slash-separated path into segments, dropping empty
// segments produced by leading, trailing or doubled slashes.
func SplitPath(p string) []string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Walk visits every node in pre-order. Returning false from fn stops the walk.
func Walk(nodes []*Node, fn func(n *Node) bool) bool {
	for _, n := range nodes {
		if !fn(n) {
			return false
		}
		if !Walk(n.Children, fn) {
			return false
		}
	}
	return true
}

// Count returns the number of nodes in the forest.
func Count(nodes []*Node) int {
	total := 0
	Walk(nodes, func(*Node) bool {
		total++
		return true
	})
	return total
}

type wireNode struct {
	Title    string         `json:"title"`
	Kind     Kind           `json:"kind"`
	Path     string         `json:"path"`
	Route    string         `json:"route,omitempty"`
	Children []*Node        `json:"children,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MarshalJSON encodes the node in the structure document format, merging
// any preserved unknown keys back in.
func (n *Node) MarshalJSON() ([]byte, error) {
	w := wireNode{
		Title:    n.Title,
		Kind:     n.Kind,
		Path:     n.Path,
		Route:    n.Route,
		Children: n.Children,
		Metadata: n.Metadata,
	}
	if len(n.Extra) == 0 {
		return json.Marshal(w)
	}
	known, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]json.RawMessage, len(n.Extra)+6)
	for k, v := range n.Extra {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		merged[k] = raw
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}
