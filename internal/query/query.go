// Package query answers read-only questions against one published snapshot of
// the documentation tree. Every operation is synchronous, never mutates the
// tree and is total: a miss is an empty result, not an error.
package query

import (
	"strings"

	"github.com/dgallion1/docnav/internal/doctree"
)

// DefaultPrefix is stripped from URLs before breadcrumb matching.
const DefaultPrefix = "/docs/"

// InertHref is used for breadcrumb items without a route.
const InertHref = "#"

// Crumb is one breadcrumb item.
type Crumb struct {
	Title   string `json:"title"`
	Href    string `json:"href"`
	Current bool   `json:"current,omitempty"`
}

// Snapshot is an immutable, sorted documentation tree.
type Snapshot struct {
	roots  []*doctree.Node
	prefix string
}

// Option configures a Snapshot.
type Option func(*Snapshot)

// WithPrefix overrides the documentation URL prefix.
func WithPrefix(prefix string) Option {
	return func(s *Snapshot) { s.prefix = prefix }
}

// New wraps an already validated and sorted tree. The caller must not modify
// roots afterwards.
func New(roots []*doctree.Node, opts ...Option) *Snapshot {
	s := &Snapshot{roots: roots, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Roots returns the top-level nodes in display order.
func (s *Snapshot) Roots() []*doctree.Node {
	if s == nil {
		return nil
	}
	return s.roots
}

// Len returns the total number of nodes.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return doctree.Count(s.roots)
}

// FindByPath returns the first node, in pre-order, whose path equals p.
func (s *Snapshot) FindByPath(p string) (*doctree.Node, bool) {
	var found *doctree.Node
	doctree.Walk(s.Roots(), func(n *doctree.Node) bool {
		if n.Path == p {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

// AllFiles returns every file node in display (pre-order) order.
// Directories are never included, even when they carry a route.
func (s *Snapshot) AllFiles() []*doctree.Node {
	files := []*doctree.Node{}
	doctree.Walk(s.Roots(), func(n *doctree.Node) bool {
		if n.IsFile() {
			files = append(files, n)
		}
		return true
	})
	return files
}

// Breadcrumb returns the root-to-page chain for a URL, or an empty slice when
// no node matches. A node ends the trail when its route names the same page
// as the URL, compared literally apart from query, fragment and trailing
// slash. A directory is descended into only when its path is a strict
// segment-wise prefix of the URL with the documentation prefix stripped, so a
// URL without the prefix generally matches nothing.
func (s *Snapshot) Breadcrumb(url string) []Crumb {
	want := cleanURL(url)
	trail := s.trail(s.Roots(), want, doctree.SplitPath(s.stripPrefix(want)), nil)

	crumbs := make([]Crumb, len(trail))
	for i, n := range trail {
		href := n.Route
		if href == "" {
			href = InertHref
		}
		crumbs[i] = Crumb{Title: n.Title, Href: href, Current: i == len(trail)-1}
	}
	return crumbs
}

func (s *Snapshot) trail(nodes []*doctree.Node, want string, segs []string, acc []*doctree.Node) []*doctree.Node {
	for _, n := range nodes {
		// Full slice expression so sibling branches never share a backing array.
		path := append(acc[:len(acc):len(acc)], n)
		if n.Route != "" && cleanURL(n.Route) == want {
			return path
		}
		if n.IsDir() && isStrictPrefix(n.Segments(), segs) {
			if found := s.trail(n.Children, want, segs, path); found != nil {
				return found
			}
		}
	}
	return nil
}

// Pager returns the files before and after the page at url in display order.
// Files without a route are skipped because they cannot be linked.
func (s *Snapshot) Pager(url string) (prev, next *doctree.Node) {
	want := cleanURL(url)
	var linked []*doctree.Node
	for _, f := range s.AllFiles() {
		if f.Route != "" {
			linked = append(linked, f)
		}
	}
	for i, f := range linked {
		if cleanURL(f.Route) != want {
			continue
		}
		if i > 0 {
			prev = linked[i-1]
		}
		if i+1 < len(linked) {
			next = linked[i+1]
		}
		return prev, next
	}
	return nil, nil
}

// cleanURL drops any query or fragment and a trailing slash.
func cleanURL(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	if len(url) > 1 {
		url = strings.TrimSuffix(url, "/")
	}
	return url
}

// stripPrefix removes the documentation prefix from a cleaned URL. URLs
// without the prefix are returned unchanged.
func (s *Snapshot) stripPrefix(url string) string {
	prefix := DefaultPrefix
	if s != nil {
		prefix = s.prefix
	}
	if prefix != "" && strings.HasPrefix(url, prefix) {
		return url[len(prefix):]
	}
	return url
}

func isStrictPrefix(prefix, segs []string) bool {
	if len(prefix) == 0 || len(prefix) >= len(segs) {
		return false
	}
	for i, p := range prefix {
		if segs[i] != p {
			return false
		}
	}
	return true
}
