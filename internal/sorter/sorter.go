// Package sorter imposes the display order on a documentation tree.
package sorter

import (
	"cmp"
	"slices"
	"strings"

	"github.com/dgallion1/docnav/internal/doctree"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultPriority is used for names missing from the priority table.
const DefaultPriority = 999

var priorities = map[string]int{
	"getting-started": 1,
	"introduction":    2,
	"installation":    3,
	"quickstart":      4,
	"components":      10,
	"hooks":           15,
	"api":             20,
	"examples":        30,
	"guides":          40,
	"advanced":        50,
	"reference":       60,
	"legal":           70,
	"changelog":       100,
	"faq":             110,
}

// Priority returns the sort priority for a final path segment.
func Priority(name string) int {
	if p, ok := priorities[strings.ToLower(name)]; ok {
		return p
	}
	return DefaultPriority
}

// Sort returns a copy of nodes with every sibling group ordered by:
// explicit metadata.order, name priority, directories before files, then
// title. The input tree is left untouched.
func Sort(nodes []*doctree.Node) []*doctree.Node {
	s := &sorter{col: collate.New(language.English)}
	return s.level(nodes)
}

// Compare orders two siblings using the same rules as Sort.
func Compare(a, b *doctree.Node) int {
	s := &sorter{col: collate.New(language.English)}
	return s.compare(a, b)
}

// sorter holds a collator, which is not safe for concurrent use.
type sorter struct {
	col *collate.Collator
}

func (s *sorter) level(nodes []*doctree.Node) []*doctree.Node {
	if nodes == nil {
		return nil
	}
	out := make([]*doctree.Node, len(nodes))
	for i, n := range nodes {
		c := n.Clone()
		c.Children = s.level(n.Children)
		out[i] = c
	}
	slices.SortFunc(out, s.compare)
	return out
}

func (s *sorter) compare(a, b *doctree.Node) int {
	ao, aok := a.Order()
	bo, bok := b.Order()
	switch {
	case aok && bok:
		if c := cmp.Compare(ao, bo); c != 0 {
			return c
		}
	case aok:
		return -1
	case bok:
		return 1
	}

	if c := cmp.Compare(Priority(a.Name()), Priority(b.Name())); c != 0 {
		return c
	}

	if a.Kind != b.Kind {
		if a.IsDir() {
			return -1
		}
		if b.IsDir() {
			return 1
		}
	}

	if c := s.col.CompareString(a.Title, b.Title); c != 0 {
		return c
	}
	// Collation can equate distinct strings; fall back to bytes, then to the
	// sibling-unique path so the order is total.
	if c := cmp.Compare(a.Title, b.Title); c != 0 {
		return c
	}
	return cmp.Compare(a.Path, b.Path)
}
