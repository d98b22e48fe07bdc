package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/docnav/internal/doctree"
	"golang.org/x/sync/errgroup"
)

// BuildRecorder receives build results. internal/metrics provides one.
type BuildRecorder interface {
	IncrementBuild(err error)
}

// Builder walks a content directory and produces the structure document.
type Builder struct {
	root     string
	prefix   string
	workers  int
	log      *slog.Logger
	recorder BuildRecorder
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithRoutePrefix sets the URL prefix for generated routes (default "/docs/").
func WithRoutePrefix(prefix string) BuilderOption {
	return func(b *Builder) {
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		b.prefix = prefix
	}
}

// WithWorkers bounds the number of pages parsed concurrently.
func WithWorkers(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithBuildLogger sets the logger.
func WithBuildLogger(log *slog.Logger) BuilderOption {
	return func(b *Builder) { b.log = log }
}

// WithBuildRecorder attaches a build metrics recorder.
func WithBuildRecorder(r BuildRecorder) BuilderOption {
	return func(b *Builder) { b.recorder = r }
}

// NewBuilder creates a builder rooted at the content directory root.
func NewBuilder(root string, opts ...BuilderOption) *Builder {
	b := &Builder{
		root:    root,
		prefix:  "/docs/",
		workers: 4,
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Root returns the content directory.
func (b *Builder) Root() string { return b.root }

// pending is a content file whose title and metadata are read after the walk.
type pending struct {
	node *doctree.Node
	file string // absolute path
	rel  string // slash path relative to root, for errors
}

// Build walks the content directory. Folders become directories, supported
// files become files. An index page, or a page named like its folder next to
// it, gives the folder a route, title and metadata instead of appearing as a
// node of its own. Hidden entries and names starting
// with "_" are skipped, as are folders left with neither children nor index.
func (b *Builder) Build(ctx context.Context) ([]*doctree.Node, error) {
	info, err := os.Stat(b.root)
	if err != nil {
		return nil, fmt.Errorf("content dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content dir %s: not a directory", b.root)
	}

	var pages []*pending
	nodes, index, err := b.scanDir(b.root, "", &pages)
	if err != nil {
		return nil, err
	}
	if index != nil {
		// The root index has no folder to attach to; it is the landing page.
		index.node.Kind = doctree.KindFile
		index.node.Path = "index"
		index.node.Route = b.prefix
		nodes = append([]*doctree.Node{index.node}, nodes...)
		pages = append(pages, index)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for _, p := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return b.readPage(p)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if nodes == nil {
		nodes = []*doctree.Node{}
	}
	return nodes, nil
}

// BuildJSON builds and encodes the structure document.
func (b *Builder) BuildJSON(ctx context.Context) ([]byte, error) {
	start := time.Now()
	nodes, err := b.Build(ctx)
	if err == nil {
		var data []byte
		data, err = json.MarshalIndent(nodes, "", "  ")
		if err == nil {
			if b.recorder != nil {
				b.recorder.IncrementBuild(nil)
			}
			b.log.Info("structure built", "root", b.root, "nodes", doctree.Count(nodes), "duration_ms", time.Since(start).Milliseconds())
			return data, nil
		}
		err = fmt.Errorf("encode structure: %w", err)
	}
	if b.recorder != nil {
		b.recorder.IncrementBuild(err)
	}
	b.log.Error("structure build failed", "root", b.root, "error", err)
	return nil, err
}

// Rebuild builds the structure and stores it in doc. On failure doc keeps its
// previous contents.
func (b *Builder) Rebuild(ctx context.Context, doc *Document) error {
	data, err := b.BuildJSON(ctx)
	if err != nil {
		return err
	}
	return doc.Set(data)
}

func (b *Builder) scanDir(abs, rel string, pages *[]*pending) ([]*doctree.Node, *pending, error) {
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, nil, fmt.Errorf("read dir %s: %w", displayPath(rel), err)
	}

	var nodes []*doctree.Node
	var index *pending
	seen := make(map[string]string)
	dirs := make(map[string]*doctree.Node)
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		childAbs := filepath.Join(abs, name)
		childRel := path.Join(rel, name)

		if e.IsDir() {
			children, dirIndex, err := b.scanDir(childAbs, childRel, pages)
			if err != nil {
				return nil, nil, err
			}
			if len(children) == 0 && dirIndex == nil {
				continue
			}
			dir := &doctree.Node{
				Title:    Humanize(name),
				Kind:     doctree.KindDirectory,
				Path:     childRel,
				Children: children,
			}
			if dirIndex != nil {
				dir.Route = b.prefix + childRel
				dirIndex.node = dir
				*pages = append(*pages, dirIndex)
			}
			dirs[name] = dir
			seen[childRel] = childRel + "/"
			nodes = append(nodes, dir)
			continue
		}

		if !IsSupportedExtension(name) {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		stem := strings.TrimSuffix(name, filepath.Ext(name))

		if pageExtensions[ext] && strings.EqualFold(stem, "index") {
			if index != nil {
				return nil, nil, fmt.Errorf("%s: more than one index page", displayPath(rel))
			}
			index = &pending{node: &doctree.Node{Title: Humanize(stem)}, file: childAbs, rel: childRel}
			continue
		}

		nodePath := childRel
		route := b.prefix + childRel
		if pageExtensions[ext] {
			nodePath = path.Join(rel, stem)
			route = b.prefix + nodePath

			// A page named like a sibling folder is that folder's page, the
			// same as its index. ReadDir sorts "guides" before "guides.md".
			if dir, ok := dirs[stem]; ok {
				if dir.Route != "" {
					return nil, nil, fmt.Errorf("%s: folder %s already has a page", childRel, nodePath)
				}
				dir.Route = route
				*pages = append(*pages, &pending{node: dir, file: childAbs, rel: childRel})
				continue
			}
		}
		if other, dup := seen[nodePath]; dup {
			return nil, nil, fmt.Errorf("%s and %s both map to path %q", other, childRel, nodePath)
		}
		seen[nodePath] = childRel

		n := &doctree.Node{
			Title: Humanize(name),
			Kind:  doctree.KindFile,
			Path:  nodePath,
			Route: route,
		}
		nodes = append(nodes, n)
		*pages = append(*pages, &pending{node: n, file: childAbs, rel: childRel})
	}
	return nodes, index, nil
}

func (b *Builder) readPage(p *pending) error {
	parser, err := ForFile(p.file)
	if err != nil {
		return fmt.Errorf("%s: %w", p.rel, err)
	}
	f, err := os.Open(p.file)
	if err != nil {
		return fmt.Errorf("open %s: %w", p.rel, err)
	}
	defer f.Close()

	page, err := parser.Parse(f, filepath.Base(p.file))
	if err != nil {
		return fmt.Errorf("parse %s: %w", p.rel, err)
	}
	if page.Title != "" {
		p.node.Title = page.Title
	}
	if len(page.Metadata) > 0 {
		p.node.Metadata = page.Metadata
	}
	return nil
}

func displayPath(rel string) string {
	if rel == "" {
		return "."
	}
	return rel
}
