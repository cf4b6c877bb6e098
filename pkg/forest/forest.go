// Package forest implements the recursive, backend-agnostic tree crawler.
//
// A Forest turns a list of path specs - explicit paths like "/foo/readme"
// and recursive specs like "/foo/*" - into a flat, sorted inventory of
// resolved entries. Folder listings are delegated to a source.Lister;
// the Forest owns recursion, fan-out, error isolation, and cancellation.
//
// Branch failures never fail the crawl: a listing error on one sub-path
// downgrades to a row-level 500 entry while sibling branches proceed.
// Only configuration errors (nil lister, malformed specs) reject a
// Generate call.
package forest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/arborlabs/arbor/pkg/source"
)

// Errors returned by Forest operations.
var (
	// ErrNoLister is returned when a Forest is constructed or invoked
	// without a concrete listing backend. This is a wiring bug, not a
	// data condition, and fails loudly.
	ErrNoLister = errors.New("forest: no lister configured")

	// ErrInvalidSpec is returned for path specs that are not slash-rooted.
	ErrInvalidSpec = errors.New("forest: invalid path spec")
)

// CancelCheck is polled immediately before every remote listing call.
// Returning false abandons the entire crawl: no further remote calls are
// issued anywhere, and Generate returns the entries collected so far.
// A nil CancelCheck never cancels.
type CancelCheck func() bool

// Forest is the recursive crawler. It is stateless across crawls and
// safe for concurrent use; each Generate call owns its own accumulator.
type Forest struct {
	lister source.Lister
}

// New creates a Forest backed by the given lister.
//
// The lister is required: the crawler has no default listing behavior,
// and constructing a Forest without one fails immediately.
func New(l source.Lister) (*Forest, error) {
	if l == nil {
		return nil, ErrNoLister
	}
	return &Forest{lister: l}, nil
}

// Generate crawls the given path specs and returns the merged inventory.
//
// Specs ending in "/*" are expanded recursively: every file transitively
// under the named folder becomes an entry. All other specs are resolved
// exactly: one row per spec, a file entry on success or a 404/500 row
// otherwise. Every input spec contributes at least one row.
//
// Independent specs and sibling folder branches are crawled concurrently;
// the only ordering guarantee is on the returned slice, which is sorted
// lexicographically by path and contains no duplicate paths.
//
// Cancellation is cooperative and global: keepGoing (and ctx) are polled
// before each listing call, and once either signals stop the crawl
// returns its snapshot without error. Generate returns a non-nil error
// only for configuration problems.
func (f *Forest) Generate(ctx context.Context, root source.Root, pathSpecs []string, keepGoing CancelCheck) ([]Entry, error) {
	if f == nil || f.lister == nil {
		return nil, ErrNoLister
	}
	if root.ID == "" {
		return nil, fmt.Errorf("forest: root ID is required")
	}
	for _, spec := range pathSpecs {
		if spec == "" || !strings.HasPrefix(spec, "/") {
			return nil, fmt.Errorf("%w: %q is not slash-rooted", ErrInvalidSpec, spec)
		}
	}

	c := &crawl{
		lister:    f.lister,
		root:      root,
		keepGoing: keepGoing,
		collector: newCollector(),
	}

	var wg sync.WaitGroup
	for _, spec := range pathSpecs {
		wg.Add(1)
		go func(spec string) {
			defer wg.Done()
			if strings.HasSuffix(spec, "/*") {
				c.expandSpec(ctx, spec)
			} else {
				c.resolveSpec(ctx, spec)
			}
		}(spec)
	}
	wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collector.entries(), nil
}

// crawl holds the per-Generate state shared by concurrently running
// branches: the stop latch and the mutex-guarded output accumulator.
type crawl struct {
	lister    source.Lister
	root      source.Root
	keepGoing CancelCheck

	stopped atomic.Bool

	mu        sync.Mutex
	collector *collector
}

// halted polls the cancellation signals and latches the stop flag.
// Once it reports true every branch stops before its next remote call.
func (c *crawl) halted(ctx context.Context) bool {
	if c.stopped.Load() {
		return true
	}
	if ctx.Err() != nil || (c.keepGoing != nil && !c.keepGoing()) {
		c.stopped.Store(true)
		return true
	}
	return false
}

func (c *crawl) add(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collector.add(e)
}

// expandSpec runs one recursive spec ("/foo/*") to completion.
//
// An expansion that produced nothing - an empty folder, or folders all
// the way down - still yields exactly one outcome: a single 404 row for
// the spec. A cancelled expansion yields only what it had collected.
func (c *crawl) expandSpec(ctx context.Context, spec string) {
	rel := strings.TrimSuffix(spec, "/*")

	var emitted atomic.Int64
	c.expand(ctx, rel, &emitted)

	if emitted.Load() == 0 && !c.stopped.Load() {
		c.add(Entry{Path: spec, Status: 404})
	}
}

// expand lists one folder and recurses into its subfolders, fanning out
// sibling branches as independent goroutines. There is no artificial
// concurrency cap; the backend's own throttling is the throttle.
func (c *crawl) expand(ctx context.Context, rel string, emitted *atomic.Int64) {
	if c.halted(ctx) {
		return
	}

	children, err := c.lister.ListFolder(ctx, c.root, rel)
	if err != nil {
		branch := rel + "/*"
		if source.IsNotFound(err) {
			c.add(Entry{Path: branch, Status: 404})
		} else {
			c.add(Entry{Path: branch, Status: 500, Error: err.Error()})
		}
		emitted.Add(1)
		return
	}

	var wg sync.WaitGroup
	for _, child := range children {
		if child.File {
			c.add(Entry{Path: child.Path, File: true})
			emitted.Add(1)
			continue
		}
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			c.expand(ctx, p, emitted)
		}(child.Path)
	}
	wg.Wait()
}

// resolveSpec resolves one explicit spec to exactly one row.
//
// When the backend supports point lookups (source.Stater) the spec is
// resolved directly; otherwise the parent folder is listed and the spec
// checked for membership. Either way only files resolve successfully -
// a spec naming a folder is not-found for inventory purposes.
func (c *crawl) resolveSpec(ctx context.Context, spec string) {
	if c.halted(ctx) {
		return
	}

	if st, ok := c.lister.(source.Stater); ok {
		child, err := st.Stat(ctx, c.root, spec)
		switch {
		case err == nil && child != nil && child.File:
			c.add(Entry{Path: spec, File: true})
		case err == nil:
			c.add(Entry{Path: spec, Status: 404})
		case source.IsNotFound(err):
			c.add(Entry{Path: spec, Status: 404})
		default:
			c.add(Entry{Path: spec, Status: 500, Error: err.Error()})
		}
		return
	}

	children, err := c.lister.ListFolder(ctx, c.root, parentPath(spec))
	if err != nil {
		if source.IsNotFound(err) {
			c.add(Entry{Path: spec, Status: 404})
		} else {
			c.add(Entry{Path: spec, Status: 500, Error: err.Error()})
		}
		return
	}

	for _, child := range children {
		if child.Path == spec {
			if child.File {
				c.add(Entry{Path: spec, File: true})
			} else {
				c.add(Entry{Path: spec, Status: 404})
			}
			return
		}
	}
	c.add(Entry{Path: spec, Status: 404})
}

// parentPath returns the listing path of the spec's parent folder:
// "/foo" for "/foo/explicit", "" for top-level entries like "/zoo".
func parentPath(spec string) string {
	idx := strings.LastIndex(spec, "/")
	if idx <= 0 {
		return ""
	}
	return spec[:idx]
}
