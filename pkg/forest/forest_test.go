package forest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborlabs/arbor/pkg/source"
)

// fakeLister implements source.Lister over an in-memory tree.
type fakeLister struct {
	children map[string][]source.Child
	errs     map[string]error

	calls atomic.Int64
}

func (f *fakeLister) ListFolder(ctx context.Context, root source.Root, relPath string) ([]source.Child, error) {
	f.calls.Add(1)
	if err, ok := f.errs[relPath]; ok {
		return nil, err
	}
	children, ok := f.children[relPath]
	if !ok {
		return nil, source.ErrNotFound
	}
	return children, nil
}

// newFixtureLister builds the shared fixture tree:
//
//	/zoo                 file
//	/foo/file1           file
//	/foo/explicit        file
//	/foo/sub/file1       file
//	/bar                 listing fails ("boom")
//	/products/generic/p1 file
//	/products/missing    resolves to not-found
//	/empty               folder with no children
func newFixtureLister() *fakeLister {
	return &fakeLister{
		children: map[string][]source.Child{
			"": {
				{Path: "/zoo", File: true},
				{Path: "/foo"},
				{Path: "/bar"},
				{Path: "/products"},
				{Path: "/empty"},
			},
			"/foo": {
				{Path: "/foo/file1", File: true},
				{Path: "/foo/explicit", File: true},
				{Path: "/foo/sub"},
			},
			"/foo/sub": {
				{Path: "/foo/sub/file1", File: true},
			},
			"/products": {
				{Path: "/products/generic"},
				{Path: "/products/missing"},
			},
			"/products/generic": {
				{Path: "/products/generic/p1", File: true},
			},
			"/empty": {},
		},
		errs: map[string]error{
			"/bar": errors.New("boom"),
		},
	}
}

func testRoot() source.Root {
	return source.Root{ID: "fixture"}
}

func mustForest(t *testing.T, l source.Lister) *Forest {
	t.Helper()
	f, err := New(l)
	require.NoError(t, err)
	return f
}

func TestNew_NilLister(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNoLister)
}

func TestGenerate_RootIDRequired(t *testing.T) {
	f := mustForest(t, newFixtureLister())
	_, err := f.Generate(context.Background(), source.Root{}, []string{"/foo/*"}, nil)
	assert.Error(t, err)
}

func TestGenerate_InvalidSpec(t *testing.T) {
	f := mustForest(t, newFixtureLister())

	for _, spec := range []string{"", "foo/bar", "relative/*"} {
		_, err := f.Generate(context.Background(), testRoot(), []string{spec}, nil)
		assert.ErrorIs(t, err, ErrInvalidSpec, "spec %q", spec)
	}
}

func TestGenerate_RecursiveSpec(t *testing.T) {
	f := mustForest(t, newFixtureLister())

	entries, err := f.Generate(context.Background(), testRoot(), []string{"/foo/*"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Path: "/foo/explicit", File: true},
		{Path: "/foo/file1", File: true},
		{Path: "/foo/sub/file1", File: true},
	}, entries)
}

func TestGenerate_BranchError(t *testing.T) {
	f := mustForest(t, newFixtureLister())

	entries, err := f.Generate(context.Background(), testRoot(), []string{"/bar/*"}, nil)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "/bar/*", entries[0].Path)
	assert.Equal(t, 500, entries[0].Status)
	assert.Equal(t, "boom", entries[0].Error)
}

func TestGenerate_ExplicitFile(t *testing.T) {
	f := mustForest(t, newFixtureLister())

	entries, err := f.Generate(context.Background(), testRoot(), []string{"/foo/explicit"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Path: "/foo/explicit", File: true}}, entries)
}

func TestGenerate_ExplicitNotFound(t *testing.T) {
	f := mustForest(t, newFixtureLister())

	entries, err := f.Generate(context.Background(), testRoot(), []string{"/foo/explicit-notfound"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Path: "/foo/explicit-notfound", Status: 404}}, entries)
}

func TestGenerate_ExplicitFolderIsNotFound(t *testing.T) {
	// Folders are expanded, never listed: an explicit spec naming a
	// folder resolves to 404.
	f := mustForest(t, newFixtureLister())

	entries, err := f.Generate(context.Background(), testRoot(), []string{"/foo/sub"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Path: "/foo/sub", Status: 404}}, entries)
}

func TestGenerate_MissingParent(t *testing.T) {
	f := mustForest(t, newFixtureLister())

	entries, err := f.Generate(context.Background(), testRoot(), []string{"/products/missing/folder"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Path: "/products/missing/folder", Status: 404}}, entries)
}

func TestGenerate_RecursiveNotFound(t *testing.T) {
	f := mustForest(t, newFixtureLister())

	entries, err := f.Generate(context.Background(), testRoot(), []string{"/products/missing/*"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Path: "/products/missing/*", Status: 404}}, entries)
}

func TestGenerate_EmptyFolder(t *testing.T) {
	// An empty expansion still yields one outcome for the spec.
	f := mustForest(t, newFixtureLister())

	entries, err := f.Generate(context.Background(), testRoot(), []string{"/empty/*"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Path: "/empty/*", Status: 404}}, entries)
}

func TestGenerate_ErrorIsolation(t *testing.T) {
	// A failing branch must not prevent sibling specs from completing.
	f := mustForest(t, newFixtureLister())

	entries, err := f.Generate(context.Background(), testRoot(), []string{"/bar/*", "/foo/*"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Path: "/bar/*", Status: 500, Error: "boom"},
		{Path: "/foo/explicit", File: true},
		{Path: "/foo/file1", File: true},
		{Path: "/foo/sub/file1", File: true},
	}, entries)
}

func TestGenerate_NestedBranchErrorIsolation(t *testing.T) {
	// An error below the spec root is attributed to the failing branch,
	// not the spec, and siblings under the same spec still resolve.
	l := newFixtureLister()
	l.children["/products/generic"] = []source.Child{
		{Path: "/products/generic/p1", File: true},
		{Path: "/products/generic/broken"},
	}
	l.errs["/products/generic/broken"] = errors.New("denied")

	f := mustForest(t, l)
	entries, err := f.Generate(context.Background(), testRoot(), []string{"/products/generic/*"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Path: "/products/generic/broken/*", Status: 500, Error: "denied"},
		{Path: "/products/generic/p1", File: true},
	}, entries)
}

func TestGenerate_DuplicatePathsCollapse(t *testing.T) {
	// The same file arriving via an explicit spec and a wildcard spec
	// yields exactly one row, and the file row wins.
	f := mustForest(t, newFixtureLister())

	entries, err := f.Generate(context.Background(), testRoot(), []string{"/foo/explicit", "/foo/*"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Path: "/foo/explicit", File: true},
		{Path: "/foo/file1", File: true},
		{Path: "/foo/sub/file1", File: true},
	}, entries)

	seen := make(map[string]bool)
	for _, e := range entries {
		assert.False(t, seen[e.Path], "duplicate path %s", e.Path)
		seen[e.Path] = true
	}
}

func TestGenerate_CoverageEverySpec(t *testing.T) {
	// Every input spec contributes at least one attributable row.
	f := mustForest(t, newFixtureLister())

	specs := []string{"/zoo", "/foo/*", "/bar/*", "/nope", "/empty/*"}
	entries, err := f.Generate(context.Background(), testRoot(), specs, nil)
	require.NoError(t, err)

	byPath := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byPath[e.Path] = e
	}

	assert.True(t, byPath["/zoo"].File)
	assert.Equal(t, 500, byPath["/bar/*"].Status)
	assert.Equal(t, 404, byPath["/nope"].Status)
	assert.Equal(t, 404, byPath["/empty/*"].Status)
	assert.True(t, byPath["/foo/file1"].File)
}

func TestGenerate_Deterministic(t *testing.T) {
	f := mustForest(t, newFixtureLister())
	specs := []string{"/foo/*", "/products/*", "/zoo", "/bar/*"}

	first, err := f.Generate(context.Background(), testRoot(), specs, nil)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		entries, err := f.Generate(context.Background(), testRoot(), specs, nil)
		require.NoError(t, err)
		assert.Equal(t, first, entries, "iteration %d", i)
	}

	for i := 1; i < len(first); i++ {
		assert.LessOrEqual(t, first[i-1].Path, first[i].Path, "sort invariant")
	}
}

func TestGenerate_CancelledBeforeFirstCall(t *testing.T) {
	l := newFixtureLister()
	f := mustForest(t, l)

	entries, err := f.Generate(context.Background(), testRoot(), []string{"/foo/*"}, func() bool { return false })
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, l.calls.Load(), "no remote calls after cancellation")
}

func TestGenerate_ContextCancelled(t *testing.T) {
	l := newFixtureLister()
	f := mustForest(t, l)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries, err := f.Generate(ctx, testRoot(), []string{"/foo/*", "/zoo"}, nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, l.calls.Load())
}

func TestGenerate_CancelMidCrawl(t *testing.T) {
	// Cancellation is snapshot-and-stop: rows collected before the stop
	// signal are retained, and no listing call is issued afterwards.
	l := newFixtureLister()
	f := mustForest(t, l)

	var polls atomic.Int64
	keepGoing := func() bool {
		return polls.Add(1) <= 1
	}

	entries, err := f.Generate(context.Background(), testRoot(), []string{"/foo/*"}, keepGoing)
	require.NoError(t, err)

	// Exactly one listing (the /foo root) was allowed; its files were
	// collected, its subfolder expansion was not.
	assert.Equal(t, int64(1), l.calls.Load())
	assert.Equal(t, []Entry{
		{Path: "/foo/explicit", File: true},
		{Path: "/foo/file1", File: true},
	}, entries)
}

// barrierLister releases ListFolder calls only once two of them are
// in flight, proving sibling branches fan out concurrently.
type barrierLister struct {
	inner   *fakeLister
	arrived chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *barrierLister) ListFolder(ctx context.Context, root source.Root, relPath string) ([]source.Child, error) {
	if relPath == "/left" || relPath == "/right" {
		b.arrived <- struct{}{}
		select {
		case <-b.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return b.inner.ListFolder(ctx, root, relPath)
}

func TestGenerate_SiblingBranchesRunConcurrently(t *testing.T) {
	inner := &fakeLister{
		children: map[string][]source.Child{
			"": {
				{Path: "/left"},
				{Path: "/right"},
			},
			"/left":  {{Path: "/left/a", File: true}},
			"/right": {{Path: "/right/b", File: true}},
		},
	}
	b := &barrierLister{
		inner:   inner,
		arrived: make(chan struct{}, 2),
		release: make(chan struct{}),
	}

	go func() {
		for i := 0; i < 2; i++ {
			<-b.arrived
		}
		close(b.release)
	}()

	f := mustForest(t, b)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, err := f.Generate(ctx, testRoot(), []string{"/*"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Path: "/left/a", File: true},
		{Path: "/right/b", File: true},
	}, entries)
}

// statLister implements the optional point-lookup capability.
type statLister struct {
	fakeLister
	stats    map[string]*source.Child
	statErrs map[string]error

	statCalls atomic.Int64
}

func (s *statLister) Stat(ctx context.Context, root source.Root, relPath string) (*source.Child, error) {
	s.statCalls.Add(1)
	if err, ok := s.statErrs[relPath]; ok {
		return nil, err
	}
	if child, ok := s.stats[relPath]; ok {
		return child, nil
	}
	return nil, source.ErrNotFound
}

func TestGenerate_ExplicitSpecsUseStater(t *testing.T) {
	l := &statLister{
		stats: map[string]*source.Child{
			"/doc.md": {Path: "/doc.md", File: true},
			"/dir":    {Path: "/dir"},
		},
		statErrs: map[string]error{
			"/flaky": errors.New("connection reset"),
		},
	}

	f := mustForest(t, l)
	entries, err := f.Generate(context.Background(), testRoot(), []string{"/doc.md", "/dir", "/gone", "/flaky"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Path: "/dir", Status: 404},
		{Path: "/doc.md", File: true},
		{Path: "/flaky", Status: 500, Error: "connection reset"},
		{Path: "/gone", Status: 404},
	}, entries)

	assert.Equal(t, int64(4), l.statCalls.Load())
	assert.Zero(t, l.calls.Load(), "no parent listings when Stat is available")
}
