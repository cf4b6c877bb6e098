// Package roots builds source listers from named root configuration.
//
// A registry resolves the root names that manifests and API requests
// reference into a connected backend lister plus the root handle the
// forest walks.
package roots

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/arborlabs/arbor/internal/config"
	"github.com/arborlabs/arbor/pkg/source"
	"github.com/arborlabs/arbor/pkg/source/gdrive"
	"github.com/arborlabs/arbor/pkg/source/github"
	"github.com/arborlabs/arbor/pkg/source/msgraph"
	"github.com/arborlabs/arbor/pkg/source/s3"
)

// Registry resolves root names to connected listers.
//
// Listers are built lazily on first resolve and cached, so a server
// with many configured roots only connects to the ones requests use.
// Registry is safe for concurrent use; the server shares one across
// all requests.
type Registry struct {
	roots map[string]config.RootConfig

	mu sync.Mutex
	// built caches connected listers by root name, guarded by mu.
	built map[string]source.Lister
}

// New creates a registry over the given named roots.
func New(roots map[string]config.RootConfig) *Registry {
	return &Registry{
		roots: roots,
		built: make(map[string]source.Lister),
	}
}

// Names returns the configured root names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.roots))
	for name := range r.roots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the lister and root handle for a named root.
func (r *Registry) Resolve(ctx context.Context, name string) (source.Lister, source.Root, error) {
	rc, ok := r.roots[name]
	if !ok {
		return nil, source.Root{}, fmt.Errorf("unknown root %q", name)
	}

	root := source.Root{ID: rc.ID, Path: rc.Path}

	r.mu.Lock()
	defer r.mu.Unlock()

	if lister, ok := r.built[name]; ok {
		return lister, root, nil
	}

	lister, err := Build(ctx, rc)
	if err != nil {
		return nil, source.Root{}, fmt.Errorf("root %q: %w", name, err)
	}

	r.built[name] = lister
	return lister, root, nil
}

// Build connects a lister for the given root configuration.
//
// Inline roots from manifests use this directly; named roots go
// through Registry.Resolve for caching.
func Build(ctx context.Context, rc config.RootConfig) (source.Lister, error) {
	switch source.Backend(rc.Backend) {
	case source.BackendS3:
		return s3.New(ctx, s3.Config{
			Region:          rc.Region,
			Endpoint:        rc.Endpoint,
			Profile:         rc.Profile,
			AccessKeyID:     rc.AccessKeyID,
			SecretAccessKey: rc.SecretAccessKey,
			ForcePathStyle:  rc.ForcePathStyle || rc.Endpoint != "",
			RateLimit:       rc.RateLimit,
		})

	case source.BackendMSGraph:
		tokens, err := tokenSource(rc)
		if err != nil {
			return nil, err
		}
		return msgraph.New(msgraph.Config{
			BaseURL:     rc.BaseURL,
			TokenSource: tokens,
			RateLimit:   rc.RateLimit,
		})

	case source.BackendGDrive:
		var opts []option.ClientOption
		if rc.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(rc.CredentialsFile))
		}
		if rc.BaseURL != "" {
			opts = append(opts, option.WithEndpoint(rc.BaseURL))
		}
		return gdrive.New(ctx, gdrive.Config{ClientOptions: opts})

	case source.BackendGitHub:
		cfg := github.Config{
			BaseURL: rc.BaseURL,
			Ref:     rc.Ref,
		}
		if tok := githubToken(rc); tok != "" {
			cfg.TokenSource = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok})
		}
		return github.New(cfg), nil

	default:
		return nil, fmt.Errorf("unknown backend %q", rc.Backend)
	}
}

// tokenSource builds the static token source graph roots require.
func tokenSource(rc config.RootConfig) (oauth2.TokenSource, error) {
	tok := rc.Token
	if tok == "" {
		tok = os.Getenv("ARBOR_GRAPH_TOKEN")
	}
	if tok == "" {
		return nil, fmt.Errorf("backend %q requires a token", rc.Backend)
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok}), nil
}

// githubToken resolves the optional repository token.
func githubToken(rc config.RootConfig) string {
	if rc.Token != "" {
		return rc.Token
	}
	if tok := os.Getenv("ARBOR_GITHUB_TOKEN"); tok != "" {
		return tok
	}
	return os.Getenv("GITHUB_TOKEN")
}
