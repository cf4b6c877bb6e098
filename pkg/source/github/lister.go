// Package github implements the folder-listing contract against a
// git-hosted code store via the repository contents REST API.
//
// Unlike drive backends, one folder is one round trip: the contents API
// returns the full child set in a single response, so there is no page
// loop. Rate-limited responses are retried in place honoring Retry-After.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/arborlabs/arbor/pkg/source"
)

// Defaults for contents API behavior.
const (
	// DefaultBaseURL is the public API endpoint.
	DefaultBaseURL = "https://api.github.com"

	// DefaultMaxAttempts bounds retries of a rate-limited request.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay applies when a rate-limited response carries no
	// Retry-After hint.
	DefaultRetryDelay = 5 * time.Second

	// DefaultHTTPTimeout applies when no HTTP client is supplied.
	DefaultHTTPTimeout = 30 * time.Second
)

// Config configures a contents-API lister.
type Config struct {
	// BaseURL overrides the API endpoint (tests, GitHub Enterprise).
	// Default: DefaultBaseURL.
	BaseURL string

	// TokenSource supplies bearer tokens. Optional: public repositories
	// can be listed unauthenticated, at a much lower rate limit.
	TokenSource oauth2.TokenSource

	// HTTPClient is the client used for requests.
	// Default: a client with DefaultHTTPTimeout.
	HTTPClient *http.Client

	// Ref is the branch, tag, or commit to read from.
	// Empty uses the repository's default branch.
	Ref string

	// MaxAttempts bounds retries of one rate-limited request.
	// Default: DefaultMaxAttempts.
	MaxAttempts int

	// RetryDelay applies when a rate-limited response has no
	// Retry-After hint. Default: DefaultRetryDelay.
	RetryDelay time.Duration
}

// Lister implements source.Lister and source.Stater for a git-hosted
// code store. The root handle is an "owner/repo" pair; root.Path anchors
// the tree at a directory inside the repository.
type Lister struct {
	baseURL     string
	tokens      oauth2.TokenSource
	client      *http.Client
	ref         string
	maxAttempts int
	retryDelay  time.Duration
}

// Ensure Lister implements the interfaces.
var (
	_ source.Lister = (*Lister)(nil)
	_ source.Stater = (*Lister)(nil)
)

// New creates a contents-API lister from the given configuration.
func New(cfg Config) *Lister {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}

	return &Lister{
		baseURL:     strings.TrimRight(baseURL, "/"),
		tokens:      cfg.TokenSource,
		client:      client,
		ref:         cfg.Ref,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
	}
}

// contentEntry is one row of a contents API response.
type contentEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ListFolder returns the immediate children of root.Path + relPath.
//
// A response describing a single file (rather than a directory listing)
// means the addressed path is not a folder and maps to not-found, the
// same as a missing path.
func (l *Lister) ListFolder(ctx context.Context, root source.Root, relPath string) ([]source.Child, error) {
	body, err := l.fetchContents(ctx, root, relPath)
	if err != nil {
		return nil, l.wrapError("ListFolder", root, relPath, err)
	}

	if !isJSONArray(body) {
		// Single-file payload: the path exists but is not a folder.
		return nil, l.wrapError("ListFolder", root, relPath, source.ErrNotFound)
	}

	var entries []contentEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, l.wrapError("ListFolder", root, relPath, fmt.Errorf("decode listing: %w", err))
	}

	children := make([]source.Child, 0, len(entries))
	for _, e := range entries {
		switch e.Type {
		case "dir":
			children = append(children, source.Child{Path: relPath + "/" + e.Name})
		case "file":
			children = append(children, source.Child{Path: relPath + "/" + e.Name, File: true})
		default:
			// Symlinks and submodules are neither expandable nor
			// servable content; they are omitted from the tree.
		}
	}
	return children, nil
}

// Stat resolves a single path: files resolve as file children,
// directories as folder children.
func (l *Lister) Stat(ctx context.Context, root source.Root, relPath string) (*source.Child, error) {
	body, err := l.fetchContents(ctx, root, relPath)
	if err != nil {
		return nil, l.wrapError("Stat", root, relPath, err)
	}

	if isJSONArray(body) {
		return &source.Child{Path: relPath}, nil
	}

	var entry contentEntry
	if err := json.Unmarshal(body, &entry); err != nil {
		return nil, l.wrapError("Stat", root, relPath, fmt.Errorf("decode entry: %w", err))
	}
	if entry.Type != "file" {
		return nil, l.wrapError("Stat", root, relPath, source.ErrNotFound)
	}
	return &source.Child{Path: relPath, File: true}, nil
}

// fetchContents performs the contents request, retrying while rate limited.
func (l *Lister) fetchContents(ctx context.Context, root source.Root, relPath string) ([]byte, error) {
	reqURL, err := l.contentsURL(root, relPath)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		body, retryable, delay, err := l.doRequest(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		if attempt >= l.maxAttempts {
			return nil, fmt.Errorf("%w: gave up after %d attempts: %v", source.ErrThrottled, attempt, err)
		}

		if delay <= 0 {
			delay = l.retryDelay
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Lister) doRequest(ctx context.Context, reqURL string) (body []byte, retryable bool, delay time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, 0, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if l.tokens != nil {
		tok, err := l.tokens.Token()
		if err != nil {
			return nil, false, 0, fmt.Errorf("%w: %v", source.ErrInvalidCredentials, err)
		}
		tok.SetAuthHeader(req)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, false, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, 0, err
		}
		return data, false, 0, nil

	case http.StatusNotFound:
		return nil, false, 0, source.ErrNotFound

	case http.StatusUnauthorized:
		return nil, false, 0, source.ErrInvalidCredentials

	case http.StatusForbidden, http.StatusTooManyRequests:
		// 403 doubles as both permission denial and the primary rate
		// limit; only responses carrying a rate-limit signal retry.
		if hint := resp.Header.Get("Retry-After"); hint != "" {
			secs, _ := strconv.Atoi(hint)
			return nil, true, time.Duration(secs) * time.Second, fmt.Errorf("status %d", resp.StatusCode)
		}
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return nil, true, 0, fmt.Errorf("status %d: rate limit exhausted", resp.StatusCode)
		}
		return nil, false, 0, source.ErrAccessDenied

	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, false, 0, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}

// contentsURL builds the contents endpoint for root.Path + relPath.
func (l *Lister) contentsURL(root source.Root, relPath string) (string, error) {
	if root.ID == "" || !strings.Contains(root.ID, "/") {
		return "", fmt.Errorf("root ID must be an owner/repo pair, got %q", root.ID)
	}

	repoPath := strings.Trim(strings.TrimRight(root.Path, "/")+relPath, "/")
	segments := strings.Split(repoPath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	u := fmt.Sprintf("%s/repos/%s/contents/%s", l.baseURL, root.ID, strings.Join(segments, "/"))
	if l.ref != "" {
		u += "?ref=" + url.QueryEscape(l.ref)
	}
	return u, nil
}

// isJSONArray reports whether the payload's first token opens an array.
func isJSONArray(body []byte) bool {
	trimmed := strings.TrimLeft(string(body), " \t\r\n")
	return strings.HasPrefix(trimmed, "[")
}

// wrapError converts failures to source errors with listing context.
func (l *Lister) wrapError(op string, root source.Root, relPath string, err error) error {
	return &source.SourceError{
		Op:      op,
		Backend: source.BackendGitHub,
		Root:    root.ID,
		Path:    relPath,
		Err:     err,
	}
}
