// Package msgraph implements the folder-listing contract against
// Microsoft Graph drives (OneDrive, SharePoint document libraries).
//
// One ListFolder call may span multiple Graph pages; the lister follows
// @odata.nextLink to exhaustion and returns the accumulated child set.
// Throttled page requests (429/503) are retried in place, honoring the
// server's Retry-After hint - a numeric seconds value or an HTTP-date -
// and falling back to exponential backoff when no hint is present.
package msgraph

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

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/arborlabs/arbor/pkg/source"
)

// Lister implements source.Lister for Microsoft Graph drives.
//
// The root handle is a drive ID; root.Path anchors the virtual tree at a
// folder below the drive root. Safe for concurrent use.
type Lister struct {
	baseURL     string
	tokens      oauth2.TokenSource
	client      *http.Client
	maxAttempts int
	retryDelay  time.Duration
	limiter     *rate.Limiter
	session     SessionFunc
}

var _ source.Lister = (*Lister)(nil)

// New creates a Graph drive lister from the given configuration.
func New(cfg Config) (*Lister, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}

	l := &Lister{
		baseURL:     strings.TrimRight(baseURL, "/"),
		tokens:      cfg.TokenSource,
		client:      client,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		session:     cfg.Session,
	}
	if cfg.RateLimit > 0 {
		l.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return l, nil
}

// drivePage is one page of a children listing.
type drivePage struct {
	Value    []driveItem `json:"value"`
	NextLink string      `json:"@odata.nextLink"`
}

// driveItem carries the facets we discriminate on. Graph marks folders
// with a folder facet; everything else is treated as a file.
type driveItem struct {
	Name   string          `json:"name"`
	Folder json.RawMessage `json:"folder"`
}

// ListFolder returns the complete child set of root.Path + relPath.
//
// Pagination is internal: callers never see page boundaries. A 404 on
// the first page means the folder does not exist and maps to the
// not-found sentinel; a 404 on a later page is a hard failure (the
// continuation link went stale mid-listing).
func (l *Lister) ListFolder(ctx context.Context, root source.Root, relPath string) ([]source.Child, error) {
	if root.ID == "" {
		return nil, l.wrapError("ListFolder", root, relPath, fmt.Errorf("drive ID is required"))
	}

	var session string
	if l.session != nil {
		var err error
		session, err = l.session(ctx, root)
		if err != nil {
			return nil, l.wrapError("ListFolder", root, relPath, fmt.Errorf("acquire session: %w", err))
		}
	}

	pageURL := l.childrenURL(root, relPath)
	children := []source.Child{}
	first := true

	for pageURL != "" {
		page, err := l.fetchPage(ctx, pageURL, session)
		if err != nil {
			if source.IsNotFound(err) && !first {
				err = fmt.Errorf("continuation page returned 404")
			}
			return nil, l.wrapError("ListFolder", root, relPath, err)
		}
		for _, item := range page.Value {
			children = append(children, source.Child{
				Path: relPath + "/" + item.Name,
				File: len(item.Folder) == 0,
			})
		}
		pageURL = page.NextLink
		first = false
	}

	return children, nil
}

// childrenURL builds the first-page URL for a folder's children using
// Graph's path-based addressing.
func (l *Lister) childrenURL(root source.Root, relPath string) string {
	drivePath := strings.Trim(root.Path+relPath, "/")
	if drivePath == "" {
		return fmt.Sprintf("%s/drives/%s/root/children", l.baseURL, url.PathEscape(root.ID))
	}

	segments := strings.Split(drivePath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/drives/%s/root:/%s:/children", l.baseURL, url.PathEscape(root.ID), strings.Join(segments, "/"))
}

// fetchPage performs one paginated page request, retrying the same URL
// while the service throttles.
func (l *Lister) fetchPage(ctx context.Context, pageURL, session string) (*drivePage, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.retryDelay

	for attempt := 1; ; attempt++ {
		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		page, retryable, delay, err := l.doPage(ctx, pageURL, session)
		if err == nil {
			return page, nil
		}
		if !retryable {
			return nil, err
		}
		if attempt >= l.maxAttempts {
			return nil, fmt.Errorf("%w: gave up after %d attempts: %v", source.ErrThrottled, attempt, err)
		}

		if delay <= 0 {
			delay = bo.NextBackOff()
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

// doPage issues a single page request. It reports whether a failure is
// retryable (throttling) and the server-suggested delay, if any.
func (l *Lister) doPage(ctx context.Context, pageURL, session string) (page *drivePage, retryable bool, delay time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, false, 0, err
	}

	tok, err := l.tokens.Token()
	if err != nil {
		return nil, false, 0, fmt.Errorf("%w: %v", source.ErrInvalidCredentials, err)
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	if session != "" {
		req.Header.Set("workbook-session-id", session)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, false, 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
		var p drivePage
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			return nil, false, 0, fmt.Errorf("decode page: %w", err)
		}
		return &p, false, 0, nil

	case http.StatusNotFound:
		return nil, false, 0, source.ErrNotFound

	case http.StatusUnauthorized:
		return nil, false, 0, source.ErrInvalidCredentials

	case http.StatusForbidden:
		return nil, false, 0, source.ErrAccessDenied

	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		hint := retryAfter(resp.Header.Get("Retry-After"), time.Now())
		return nil, true, hint, fmt.Errorf("status %d", resp.StatusCode)

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, false, 0, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// retryAfter parses a Retry-After header value: either a decimal number
// of seconds or an HTTP-date. Returns 0 when absent or unparseable, or
// when the date is already in the past.
func retryAfter(header string, now time.Time) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// wrapError converts failures to source errors with listing context.
func (l *Lister) wrapError(op string, root source.Root, relPath string, err error) error {
	return &source.SourceError{
		Op:      op,
		Backend: source.BackendMSGraph,
		Root:    root.ID,
		Path:    relPath,
		Err:     err,
	}
}
