package msgraph

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/arborlabs/arbor/pkg/source"
)

// Defaults for Graph listing behavior.
const (
	// DefaultBaseURL is the Microsoft Graph v1.0 endpoint.
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"

	// DefaultMaxAttempts bounds retries of a single page request while
	// the service is throttling.
	DefaultMaxAttempts = 5

	// DefaultRetryDelay seeds the fallback backoff used when a throttled
	// response carries no Retry-After hint.
	DefaultRetryDelay = 2 * time.Second

	// DefaultHTTPTimeout applies when no HTTP client is supplied.
	DefaultHTTPTimeout = 30 * time.Second
)

// SessionFunc acquires a per-listing session token (for example a
// workbook session). It is invoked once per ListFolder call; the token
// is attached to every page request of that listing, never renegotiated
// per page.
type SessionFunc func(ctx context.Context, root source.Root) (string, error)

// Config configures a Graph drive lister.
type Config struct {
	// BaseURL overrides the Graph endpoint (tests, sovereign clouds).
	// Default: DefaultBaseURL.
	BaseURL string

	// TokenSource supplies bearer tokens. Required. Token acquisition
	// and refresh are the caller's concern.
	TokenSource oauth2.TokenSource

	// HTTPClient is the client used for page requests.
	// Default: a client with DefaultHTTPTimeout.
	HTTPClient *http.Client

	// MaxAttempts bounds retries of one page request under throttling.
	// Exceeding it surfaces as a throttled listing failure.
	// Default: DefaultMaxAttempts.
	MaxAttempts int

	// RetryDelay seeds the fallback backoff when a throttled response
	// has no Retry-After hint. Default: DefaultRetryDelay.
	RetryDelay time.Duration

	// RateLimit is the maximum page requests per second issued by this
	// lister. Zero means unlimited (the service's own throttling is the
	// only brake).
	RateLimit float64

	// Session, when set, is called once per ListFolder to obtain a
	// session token attached to each page request.
	Session SessionFunc
}

// Validate checks the configuration for required fields.
func (c Config) Validate() error {
	if c.TokenSource == nil {
		return fmt.Errorf("msgraph: token source is required")
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("msgraph: max attempts must not be negative")
	}
	return nil
}
