package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/arborlabs/arbor/internal/errors"
	"github.com/arborlabs/arbor/internal/observability"
	"github.com/arborlabs/arbor/internal/server/middleware"
	"github.com/arborlabs/arbor/pkg/forest"
	"github.com/arborlabs/arbor/pkg/match"
	"github.com/arborlabs/arbor/pkg/source"
)

// RootResolver resolves a named root into a connected lister.
type RootResolver interface {
	Resolve(ctx context.Context, name string) (source.Lister, source.Root, error)
	Names() []string
}

// InventoryRequest is the JSON body of POST /v1/inventory.
type InventoryRequest struct {
	// Root is the named root to inventory.
	Root string `json:"root"`

	// Paths are the path specs to expand.
	Paths []string `json:"paths"`

	// Scope optionally filters entries by glob patterns.
	Scope *ScopeRequest `json:"scope,omitempty"`
}

// ScopeRequest configures entry filtering for one request.
type ScopeRequest struct {
	Includes      []string `json:"includes,omitempty"`
	Excludes      []string `json:"excludes,omitempty"`
	IncludeHidden bool     `json:"include_hidden,omitempty"`
}

// InventoryResponse is the JSON body of a successful inventory call.
type InventoryResponse struct {
	JobID   string         `json:"job_id"`
	Root    string         `json:"root"`
	Entries []forest.Entry `json:"entries"`
}

// InventoryHandler serves inventory generation requests.
type InventoryHandler struct {
	resolver RootResolver
}

// NewInventoryHandler creates an inventory handler over the resolver.
func NewInventoryHandler(resolver RootResolver) *InventoryHandler {
	return &InventoryHandler{resolver: resolver}
}

// ServeHTTP handles POST /v1/inventory.
//
// The request context doubles as the cancellation signal: when the
// client disconnects, the crawl stops at the next poll and the request
// ends without a body.
func (h *InventoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req InventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteError(w, http.StatusBadRequest, apperrors.CodeBadRequest,
			"invalid request body: "+err.Error())
		return
	}

	if req.Root == "" {
		apperrors.WriteError(w, http.StatusBadRequest, apperrors.CodeBadRequest,
			"root is required")
		return
	}
	if len(req.Paths) == 0 {
		apperrors.WriteError(w, http.StatusBadRequest, apperrors.CodeBadRequest,
			"at least one path spec is required")
		return
	}

	var matcher *match.Matcher
	if req.Scope != nil && len(req.Scope.Includes) > 0 {
		var err error
		matcher, err = match.New(match.Config{
			Includes:      req.Scope.Includes,
			Excludes:      req.Scope.Excludes,
			IncludeHidden: req.Scope.IncludeHidden,
		})
		if err != nil {
			apperrors.WriteError(w, http.StatusBadRequest, apperrors.CodeBadRequest,
				"invalid scope: "+err.Error())
			return
		}
	}

	ctx := r.Context()

	lister, root, err := h.resolver.Resolve(ctx, req.Root)
	if err != nil {
		apperrors.WriteError(w, http.StatusNotFound, apperrors.CodeNotFound, err.Error())
		return
	}

	f, err := forest.New(lister)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	jobID := uuid.New().String()
	requestID := middleware.GetRequestID(ctx)

	observability.ServerLogger.Info("inventory started",
		zap.String("job_id", jobID),
		zap.String("request_id", requestID),
		zap.String("root", req.Root),
		zap.Int("specs", len(req.Paths)))

	entries, err := f.Generate(ctx, root, req.Paths, nil)
	if err != nil {
		if errors.Is(err, forest.ErrInvalidSpec) {
			apperrors.WriteError(w, http.StatusBadRequest, apperrors.CodeBadRequest, err.Error())
			return
		}
		observability.ServerLogger.Error("inventory failed",
			zap.String("job_id", jobID),
			zap.Error(err))
		respondWithError(w, r, err)
		return
	}

	if matcher != nil {
		entries = filterEntries(entries, matcher)
	}

	observability.ServerLogger.Info("inventory completed",
		zap.String("job_id", jobID),
		zap.Int("entries", len(entries)))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(InventoryResponse{
		JobID:   jobID,
		Root:    req.Root,
		Entries: entries,
	})
}

// filterEntries keeps file entries matching the scope. Marker rows
// (404s and branch errors) always survive filtering so callers keep
// their per-spec coverage.
func filterEntries(entries []forest.Entry, matcher *match.Matcher) []forest.Entry {
	kept := make([]forest.Entry, 0, len(entries))
	for _, e := range entries {
		if !e.File || matcher.Match(e.Path) {
			kept = append(kept, e)
		}
	}
	return kept
}

// RootsHandler serves GET /v1/roots: the configured root names.
func RootsHandler(resolver RootResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string][]string{
			"roots": resolver.Names(),
		})
	}
}
