// Package gdrive implements the folder-listing contract for Google
// Drive using the Drive v3 API.
//
// Drive addresses items by ID, not path, so each listing first resolves
// the relative path to a folder ID by walking parent queries segment by
// segment, then pages through the folder's children with page tokens.
package gdrive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/arborlabs/arbor/pkg/source"
)

// folderMIMEType marks Drive folders.
const folderMIMEType = "application/vnd.google-apps.folder"

// DefaultPageSize is the children page size per listing request.
const DefaultPageSize = 1000

// Config configures a Drive lister.
type Config struct {
	// PageSize is the children page size. Default: DefaultPageSize.
	PageSize int64

	// ClientOptions are passed to the Drive service constructor
	// (credentials, endpoint overrides for tests).
	ClientOptions []option.ClientOption
}

// Lister implements source.Lister for Google Drive.
//
// The root handle is the folder ID anchoring the crawl; root.Path is a
// path below that folder.
type Lister struct {
	svc      *drive.Service
	pageSize int64
}

var _ source.Lister = (*Lister)(nil)

// New creates a Drive lister from the given configuration.
func New(ctx context.Context, cfg Config) (*Lister, error) {
	svc, err := drive.NewService(ctx, cfg.ClientOptions...)
	if err != nil {
		return nil, &source.SourceError{Op: "New", Backend: source.BackendGDrive, Err: err}
	}
	return NewWithService(svc, cfg.PageSize), nil
}

// NewWithService wraps an already-constructed Drive service.
func NewWithService(svc *drive.Service, pageSize int64) *Lister {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Lister{svc: svc, pageSize: pageSize}
}

// ListFolder returns the immediate children of root.Path + relPath.
func (l *Lister) ListFolder(ctx context.Context, root source.Root, relPath string) ([]source.Child, error) {
	if root.ID == "" {
		return nil, l.wrapError("ListFolder", root, relPath, errors.New("root folder ID is required"))
	}

	folderID, err := l.resolveFolder(ctx, root, relPath)
	if err != nil {
		return nil, l.wrapError("ListFolder", root, relPath, err)
	}

	query := fmt.Sprintf("'%s' in parents and trashed=false", folderID)

	children := []source.Child{}
	pageToken := ""
	for {
		call := l.svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id,name,mimeType)").
			PageSize(l.pageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, l.wrapError("ListFolder", root, relPath, mapGoogleError(err))
		}

		for _, f := range page.Files {
			children = append(children, source.Child{
				Path: relPath + "/" + f.Name,
				File: f.MimeType != folderMIMEType,
			})
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return children, nil
}

// resolveFolder walks root.Path + relPath segment by segment from the
// root folder ID, returning the folder ID of the final segment.
func (l *Lister) resolveFolder(ctx context.Context, root source.Root, relPath string) (string, error) {
	folderID := root.ID

	walk := strings.Trim(strings.TrimRight(root.Path, "/")+relPath, "/")
	if walk == "" {
		return folderID, nil
	}

	for _, segment := range strings.Split(walk, "/") {
		query := fmt.Sprintf("name = '%s' and '%s' in parents and mimeType = '%s' and trashed=false",
			escapeQueryTerm(segment), folderID, folderMIMEType)

		page, err := l.svc.Files.List().
			Q(query).
			Fields("files(id,name)").
			PageSize(1).
			Context(ctx).
			Do()
		if err != nil {
			return "", mapGoogleError(err)
		}
		if len(page.Files) == 0 {
			return "", source.ErrNotFound
		}
		folderID = page.Files[0].Id
	}

	return folderID, nil
}

// escapeQueryTerm escapes single quotes for Drive query strings.
func escapeQueryTerm(s string) string {
	return strings.ReplaceAll(s, `'`, `\'`)
}

// mapGoogleError converts googleapi errors to source sentinels.
func mapGoogleError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.Code {
	case 404:
		return source.ErrNotFound
	case 401:
		return source.ErrInvalidCredentials
	case 429:
		return fmt.Errorf("%w: %v", source.ErrThrottled, err)
	case 403:
		for _, e := range apiErr.Errors {
			switch e.Reason {
			case "rateLimitExceeded", "userRateLimitExceeded":
				return fmt.Errorf("%w: %v", source.ErrThrottled, err)
			}
		}
		return fmt.Errorf("%w: %v", source.ErrAccessDenied, err)
	case 500, 502, 503:
		return fmt.Errorf("%w: %v", source.ErrUnavailable, err)
	default:
		return err
	}
}

// wrapError converts failures to source errors with listing context.
func (l *Lister) wrapError(op string, root source.Root, relPath string, err error) error {
	return &source.SourceError{
		Op:      op,
		Backend: source.BackendGDrive,
		Root:    root.ID,
		Path:    relPath,
		Err:     err,
	}
}
