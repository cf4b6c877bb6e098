// Package source defines the listing contract implemented by each remote
// storage backend.
//
// A Lister resolves one folder of the virtual content tree to its immediate
// children. Backends are responsible for exhausting remote pagination
// internally and for retrying transient throttling; callers never see page
// boundaries. Authentication uses already-configured credentials (SDK
// credential chains, oauth2 token sources) - listers do not perform token
// acquisition.
package source

import "context"

// Root identifies the crawl root inside a backend.
type Root struct {
	// ID is the backend-specific handle: a drive ID, a bucket name, or an
	// owner/repo pair. It is opaque to the crawler.
	ID string

	// Path is the backend-specific base prefix below which the virtual
	// tree is anchored. Empty means the backend root itself.
	Path string
}

// Child is one immediate child of a listed folder.
type Child struct {
	// Path is the canonical slash-rooted path of the child below the
	// crawl root, e.g. "/foo/file1". It is what the crawler recurses on
	// and what appears in inventory entries.
	Path string

	// File reports whether the child is a file. Non-files are folders
	// and are expanded by the crawler, never emitted as results.
	File bool
}

// Lister lists one folder's immediate children.
//
// Implementations must:
//   - Return the complete child set for the folder at root.Path + relPath,
//     following remote pagination to exhaustion.
//   - Return an error satisfying IsNotFound when the folder itself does
//     not exist (this is a data condition, not a failure).
//   - Return a descriptive error on any other failure (network,
//     permission, malformed response, exhausted retry budget).
//   - Be safe for concurrent use: the crawler fans out sibling folder
//     listings without coordination.
//
// relPath is slash-rooted ("/foo/sub") or empty for the root folder
// itself. Listers perform no recursion; the crawler owns recursion.
type Lister interface {
	ListFolder(ctx context.Context, root Root, relPath string) ([]Child, error)
}

// Stater is an optional capability for resolving a single path without
// listing its parent. Backends with a cheap point-lookup (object HEAD,
// contents GET) implement it; the crawler falls back to parent listings
// otherwise.
type Stater interface {
	Stat(ctx context.Context, root Root, relPath string) (*Child, error)
}

// Backend identifies a storage backend implementation.
type Backend string

const (
	// BackendS3 represents AWS S3 or S3-compatible object storage.
	BackendS3 Backend = "s3"

	// BackendMSGraph represents Microsoft Graph drives (OneDrive/SharePoint).
	BackendMSGraph Backend = "msgraph"

	// BackendGDrive represents Google Drive.
	BackendGDrive Backend = "gdrive"

	// BackendGitHub represents a git-hosted code store.
	BackendGitHub Backend = "github"
)

// String returns the string representation of the backend type.
func (b Backend) String() string {
	return string(b)
}
