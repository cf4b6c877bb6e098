package s3

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"golang.org/x/time/rate"

	"github.com/arborlabs/arbor/pkg/source"
)

// Lister implements the folder-listing contract over S3 delimiter
// listings: objects directly under a prefix are files, common prefixes
// are folders. One ListFolder call follows continuation tokens to
// exhaustion, so callers never see page boundaries.
//
// S3 has no first-class folders. A prefix with neither objects nor
// common prefixes under it does not exist, and maps to the not-found
// sentinel rather than an empty child set.
type Lister struct {
	client  *s3.Client
	maxKeys int
	limiter *rate.Limiter
}

// Ensure Lister implements the interfaces.
var (
	_ source.Lister = (*Lister)(nil)
	_ source.Stater = (*Lister)(nil)
)

// New creates an S3 lister with the given configuration.
//
// The lister uses AWS SDK v2's default credential chain unless explicit
// credentials are provided in the config.
func New(ctx context.Context, cfg Config) (*Lister, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, &source.SourceError{
			Op:      "New",
			Backend: source.BackendS3,
			Err:     err,
		}
	}

	// Build S3 client options
	s3Opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}
		},
	}

	// Custom endpoint for S3-compatible stores
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	if maxKeys > MaxAllowedKeys {
		maxKeys = MaxAllowedKeys
	}

	l := &Lister{
		client:  s3.NewFromConfig(awsCfg, s3Opts...),
		maxKeys: maxKeys,
	}
	if cfg.RateLimit > 0 {
		l.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return l, nil
}

// loadAWSConfig builds the AWS configuration with appropriate credentials.
func loadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error

	// Only apply explicit region if user set one in config.
	// Let SDK resolve from env/profile first.
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	// Set profile if specified
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	// Use explicit credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		staticCreds := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // session token (empty for long-term credentials)
		)
		opts = append(opts, config.WithCredentialsProvider(staticCreds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}

	awsCfg.Region = resolveRegion(cfg.Region, cfg.Endpoint, awsCfg.Region)

	return awsCfg, nil
}

// ListFolder returns the immediate children of root.Path + relPath.
func (l *Lister) ListFolder(ctx context.Context, root source.Root, relPath string) ([]source.Child, error) {
	if root.ID == "" {
		return nil, l.wrapError("ListFolder", root, relPath, errors.New("bucket is required"))
	}

	prefix := folderPrefix(root.Path, relPath)

	var (
		children []source.Child
		token    string
	)

	for {
		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		input := &s3.ListObjectsV2Input{
			Bucket:    aws.String(root.ID),
			Delimiter: aws.String("/"),
			MaxKeys:   aws.Int32(int32(l.maxKeys)),
		}
		if prefix != "" {
			input.Prefix = aws.String(prefix)
		}
		if token != "" {
			input.ContinuationToken = aws.String(token)
		}

		page, err := l.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, l.wrapError("ListFolder", root, relPath, err)
		}

		children = append(children, childrenFromPage(relPath, prefix, page)...)

		if !aws.ToBool(page.IsTruncated) || page.NextContinuationToken == nil {
			break
		}
		token = aws.ToString(page.NextContinuationToken)
	}

	if len(children) == 0 {
		return nil, l.wrapError("ListFolder", root, relPath, source.ErrNotFound)
	}

	return children, nil
}

// Stat resolves a single path via HeadObject. Prefixes (folders) do not
// resolve: only object keys are addressable as files.
func (l *Lister) Stat(ctx context.Context, root source.Root, relPath string) (*source.Child, error) {
	if root.ID == "" {
		return nil, l.wrapError("Stat", root, relPath, errors.New("bucket is required"))
	}

	key := strings.TrimPrefix(joinKey(root.Path, relPath), "/")
	_, err := l.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(root.ID),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, l.wrapError("Stat", root, relPath, err)
	}

	return &source.Child{Path: relPath, File: true}, nil
}

// childrenFromPage maps one listing page to child entries.
func childrenFromPage(relPath, prefix string, page *s3.ListObjectsV2Output) []source.Child {
	children := make([]source.Child, 0, len(page.Contents)+len(page.CommonPrefixes))

	for _, cp := range page.CommonPrefixes {
		name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
		if name == "" {
			continue
		}
		children = append(children, source.Child{Path: relPath + "/" + name})
	}

	for _, obj := range page.Contents {
		name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
		// Skip the zero-byte directory marker some tools create for the
		// prefix itself.
		if name == "" {
			continue
		}
		children = append(children, source.Child{Path: relPath + "/" + name, File: true})
	}

	return children
}

// folderPrefix maps a slash-rooted relative path to a key prefix with a
// trailing delimiter: ("/wiki", "/foo") -> "wiki/foo/", ("", "") -> "".
func folderPrefix(basePath, relPath string) string {
	key := strings.Trim(joinKey(basePath, relPath), "/")
	if key == "" {
		return ""
	}
	return key + "/"
}

func joinKey(basePath, relPath string) string {
	return strings.TrimRight(basePath, "/") + relPath
}

// resolveRegion determines the final region to use after SDK config loading.
//
// The SDK already applies explicit config, environment, and profile
// resolution; this function only supplies the AWS fallback default.
// S3-compatible stores (custom endpoint) get no default.
func resolveRegion(cfgRegion, endpoint, sdkRegion string) string {
	if sdkRegion != "" {
		return sdkRegion
	}
	if endpoint == "" {
		return DefaultAWSRegion
	}
	return ""
}

// wrapError converts S3 errors to source errors with appropriate sentinels.
func (l *Lister) wrapError(op string, root source.Root, relPath string, err error) error {
	wrapped := &source.SourceError{
		Op:      op,
		Backend: source.BackendS3,
		Root:    root.ID,
		Path:    relPath,
		Err:     err,
	}

	// Check for specific S3 error types first
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket

	switch {
	case errors.As(err, &notFound), errors.As(err, &noSuchKey), errors.As(err, &noSuchBucket):
		wrapped.Err = source.ErrNotFound
		return wrapped
	}

	// Check smithy API errors for error codes
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			wrapped.Err = source.ErrNotFound
		case "AccessDenied", "Forbidden":
			wrapped.Err = source.ErrAccessDenied
		case "InvalidAccessKeyId", "SignatureDoesNotMatch":
			wrapped.Err = source.ErrInvalidCredentials
		case "SlowDown", "Throttling", "RequestLimitExceeded":
			wrapped.Err = source.ErrThrottled
		case "ServiceUnavailable", "InternalError":
			wrapped.Err = source.ErrUnavailable
		}
		return wrapped
	}

	return wrapped
}
