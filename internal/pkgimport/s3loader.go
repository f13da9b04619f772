package pkgimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client the loader uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds construction parameters. Credentials come from the default
// AWS chain (environment, shared config, instance role).
type S3Config struct {
	Bucket    string
	Prefix    string // key prefix, e.g. "distro/packages"
	Region    string // default us-east-1
	Endpoint  string // optional; S3-compatible endpoint such as MinIO
	PathStyle bool
}

// S3Loader opens package files stored as objects under a bucket prefix.
type S3Loader struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Loader creates a loader from cfg.
func NewS3Loader(ctx context.Context, cfg S3Config) (*S3Loader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewS3LoaderWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3LoaderWithClient creates a loader over an existing client.
func NewS3LoaderWithClient(client S3API, bucket, prefix string) *S3Loader {
	return &S3Loader{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key for a package filename.
func (l *S3Loader) Key(name string) string {
	if l.prefix == "" {
		return name
	}
	return path.Join(l.prefix, name)
}

func (l *S3Loader) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := l.Key(name)
	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &l.bucket, Key: &key})
	if err != nil {
		var noKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noKey) || errors.As(err, &notFound) {
			return nil, fmt.Errorf("s3://%s/%s: %w", l.bucket, key, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("s3://%s/%s: %w", l.bucket, key, err)
	}
	return out.Body, nil
}
