package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds settings for s3:// snapshot URLs.
// Credentials come from the default AWS chain.
type S3Config struct {
	Region    string
	Endpoint  string // optional, e.g. MinIO
	PathStyle bool
}

// S3 downloads snapshots from s3://bucket/key URLs.
type S3 struct {
	cfg S3Config

	once   sync.Once
	client *s3.Client
	err    error
}

// NewS3 creates an S3 fetcher. No AWS configuration is loaded until first use.
func NewS3(cfg S3Config) *S3 {
	return &S3{cfg: cfg}
}

func (f *S3) getClient(ctx context.Context) (*s3.Client, error) {
	f.once.Do(func() {
		region := f.cfg.Region
		if region == "" {
			region = "us-east-1"
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
		if err != nil {
			f.err = fmt.Errorf("failed to load aws config: %w", err)
			return
		}
		f.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if f.cfg.PathStyle {
				o.UsePathStyle = true
			}
			if f.cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(f.cfg.Endpoint)
			}
		})
	})
	return f.client, f.err
}

// ParseS3URL splits s3://bucket/key into its parts.
func ParseS3URL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("not an s3 url: %q", rawURL)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 url needs bucket and key: %q", rawURL)
	}
	return bucket, key, nil
}

// Fetch implements Fetcher.
func (f *S3) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	bucket, key, err := ParseS3URL(rawURL)
	if err != nil {
		return nil, err
	}
	client, err := f.getClient(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return nil, fmt.Errorf("s3 get object failed: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3 object: %w", err)
	}
	return data, nil
}
