package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var httpClient = resty.New().
	SetTimeout(30 * time.Second).
	SetRetryCount(2).
	SetHeader("Accept", "application/json, application/yaml, text/yaml, */*")

// Fetch reads a dataset from a location:
//
//	s3://bucket/key
//	gs://bucket/key
//	http://host/path, https://host/path
//	anything else is a local file path
//
// Cloud locations use the ambient credentials of the respective SDK.
func Fetch(ctx context.Context, location string) ([]byte, error) {
	scheme, rest, ok := strings.Cut(location, "://")
	if !ok {
		return os.ReadFile(location)
	}

	switch scheme {
	case "http", "https":
		return fetchHTTP(ctx, location)
	case "s3", "gs":
		bucket, key, ok := strings.Cut(rest, "/")
		if !ok || bucket == "" || key == "" {
			return nil, fmt.Errorf("fetch %s: expected %s://bucket/key", location, scheme)
		}
		var (
			c   Client
			err error
		)
		if scheme == "s3" {
			c, err = NewS3Storage(ctx, S3Config{Bucket: bucket})
		} else {
			c, err = NewGCSStorage(ctx, bucket)
		}
		if err != nil {
			return nil, err
		}
		defer Close(c)
		return c.GetObject(ctx, key)
	case "file":
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", location, err)
		}
		return os.ReadFile(u.Path)
	default:
		return nil, fmt.Errorf("fetch %s: unsupported scheme %q", location, scheme)
	}
}

func fetchHTTP(ctx context.Context, location string) ([]byte, error) {
	resp, err := httpClient.R().SetContext(ctx).Get(location)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", location, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch %s: %s", location, resp.Status())
	}
	return resp.Body(), nil
}
