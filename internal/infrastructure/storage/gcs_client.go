package storage

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"bridgeit/pkg/logger"
)

const publicURLPrefix = "https://storage.googleapis.com/"

// CloudStorageClient turns profile photo references into URLs a client can load.
type CloudStorageClient struct {
	client     *storage.Client
	bucketName string
	urlTTL     time.Duration
}

func NewCloudStorageClient(ctx context.Context, bucketName string, urlTTL time.Duration, opts ...option.ClientOption) (*CloudStorageClient, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %v", err)
	}

	if urlTTL <= 0 {
		urlTTL = time.Hour
	}

	return &CloudStorageClient{
		client:     client,
		bucketName: bucketName,
		urlTTL:     urlTTL,
	}, nil
}

// ParseObjectRef splits a photo reference into bucket and object. http(s)
// URLs are not object references; bare paths refer to defaultBucket.
func ParseObjectRef(ref, defaultBucket string) (bucket, object string, ok bool) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return "", "", false
	case strings.HasPrefix(ref, "gs://"):
		parts := strings.SplitN(strings.TrimPrefix(ref, "gs://"), "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", "", false
		}
		return parts[0], parts[1], true
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return "", "", false
	default:
		if defaultBucket == "" {
			return "", "", false
		}
		return defaultBucket, strings.TrimPrefix(ref, "/"), true
	}
}

// AvatarURL returns a readable URL for ref. Object references get a signed
// GET URL; when signing is not possible it falls back to the public object URL.
func (c *CloudStorageClient) AvatarURL(ctx context.Context, ref string) (string, error) {
	bucket, object, ok := ParseObjectRef(ref, c.bucketName)
	if !ok {
		return strings.TrimSpace(ref), nil
	}

	url, err := c.client.Bucket(bucket).SignedURL(object, &storage.SignedURLOptions{
		Method:  http.MethodGet,
		Expires: time.Now().Add(c.urlTTL),
	})
	if err != nil {
		logger.Debug("AvatarURL: signing %s/%s failed, using public URL: %v", bucket, object, err)
		return publicURLPrefix + bucket + "/" + object, nil
	}
	return url, nil
}

func (c *CloudStorageClient) Close() error {
	return c.client.Close()
}
