// Package storage uploads user images to object storage and returns their
// public URLs.
package storage

import (
	"context"
	"fmt"
)

// Bucket names a logical image bucket
type Bucket int

const (
	BucketToken Bucket = iota
	BucketUser
	BucketStartup
)

func (b Bucket) String() string {
	switch b {
	case BucketToken:
		return "token"
	case BucketUser:
		return "user"
	case BucketStartup:
		return "startup"
	default:
		return fmt.Sprintf("bucket(%d)", int(b))
	}
}

// Buckets maps each logical bucket to the configured bucket name
type Buckets map[Bucket]string

// Name returns the configured name, or an error for an unmapped bucket
func (m Buckets) Name(b Bucket) (string, error) {
	name, ok := m[b]
	if !ok || name == "" {
		return "", fmt.Errorf("no bucket configured for %s", b)
	}
	return name, nil
}

// Uploader stores a file and returns its public URL
type Uploader interface {
	Upload(ctx context.Context, bucket Bucket, fileName string, data []byte, contentType string) (string, error)
}
