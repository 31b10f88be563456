package storage

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// GCSUploader writes objects to Google Cloud Storage buckets
type GCSUploader struct {
	client  *storage.Client
	buckets Buckets
}

func NewGCSUploader(client *storage.Client, buckets Buckets) *GCSUploader {
	return &GCSUploader{client: client, buckets: buckets}
}

// Upload creates a new object. Objects are never overwritten.
func (u *GCSUploader) Upload(ctx context.Context, bucket Bucket, fileName string, data []byte, contentType string) (string, error) {
	name, err := u.buckets.Name(bucket)
	if err != nil {
		return "", err
	}
	object := ObjectName(fileName)

	w := u.client.Bucket(name).Object(object).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", errors.Wrapf(err, "write gs://%s/%s", name, object)
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrapf(err, "close gs://%s/%s", name, object)
	}

	logrus.WithFields(logrus.Fields{"bucket": name, "object": object, "bytes": len(data)}).Info("object uploaded")
	return PublicURL(name, object), nil
}

// PublicURL is the HTTPS address of an object in a public bucket
func PublicURL(bucket, object string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", strings.TrimSpace(bucket), strings.TrimLeft(object, "/"))
}
