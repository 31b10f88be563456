// Package storagetest provides an in-memory Uploader.
package storagetest

import (
	"context"
	"errors"
	"sync"

	"harry_hype/internal/storage"
)

// Object is one stored upload
type Object struct {
	Bucket      storage.Bucket
	Name        string
	Data        []byte
	ContentType string
}

// Uploader keeps uploads in memory. Set Fail to make the next uploads to a
// bucket fail.
type Uploader struct {
	mu      sync.Mutex
	Objects map[string]Object
	Fail    map[storage.Bucket]error
}

func New() *Uploader {
	return &Uploader{Objects: map[string]Object{}, Fail: map[storage.Bucket]error{}}
}

var ErrInjected = errors.New("storagetest: injected failure")

func (u *Uploader) Upload(_ context.Context, bucket storage.Bucket, fileName string, data []byte, contentType string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.Fail[bucket]; err != nil {
		return "", err
	}
	name := storage.ObjectName(fileName)
	url := storage.PublicURL(bucket.String(), name)
	u.Objects[url] = Object{Bucket: bucket, Name: name, Data: append([]byte(nil), data...), ContentType: contentType}
	return url, nil
}

// Count returns how many objects were stored in bucket
func (u *Uploader) Count(bucket storage.Bucket) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, o := range u.Objects {
		if o.Bucket == bucket {
			n++
		}
	}
	return n
}
