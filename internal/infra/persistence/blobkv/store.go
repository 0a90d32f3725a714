// Package blobkv stores key-value entries as blobs, one object per key under a
// prefix. It lets the snapshot and the user records live in S3 or on a shared
// filesystem next to the archived workbooks.
package blobkv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"pdmtracker/internal/blob"
	"pdmtracker/pkg/domain"
)

// DefaultPrefix is the key namespace used when none is given.
const DefaultPrefix = "kv/"

const contentType = "application/json"

var _ domain.KeyValueStore = (*Store)(nil)

// Store adapts a blob.Store to domain.KeyValueStore.
type Store struct {
	blobs  blob.Store
	prefix string
}

// New wraps blobs. An empty prefix uses DefaultPrefix.
func New(blobs blob.Store, prefix string) (*Store, error) {
	if blobs == nil {
		return nil, errors.New("blobkv: blob store required")
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{blobs: blobs, prefix: prefix}, nil
}

func (s *Store) objectKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("blobkv: empty key")
	}
	return s.prefix + key, nil
}

// Get reads the object for key; a missing object is domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return nil, err
	}
	_, rc, err := s.blobs.Get(ctx, objectKey)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("blobkv get %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	value, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("blobkv read %s: %w", key, err)
	}
	return value, nil
}

// Set replaces the object for key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}
	_, err = s.blobs.Put(ctx, objectKey, bytes.NewReader(value), blob.PutOptions{ContentType: contentType, Overwrite: true})
	if err != nil {
		return fmt.Errorf("blobkv set %s: %w", key, err)
	}
	return nil
}

// Remove deletes the object for key; a missing object is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}
	if _, err := s.blobs.Delete(ctx, objectKey); err != nil {
		return fmt.Errorf("blobkv remove %s: %w", key, err)
	}
	return nil
}

// Keys lists the stored keys without the prefix.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	infos, err := s.blobs.List(ctx, s.prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		keys = append(keys, strings.TrimPrefix(info.Key, s.prefix))
	}
	return keys, nil
}
