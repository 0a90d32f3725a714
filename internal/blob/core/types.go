// Package core defines the blob storage abstractions shared by the drivers,
// the workbook archive and the blob-backed key-value store.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverFilesystem represents the local filesystem implementation.
	DriverFilesystem Driver = "fs" // local filesystem (default, dev)
	// DriverS3 represents an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3" // S3 / MinIO compatible
	// DriverMemory represents an in-memory implementation typically used in tests.
	DriverMemory Driver = "memory" // in-memory (tests)
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string            // MIME type, optional
	Metadata    map[string]string // User metadata (small, flat key-value)
	Overwrite   bool              // replace an existing blob instead of failing with ErrExists
}

// DefaultLinkExpiry bounds download links created without an explicit expiry.
const DefaultLinkExpiry = 15 * time.Minute

// LinkOptions configures a download link for a stored blob.
type LinkOptions struct {
	Expiry   time.Duration // zero means DefaultLinkExpiry
	FileName string        // suggested name for the downloaded file, optional
}

// Info describes a stored blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store provides a thin S3-like abstraction used by higher layers. Get, Head
// and DownloadURL report a missing key with an error wrapping ErrNotFound.
// DownloadURL returns ErrUnsupported when the backend cannot hand out links.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	DownloadURL(ctx context.Context, key string, opts LinkOptions) (string, error)
	Driver() Driver
}

var (
	// ErrUnsupported is returned when an optional capability is not available.
	ErrUnsupported = errors.New("blobstore: unsupported operation")
	// ErrNotFound is wrapped by drivers when a key holds no blob.
	ErrNotFound = errors.New("blobstore: blob not found")
	// ErrExists is wrapped by drivers when Put targets an existing key without Overwrite.
	ErrExists = errors.New("blobstore: blob already exists")
)
