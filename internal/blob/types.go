// Package blob re-exports core blob abstractions and selects a driver from
// configuration.
package blob

import (
	"pdmtracker/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// LinkOptions configures a download link.
	LinkOptions = core.LinkOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DefaultLinkExpiry bounds links created without an explicit expiry.
	DefaultLinkExpiry = core.DefaultLinkExpiry
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

var (
	// ErrUnsupported indicates an operation isn't supported by a driver.
	ErrUnsupported = core.ErrUnsupported
	// ErrNotFound indicates a missing blob.
	ErrNotFound = core.ErrNotFound
	// ErrExists indicates a Put on an existing key without Overwrite.
	ErrExists = core.ErrExists
)
