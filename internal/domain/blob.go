package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes one object in blob storage.
type BlobInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobReader retrieves objects from blob storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// Archiver moves settled history out of the primary store into blob storage.
type Archiver interface {
	// ArchiveResolvedMarkets snapshots markets resolved before the cutoff.
	ArchiveResolvedMarkets(ctx context.Context, before time.Time) (int64, error)
	// ArchiveAuditLog uploads audit entries older than the cutoff and then
	// deletes them from the primary store.
	ArchiveAuditLog(ctx context.Context, before time.Time) (int64, error)
}
