package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/eventum/internal/domain"
)

// archiveBatchSize bounds how many records one archive pass reads from the
// primary store.
const archiveBatchSize = 10_000

// ArchiveImpl implements domain.Archiver by querying the primary stores for
// settled history, serializing it to JSONL, and uploading the result to S3.
//
// Resolved markets are snapshotted but never deleted; the market row is the
// system of record for claims. Audit entries are deleted after their archive
// upload succeeds.
type ArchiveImpl struct {
	writer  domain.BlobWriter
	markets domain.MarketStore
	audit   domain.AuditStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, markets domain.MarketStore, audit domain.AuditStore) *ArchiveImpl {
	return &ArchiveImpl{
		writer:  writer,
		markets: markets,
		audit:   audit,
	}
}

// ArchiveResolvedMarkets snapshots markets resolved before the cutoff to
// archive/markets/YYYY-MM.jsonl. The archival event is recorded in the audit
// log and the count of archived records is returned.
func (a *ArchiveImpl) ArchiveResolvedMarkets(ctx context.Context, before time.Time) (int64, error) {
	markets, err := a.markets.ListResolvedBefore(ctx, before, archiveBatchSize)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive markets query: %w", err)
	}
	if len(markets) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(markets)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive markets marshal: %w", err)
	}

	path := archivePath("markets", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive markets upload: %w", err)
	}

	count := int64(len(markets))

	if err := a.logArchive(ctx, "archive.markets", path, count, before); err != nil {
		return count, err
	}
	return count, nil
}

// ArchiveAuditLog uploads audit entries older than the cutoff to
// archive/audit/YYYY-MM.jsonl and then deletes them from the primary store.
// Deletion happens only after the upload succeeds.
func (a *ArchiveImpl) ArchiveAuditLog(ctx context.Context, before time.Time) (int64, error) {
	entries, err := a.audit.ListBefore(ctx, before, archiveBatchSize)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit query: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(entries)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit marshal: %w", err)
	}

	path := archivePath("audit", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive audit upload: %w", err)
	}

	deleted, err := a.audit.DeleteBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit prune: %w", err)
	}

	if err := a.logArchive(ctx, "archive.audit_log", path, deleted, before); err != nil {
		return deleted, err
	}
	return deleted, nil
}

func (a *ArchiveImpl) logArchive(ctx context.Context, op, path string, count int64, before time.Time) error {
	entry := domain.AuditEntry{
		ID:        uuid.NewString(),
		Operation: op,
		Detail: map[string]any{
			"path":   path,
			"count":  count,
			"before": before.Format(time.RFC3339),
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := a.audit.Log(ctx, entry); err != nil {
		return fmt.Errorf("s3blob: %s audit log: %w", op, err)
	}
	return nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/markets/2026-01.jsonl
//	archive/audit/2026-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON. Each
// element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
