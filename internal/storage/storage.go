package storage

import (
	"context"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// ReportArchive stores reconciliation reports for later audit.
type ReportArchive interface {
	// PutReport writes a JSON report under the given key (relative to the archive prefix)
	// and returns the full object key.
	PutReport(ctx context.Context, key string, body []byte) (string, error)

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading an archived report.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)
}
