package evidence

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shailjagaurzz/jan-kavach/pkg/storage"
)

// EvidenceRepository persists evidence records alongside their block
// references. Lookups return (nil, nil) when no row matches.
type EvidenceRepository interface {
	Create(ctx context.Context, record *EvidenceRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*EvidenceRecord, error)
	GetByContentHash(ctx context.Context, contentHash string) (*EvidenceRecord, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*EvidenceRecord, int64, error)
}

// ObjectStore is the slice of the storage layer the vault needs.
type ObjectStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (*storage.UploadResult, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	GetPresignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (*storage.PresignedURLResult, error)
}
