package evidence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles evidence record persistence
type Repository struct {
	db *pgxpool.Pool
}

// Ensure the concrete repository satisfies the service's requirements.
var _ EvidenceRepository = (*Repository)(nil)

// NewRepository creates a new evidence repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts an evidence record
func (r *Repository) Create(ctx context.Context, record *EvidenceRecord) error {
	metadataJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO evidence_records (
			id, owner_id, file_name, content_hash, storage_key, mime_type,
			size_bytes, block_index, block_hash, metadata, uploaded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.Exec(ctx, query,
		record.ID,
		record.OwnerID,
		record.FileName,
		record.ContentHash,
		record.StorageKey,
		record.MimeType,
		record.SizeBytes,
		record.BlockIndex,
		record.BlockHash,
		metadataJSON,
		record.UploadedAt,
	)
	return err
}

const evidenceColumns = `
	id, owner_id, file_name, content_hash, storage_key, mime_type,
	size_bytes, block_index, block_hash, metadata, uploaded_at
`

func scanEvidenceRecord(row pgx.Row) (*EvidenceRecord, error) {
	var record EvidenceRecord
	var metadataJSON []byte

	err := row.Scan(
		&record.ID,
		&record.OwnerID,
		&record.FileName,
		&record.ContentHash,
		&record.StorageKey,
		&record.MimeType,
		&record.SizeBytes,
		&record.BlockIndex,
		&record.BlockHash,
		&metadataJSON,
		&record.UploadedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(metadataJSON, &record.Metadata); err != nil {
		record.Metadata = nil
	}
	return &record, nil
}

// GetByID retrieves an evidence record by id
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*EvidenceRecord, error) {
	query := `SELECT ` + evidenceColumns + ` FROM evidence_records WHERE id = $1`
	return scanEvidenceRecord(r.db.QueryRow(ctx, query, id))
}

// GetByContentHash retrieves an evidence record by its content hash
func (r *Repository) GetByContentHash(ctx context.Context, contentHash string) (*EvidenceRecord, error) {
	query := `SELECT ` + evidenceColumns + ` FROM evidence_records WHERE content_hash = $1`
	return scanEvidenceRecord(r.db.QueryRow(ctx, query, contentHash))
}

// ListByOwner retrieves an owner's evidence records with total count
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*EvidenceRecord, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM evidence_records WHERE owner_id = $1`
	if err := r.db.QueryRow(ctx, countQuery, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + evidenceColumns + `
		FROM evidence_records
		WHERE owner_id = $1
		ORDER BY uploaded_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records := make([]*EvidenceRecord, 0)
	for rows.Next() {
		var record EvidenceRecord
		var metadataJSON []byte

		if err := rows.Scan(
			&record.ID,
			&record.OwnerID,
			&record.FileName,
			&record.ContentHash,
			&record.StorageKey,
			&record.MimeType,
			&record.SizeBytes,
			&record.BlockIndex,
			&record.BlockHash,
			&metadataJSON,
			&record.UploadedAt,
		); err != nil {
			return nil, 0, err
		}

		if err := json.Unmarshal(metadataJSON, &record.Metadata); err != nil {
			record.Metadata = nil
		}
		records = append(records, &record)
	}
	return records, total, rows.Err()
}
