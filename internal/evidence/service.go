package evidence

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shailjagaurzz/jan-kavach/internal/ledger"
	"github.com/shailjagaurzz/jan-kavach/pkg/common"
	"github.com/shailjagaurzz/jan-kavach/pkg/logger"
	"github.com/shailjagaurzz/jan-kavach/pkg/storage"
	"go.uber.org/zap"
)

// ErrChainCompromised marks operations refused because the evidence chain
// failed validation. Terminal for the chain's trust status.
var ErrChainCompromised = common.NewAppError("CHAIN_COMPROMISED", "evidence chain integrity compromised", http.StatusConflict)

// allowedMimeTypes are the content types accepted as evidence: screenshots,
// documents, and call or video recordings.
var allowedMimeTypes = []string{
	"image/*",
	"audio/*",
	"video/*",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
}

// Service is the evidence vault: it hashes uploads, stores the bytes in
// object storage, seals a ledger block, and persists the record linking
// the two.
type Service struct {
	repo  EvidenceRepository
	chain *ledger.Ledger
	store ObjectStore
	now   func() time.Time
}

// NewService creates a new evidence service
func NewService(repo EvidenceRepository, chain *ledger.Ledger, store ObjectStore) *Service {
	return &Service{
		repo:  repo,
		chain: chain,
		store: store,
		now:   time.Now,
	}
}

// Upload ingests one evidence file: content hash, object storage write,
// ledger append, record insert, in that order. Mining runs on the calling
// goroutine, so this must not be invoked from a latency-critical path.
func (s *Service) Upload(ctx context.Context, ownerID uuid.UUID, fileName, mimeType string, content io.Reader) (*EvidenceRecord, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("reading evidence content: %w", err)
	}
	if len(data) == 0 {
		return nil, common.NewBadRequestError("evidence file is empty")
	}

	if mimeType == "" {
		mimeType = storage.GetMimeTypeFromExtension(fileName)
	}
	if !storage.ValidateMimeType(mimeType, allowedMimeTypes) {
		return nil, common.NewBadRequestError(fmt.Sprintf("unsupported evidence content type %q", mimeType))
	}

	sum := sha256.Sum256(data)
	contentHash := hex.EncodeToString(sum[:])

	existing, err := s.repo.GetByContentHash(ctx, contentHash)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if existing != nil {
		return nil, common.NewConflictError("evidence with this content already exists")
	}

	key := storage.GenerateEvidenceKey(ownerID, contentHash, fileName)
	uploadedAt := s.now().UTC()

	if _, err := s.store.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), mimeType); err != nil {
		return nil, fmt.Errorf("storing evidence file: %w", err)
	}

	block, err := s.chain.Append(ledger.EvidencePayload{
		FileName:   fileName,
		FileHash:   contentHash,
		OwnerID:    ownerID.String(),
		UploadedAt: uploadedAt.Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("sealing evidence block: %w", err)
	}

	record := &EvidenceRecord{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		FileName:    fileName,
		ContentHash: contentHash,
		StorageKey:  key,
		MimeType:    mimeType,
		SizeBytes:   int64(len(data)),
		BlockIndex:  int64(block.Index),
		BlockHash:   block.Hash,
		UploadedAt:  uploadedAt,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("persisting evidence record: %w", err)
	}

	logger.Info("Evidence sealed",
		zap.String("record_id", record.ID.String()),
		zap.Int("block_index", block.Index),
		zap.String("block_hash", block.Hash))

	return record, nil
}

// Verify checks one record against the chain: full chain validation, a
// block lookup by content hash, and a hash comparison against the stored
// block reference.
func (s *Service) Verify(ctx context.Context, id uuid.UUID) (*VerificationResult, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, common.NewNotFoundError("evidence record not found")
	}

	result := &VerificationResult{RecordID: record.ID}
	result.ChainValid = s.chain.Validate()

	block := s.chain.FindByContentHash(record.ContentHash)
	result.BlockFound = block != nil
	if block != nil {
		result.HashMatches = block.Hash == record.BlockHash && int64(block.Index) == record.BlockIndex
	}

	result.Verified = result.ChainValid && result.BlockFound && result.HashMatches
	switch {
	case !result.ChainValid:
		result.Message = verifyMessageCompromised
	case !result.BlockFound:
		result.Message = verifyMessageNoBlock
	case !result.HashMatches:
		result.Message = verifyMessageMismatch
	default:
		result.Message = verifyMessageOK
	}

	return result, nil
}

// verifiedRecord fetches a record, checks ownership, and refuses with
// ErrChainCompromised unless the record verifies against the chain.
func (s *Service) verifiedRecord(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (*EvidenceRecord, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, common.NewNotFoundError("evidence record not found")
	}
	if record.OwnerID != ownerID {
		return nil, common.NewForbiddenError("evidence belongs to another user")
	}

	verification, err := s.Verify(ctx, id)
	if err != nil {
		return nil, err
	}
	if !verification.Verified {
		logger.Warn("Refusing access to unverified evidence",
			zap.String("record_id", id.String()),
			zap.String("reason", verification.Message))
		return nil, ErrChainCompromised
	}
	return record, nil
}

// Download serves the evidence bytes only when the record verifies. A
// compromised chain refuses the download rather than silently serving
// possibly tampered content.
func (s *Service) Download(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (io.ReadCloser, *EvidenceRecord, error) {
	record, err := s.verifiedRecord(ctx, id, ownerID)
	if err != nil {
		return nil, nil, err
	}

	reader, err := s.store.Download(ctx, record.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching evidence file: %w", err)
	}
	return reader, record, nil
}

// PresignedDownloadURL issues a time-limited direct link to the evidence
// object, behind the same verification gate as Download.
func (s *Service) PresignedDownloadURL(ctx context.Context, id uuid.UUID, ownerID uuid.UUID, expiresIn time.Duration) (*storage.PresignedURLResult, error) {
	record, err := s.verifiedRecord(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	result, err := s.store.GetPresignedDownloadURL(ctx, record.StorageKey, expiresIn)
	if err != nil {
		return nil, fmt.Errorf("presigning evidence download: %w", err)
	}
	return result, nil
}

// ListByOwner returns the owner's evidence records, newest first.
func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*EvidenceRecord, int64, error) {
	return s.repo.ListByOwner(ctx, ownerID, limit, offset)
}

// ChainStats surfaces the ledger aggregates, including a live validation.
func (s *Service) ChainStats() ledger.Stats {
	return s.chain.Stats()
}

// VerifyChain runs a full chain validation.
func (s *Service) VerifyChain() bool {
	return s.chain.Validate()
}
