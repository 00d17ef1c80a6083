package evidence

import (
	"time"

	"github.com/google/uuid"
)

// EvidenceRecord is the persisted reference tying an uploaded file to its
// ledger block. The file lives in object storage; the chain holds the
// tamper-evidence.
type EvidenceRecord struct {
	ID          uuid.UUID         `json:"id"`
	OwnerID     uuid.UUID         `json:"owner_id"`
	FileName    string            `json:"file_name"`
	ContentHash string            `json:"content_hash"`
	StorageKey  string            `json:"storage_key"`
	MimeType    string            `json:"mime_type"`
	SizeBytes   int64             `json:"size_bytes"`
	BlockIndex  int64             `json:"block_index"`
	BlockHash   string            `json:"block_hash"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	UploadedAt  time.Time         `json:"uploaded_at"`
}

// VerificationResult reports the integrity status of one evidence record
type VerificationResult struct {
	RecordID    uuid.UUID `json:"record_id"`
	ChainValid  bool      `json:"chain_valid"`
	BlockFound  bool      `json:"block_found"`
	HashMatches bool      `json:"hash_matches"`
	Verified    bool      `json:"verified"`
	Message     string    `json:"message"`
}

const (
	verifyMessageOK          = "evidence integrity verified"
	verifyMessageCompromised = "integrity compromised: evidence chain failed validation"
	verifyMessageNoBlock     = "no ledger block found for this evidence"
	verifyMessageMismatch    = "ledger block does not match the stored record"
)
