package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMiningTimeout is returned when sealing exhausts the attempt budget
// before finding a nonce that satisfies the difficulty target.
var ErrMiningTimeout = errors.New("ledger: sealing exceeded maximum attempts")

// Payload keys required for a block to count as evidence.
const (
	payloadKeyFileName   = "file_name"
	payloadKeyFileHash   = "file_hash"
	payloadKeyOwnerID    = "owner_id"
	payloadKeyUploadedAt = "uploaded_at"
)

// EvidencePayload is the structured record carried by evidence blocks.
type EvidencePayload struct {
	FileName   string            `json:"file_name"`
	FileHash   string            `json:"file_hash"`
	OwnerID    string            `json:"owner_id"`
	UploadedAt string            `json:"uploaded_at"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// toMap converts the payload into the generic form stored on a block.
func (p EvidencePayload) toMap() map[string]interface{} {
	m := map[string]interface{}{
		payloadKeyFileName:   p.FileName,
		payloadKeyFileHash:   p.FileHash,
		payloadKeyOwnerID:    p.OwnerID,
		payloadKeyUploadedAt: p.UploadedAt,
	}
	if len(p.Metadata) > 0 {
		meta := make(map[string]interface{}, len(p.Metadata))
		for k, v := range p.Metadata {
			meta[k] = v
		}
		m["metadata"] = meta
	}
	return m
}

// Block is a single sealed record in the chain, linked to its predecessor
// by hash. Payload is never mutated after sealing.
type Block struct {
	Index        int                    `json:"index"`
	Timestamp    int64                  `json:"timestamp"`
	Payload      map[string]interface{} `json:"payload"`
	PreviousHash string                 `json:"previous_hash"`
	Nonce        uint64                 `json:"nonce"`
	Hash         string                 `json:"hash"`
}

// ComputeHash returns the hex SHA-256 digest over the block's sealed fields.
// Payload is serialized canonically (sorted keys) so the digest is stable.
func (b *Block) ComputeHash() string {
	payload, err := canonicalJSON(b.Payload)
	if err != nil {
		// Payloads are built from JSON-safe values; treat a failure as an
		// unreproducible payload so validation fails rather than passes.
		payload = []byte(fmt.Sprintf("unserializable:%v", err))
	}

	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%d|%s|%d", b.Index, b.PreviousHash, b.Timestamp, payload, b.Nonce)
	return hex.EncodeToString(h.Sum(nil))
}

// seal mines the block: increment the nonce until the hash carries the
// required number of leading zero hex digits, or the budget runs out.
func (b *Block) seal(difficulty int, maxAttempts uint64) error {
	target := strings.Repeat("0", difficulty)

	b.Nonce = 0
	for attempts := uint64(0); ; attempts++ {
		b.Hash = b.ComputeHash()
		if strings.HasPrefix(b.Hash, target) {
			return nil
		}
		if maxAttempts > 0 && attempts >= maxAttempts {
			return fmt.Errorf("%w: difficulty %d, %d attempts", ErrMiningTimeout, difficulty, attempts)
		}
		b.Nonce++
	}
}

// clone returns a copy of the block with its own payload map, so callers
// cannot reach back into the chain's sealed state through the returned
// pointer. Nested maps in the payload are copied as well.
func (b *Block) clone() *Block {
	copied := *b
	copied.Payload = clonePayloadMap(b.Payload)
	return &copied
}

func clonePayloadMap(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		if nested, ok := v.(map[string]interface{}); ok {
			dst[k] = clonePayloadMap(nested)
			continue
		}
		dst[k] = v
	}
	return dst
}

// hasEvidenceShape reports whether the payload carries every required
// evidence field with a non-empty string value.
func (b *Block) hasEvidenceShape() bool {
	for _, key := range []string{payloadKeyFileName, payloadKeyFileHash, payloadKeyOwnerID, payloadKeyUploadedAt} {
		val, ok := b.Payload[key].(string)
		if !ok || val == "" {
			return false
		}
	}
	return true
}

// canonicalJSON encodes v with deterministic key ordering. encoding/json
// sorts map keys, so marshaling the payload map is already canonical; this
// wrapper exists to keep the contract in one place.
func canonicalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
