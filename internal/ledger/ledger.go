// Package ledger maintains a tamper-evident, append-only, hash-linked
// sequence of evidence records sealed by proof-of-work. The chain lives
// in memory; callers persist block references alongside their own records.
package ledger

import (
	"sync"
	"time"
)

const (
	// DefaultDifficulty keeps sealing fast enough for a request path.
	DefaultDifficulty = 2
	// DefaultMaxSealAttempts bounds mining so a misconfigured difficulty
	// cannot spin a goroutine forever.
	DefaultMaxSealAttempts = 2_000_000

	genesisPreviousHash = "0"
)

// Stats is a read-only aggregate over the chain.
type Stats struct {
	TotalBlocks    int    `json:"total_blocks"`
	EvidenceBlocks int    `json:"evidence_blocks"`
	GenesisHash    string `json:"genesis_hash"`
	LatestHash     string `json:"latest_hash"`
	ChainValid     bool   `json:"chain_valid"`
	Difficulty     int    `json:"difficulty"`
}

// Option configures a Ledger at construction time.
type Option func(*Ledger)

// WithDifficulty sets the number of leading zero hex digits a sealed
// block's hash must carry. Values below 1 are ignored.
func WithDifficulty(d int) Option {
	return func(l *Ledger) {
		if d >= 1 {
			l.difficulty = d
		}
	}
}

// WithMaxSealAttempts bounds the nonce search. Zero means unbounded.
func WithMaxSealAttempts(n uint64) Option {
	return func(l *Ledger) {
		l.maxSealAttempts = n
	}
}

// Ledger is an append-only chain of blocks. Appends are serialized by an
// internal mutex; reads take the same lock since appends mutate the slice.
type Ledger struct {
	mu              sync.RWMutex
	blocks          []*Block
	difficulty      int
	maxSealAttempts uint64
	now             func() time.Time
}

// New constructs a chain holding exactly one sealed genesis block.
func New(opts ...Option) (*Ledger, error) {
	l := &Ledger{
		difficulty:      DefaultDifficulty,
		maxSealAttempts: DefaultMaxSealAttempts,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	genesis := &Block{
		Index:     0,
		Timestamp: l.now().UnixMilli(),
		Payload: map[string]interface{}{
			"system": "evidence-vault",
			"note":   "genesis",
		},
		PreviousHash: genesisPreviousHash,
	}
	if err := genesis.seal(l.difficulty, l.maxSealAttempts); err != nil {
		return nil, err
	}

	l.blocks = []*Block{genesis}
	return l, nil
}

// Append constructs, seals, and links a new evidence block. It blocks the
// calling goroutine for the duration of mining; run it off any latency
// sensitive path. Returns a copy of the sealed block.
func (l *Ledger) Append(payload EvidencePayload) (*Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	latest := l.blocks[len(l.blocks)-1]
	block := &Block{
		Index:        latest.Index + 1,
		Timestamp:    l.now().UnixMilli(),
		Payload:      payload.toMap(),
		PreviousHash: latest.Hash,
	}

	if err := block.seal(l.difficulty, l.maxSealAttempts); err != nil {
		return nil, err
	}

	l.blocks = append(l.blocks, block)

	return block.clone(), nil
}

// FindByContentHash returns the first block, in index order, whose payload
// carries the given file content hash, or nil if none does.
func (l *Ledger) FindByContentHash(contentHash string) *Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, b := range l.blocks {
		if hash, ok := b.Payload[payloadKeyFileHash].(string); ok && hash == contentHash {
			return b.clone()
		}
	}
	return nil
}

// FindByOwner returns all blocks, in index order, owned by the given id.
func (l *Ledger) FindByOwner(ownerID string) []*Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*Block
	for _, b := range l.blocks {
		if owner, ok := b.Payload[payloadKeyOwnerID].(string); ok && owner == ownerID {
			out = append(out, b.clone())
		}
	}
	return out
}

// Validate rescans the full chain. For every block after genesis it checks
// the payload carries the required evidence fields, the stored hash matches
// a recompute, and the previous-hash link holds. Returns false on the first
// failure. A false result is terminal for the chain's trust status; there
// is no repair path.
func (l *Ledger) Validate() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.validateLocked()
}

func (l *Ledger) validateLocked() bool {
	for i := 1; i < len(l.blocks); i++ {
		current := l.blocks[i]
		previous := l.blocks[i-1]

		if !current.hasEvidenceShape() {
			return false
		}
		if current.Hash != current.ComputeHash() {
			return false
		}
		if current.PreviousHash != previous.Hash {
			return false
		}
	}
	return true
}

// Stats returns chain aggregates. ChainValid reflects a full validation
// pass at call time.
func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	evidence := 0
	for _, b := range l.blocks[1:] {
		if b.hasEvidenceShape() {
			evidence++
		}
	}

	return Stats{
		TotalBlocks:    len(l.blocks),
		EvidenceBlocks: evidence,
		GenesisHash:    l.blocks[0].Hash,
		LatestHash:     l.blocks[len(l.blocks)-1].Hash,
		ChainValid:     l.validateLocked(),
		Difficulty:     l.difficulty,
	}
}

// Length returns the number of blocks including genesis.
func (l *Ledger) Length() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.blocks)
}

// Block returns a copy of the block at the given index, or nil when the
// index is out of range.
func (l *Ledger) Block(index int) *Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index < 0 || index >= len(l.blocks) {
		return nil
	}
	return l.blocks[index].clone()
}
