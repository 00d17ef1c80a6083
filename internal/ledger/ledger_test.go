package ledger

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T, opts ...Option) *Ledger {
	t.Helper()
	l, err := New(opts...)
	require.NoError(t, err)
	return l
}

func samplePayload() EvidencePayload {
	return EvidencePayload{
		FileName:   "a.pdf",
		FileHash:   "abc123",
		OwnerID:    "u1",
		UploadedAt: "2024-01-01",
	}
}

func TestNew_GenesisBlock(t *testing.T) {
	l := newTestLedger(t)

	genesis := l.Block(0)
	require.NotNil(t, genesis)
	assert.Equal(t, 0, genesis.Index)
	assert.Equal(t, "0", genesis.PreviousHash)
	assert.True(t, strings.HasPrefix(genesis.Hash, "00"))
	assert.Equal(t, 1, l.Length())
	assert.True(t, l.Validate())
}

func TestAppend_SealsAndLinksBlock(t *testing.T) {
	l := newTestLedger(t, WithDifficulty(2))
	genesis := l.Block(0)

	block, err := l.Append(samplePayload())
	require.NoError(t, err)

	assert.Equal(t, 1, block.Index)
	assert.True(t, strings.HasPrefix(block.Hash, "00"))
	assert.Equal(t, genesis.Hash, block.PreviousHash)
	assert.Equal(t, block.Hash, block.ComputeHash())
	assert.True(t, l.Validate())
}

func TestAppend_MonotonicIndex(t *testing.T) {
	l := newTestLedger(t)

	for i := 1; i <= 5; i++ {
		block, err := l.Append(samplePayload())
		require.NoError(t, err)
		assert.Equal(t, i, block.Index)
		assert.Equal(t, i+1, l.Length())
	}

	// Every link holds
	for i := 1; i < l.Length(); i++ {
		assert.Equal(t, l.Block(i-1).Hash, l.Block(i).PreviousHash)
	}
}

func TestReturnedBlocksDoNotAliasChainState(t *testing.T) {
	// Mutating a block handed back to a caller must not reach the sealed
	// chain, including through nested metadata maps.
	l := newTestLedger(t)

	p := samplePayload()
	p.Metadata = map[string]string{"source": "upload"}
	appended, err := l.Append(p)
	require.NoError(t, err)

	appended.Payload["file_hash"] = "mutated"
	appended.Payload["metadata"].(map[string]interface{})["source"] = "mutated"

	byIndex := l.Block(1)
	byIndex.Payload["owner_id"] = "mutated"

	byHash := l.FindByContentHash("abc123")
	require.NotNil(t, byHash)
	byHash.Payload["file_name"] = "mutated"

	byOwner := l.FindByOwner("u1")
	require.Len(t, byOwner, 1)
	byOwner[0].Payload["uploaded_at"] = "mutated"

	assert.True(t, l.Validate())
	assert.Equal(t, "abc123", l.Block(1).Payload["file_hash"])
	assert.Equal(t, "upload", l.Block(1).Payload["metadata"].(map[string]interface{})["source"])
}

func TestValidate_DetectsPayloadTampering(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Append(samplePayload())
	require.NoError(t, err)
	require.True(t, l.Validate())

	l.blocks[1].Payload["file_hash"] = "tampered"

	assert.False(t, l.Validate())
}

func TestValidate_DetectsResealedTampering(t *testing.T) {
	// Re-sealing a tampered block fixes its own hash but breaks the link
	// from the next block.
	l := newTestLedger(t)
	_, err := l.Append(samplePayload())
	require.NoError(t, err)
	_, err = l.Append(samplePayload())
	require.NoError(t, err)

	l.blocks[1].Payload["file_hash"] = "tampered"
	require.NoError(t, l.blocks[1].seal(l.difficulty, l.maxSealAttempts))

	assert.False(t, l.Validate())
}

func TestValidate_DetectsBrokenLink(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Append(samplePayload())
	require.NoError(t, err)

	l.blocks[1].PreviousHash = "0000deadbeef"

	assert.False(t, l.Validate())
}

func TestValidate_DetectsMalformedPayload(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Append(samplePayload())
	require.NoError(t, err)

	delete(l.blocks[1].Payload, "owner_id")

	assert.False(t, l.Validate())
}

func TestValidate_Idempotent(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Append(samplePayload())
	require.NoError(t, err)

	first := l.Validate()
	second := l.Validate()
	assert.Equal(t, first, second)
	assert.True(t, first)

	l.blocks[1].Payload["file_hash"] = "tampered"

	assert.False(t, l.Validate())
	assert.False(t, l.Validate())
}

func TestSeal_MiningTimeout(t *testing.T) {
	_, err := New(WithDifficulty(16), WithMaxSealAttempts(100))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMiningTimeout)
}

func TestAppend_MiningTimeout(t *testing.T) {
	// Genesis seals at low difficulty; the budget is then tightened so the
	// next append cannot finish.
	l := newTestLedger(t, WithDifficulty(1))
	l.difficulty = 16
	l.maxSealAttempts = 100

	_, err := l.Append(samplePayload())
	assert.ErrorIs(t, err, ErrMiningTimeout)
	assert.Equal(t, 1, l.Length())
}

func TestFindByContentHash(t *testing.T) {
	l := newTestLedger(t)

	first := samplePayload()
	first.FileHash = "hash-one"
	second := samplePayload()
	second.FileHash = "hash-two"

	_, err := l.Append(first)
	require.NoError(t, err)
	appended, err := l.Append(second)
	require.NoError(t, err)

	found := l.FindByContentHash("hash-two")
	require.NotNil(t, found)
	assert.Equal(t, appended.Index, found.Index)
	assert.Equal(t, appended.Hash, found.Hash)

	assert.Nil(t, l.FindByContentHash("missing"))
}

func TestFindByContentHash_FirstMatchWins(t *testing.T) {
	l := newTestLedger(t)

	payload := samplePayload()
	payload.FileHash = "duplicate"
	first, err := l.Append(payload)
	require.NoError(t, err)
	_, err = l.Append(payload)
	require.NoError(t, err)

	found := l.FindByContentHash("duplicate")
	require.NotNil(t, found)
	assert.Equal(t, first.Index, found.Index)
}

func TestFindByOwner(t *testing.T) {
	l := newTestLedger(t)

	for i := 0; i < 3; i++ {
		p := samplePayload()
		p.FileHash = fmt.Sprintf("hash-%d", i)
		if i == 1 {
			p.OwnerID = "someone-else"
		}
		_, err := l.Append(p)
		require.NoError(t, err)
	}

	blocks := l.FindByOwner("u1")
	require.Len(t, blocks, 2)
	assert.Less(t, blocks[0].Index, blocks[1].Index)

	assert.Empty(t, l.FindByOwner("nobody"))
}

func TestStats(t *testing.T) {
	l := newTestLedger(t, WithDifficulty(2))
	_, err := l.Append(samplePayload())
	require.NoError(t, err)

	stats := l.Stats()
	assert.Equal(t, 2, stats.TotalBlocks)
	assert.Equal(t, 1, stats.EvidenceBlocks)
	assert.Equal(t, l.Block(0).Hash, stats.GenesisHash)
	assert.Equal(t, l.Block(1).Hash, stats.LatestHash)
	assert.True(t, stats.ChainValid)
	assert.Equal(t, 2, stats.Difficulty)

	l.blocks[1].Payload["file_hash"] = "tampered"
	assert.False(t, l.Stats().ChainValid)
}

func TestComputeHash_CanonicalMetadata(t *testing.T) {
	// Hashing must not depend on map insertion order.
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	build := func(meta map[string]string) *Block {
		p := samplePayload()
		p.Metadata = meta
		return &Block{
			Index:        1,
			Timestamp:    base.UnixMilli(),
			Payload:      p.toMap(),
			PreviousHash: "00abc",
		}
	}

	a := build(map[string]string{"source": "upload", "device": "android", "zone": "north"})
	b := build(map[string]string{"zone": "north", "device": "android", "source": "upload"})

	assert.Equal(t, a.ComputeHash(), b.ComputeHash())
}

func TestComputeHash_SensitiveToEveryField(t *testing.T) {
	block := &Block{
		Index:        1,
		Timestamp:    1700000000000,
		Payload:      samplePayload().toMap(),
		PreviousHash: "00abc",
		Nonce:        7,
	}
	original := block.ComputeHash()

	tests := []struct {
		name   string
		mutate func(b *Block)
	}{
		{"index", func(b *Block) { b.Index++ }},
		{"timestamp", func(b *Block) { b.Timestamp++ }},
		{"previous hash", func(b *Block) { b.PreviousHash = "00def" }},
		{"nonce", func(b *Block) { b.Nonce++ }},
		{"payload", func(b *Block) { b.Payload["file_hash"] = "other" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			copied := *block
			copied.Payload = samplePayload().toMap()
			tt.mutate(&copied)
			assert.NotEqual(t, original, copied.ComputeHash())
		})
	}
}

func TestAppend_ConcurrentWritersSerialized(t *testing.T) {
	l := newTestLedger(t, WithDifficulty(1))

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			p := samplePayload()
			p.FileHash = fmt.Sprintf("hash-%d", n)
			_, err := l.Append(p)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, writers+1, l.Length())
	assert.True(t, l.Validate())
}
