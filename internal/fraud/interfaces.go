package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FraudRepository captures what the scorer needs from the persistence
// layer. Lookups return (nil, nil) when no row matches.
type FraudRepository interface {
	// Reputation registry
	GetFraudNumber(ctx context.Context, phoneNumber string) (*FraudNumber, error)
	GetActiveFraudNumber(ctx context.Context, phoneNumber string) (*FraudNumber, error)
	CreateFraudNumber(ctx context.Context, number *FraudNumber) error
	UpdateFraudNumber(ctx context.Context, number *FraudNumber) error

	// Trust list
	GetTrustedNumber(ctx context.Context, userID uuid.UUID, phoneNumber string) (*TrustedNumber, error)
	CreateTrustedNumber(ctx context.Context, trusted *TrustedNumber) error

	// Pattern registry
	ListActivePatterns(ctx context.Context) ([]*FraudPattern, error)

	// Detection logs
	CreateDetectionLog(ctx context.Context, log *DetectionLog) error
	GetDetectionLogsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*DetectionLog, int64, error)
	UpdateDetectionLogResponse(ctx context.Context, logID, userID uuid.UUID, response UserResponse) error
	GetDetectionStats(ctx context.Context, since time.Time) (*DetectionStats, error)
}

// ReputationCache is a read-through cache for reputation lookups. A miss
// returns (nil, false, nil); cache errors are non-fatal to scoring.
type ReputationCache interface {
	Get(ctx context.Context, phoneNumber string) (*FraudNumber, bool, error)
	Set(ctx context.Context, number *FraudNumber) error
	Invalidate(ctx context.Context, phoneNumber string) error
}
