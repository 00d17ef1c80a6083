package fraud

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles fraud detection data operations
type Repository struct {
	db *pgxpool.Pool
}

// Ensure the concrete repository satisfies the service's requirements.
var _ FraudRepository = (*Repository)(nil)

// NewRepository creates a new fraud repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const fraudNumberColumns = `
	id, phone_number, country_code, fraud_types, reputation_score,
	risk_level, report_count, reports, is_active, created_at, updated_at
`

func scanFraudNumber(row pgx.Row) (*FraudNumber, error) {
	var number FraudNumber
	var reportsJSON []byte

	err := row.Scan(
		&number.ID,
		&number.PhoneNumber,
		&number.CountryCode,
		&number.FraudTypes,
		&number.ReputationScore,
		&number.RiskLevel,
		&number.ReportCount,
		&reportsJSON,
		&number.IsActive,
		&number.CreatedAt,
		&number.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(reportsJSON, &number.Reports); err != nil {
		number.Reports = []FraudReport{}
	}
	return &number, nil
}

// GetFraudNumber retrieves a reputation record regardless of active state
func (r *Repository) GetFraudNumber(ctx context.Context, phoneNumber string) (*FraudNumber, error) {
	query := `SELECT ` + fraudNumberColumns + ` FROM fraud_numbers WHERE phone_number = $1`
	return scanFraudNumber(r.db.QueryRow(ctx, query, phoneNumber))
}

// GetActiveFraudNumber retrieves an active reputation record
func (r *Repository) GetActiveFraudNumber(ctx context.Context, phoneNumber string) (*FraudNumber, error) {
	query := `SELECT ` + fraudNumberColumns + ` FROM fraud_numbers WHERE phone_number = $1 AND is_active`
	return scanFraudNumber(r.db.QueryRow(ctx, query, phoneNumber))
}

// CreateFraudNumber inserts a new reputation record
func (r *Repository) CreateFraudNumber(ctx context.Context, number *FraudNumber) error {
	reportsJSON, err := json.Marshal(number.Reports)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO fraud_numbers (
			id, phone_number, country_code, fraud_types, reputation_score,
			risk_level, report_count, reports, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.Exec(ctx, query,
		number.ID,
		number.PhoneNumber,
		number.CountryCode,
		number.FraudTypes,
		number.ReputationScore,
		number.RiskLevel,
		number.ReportCount,
		reportsJSON,
		number.IsActive,
		number.CreatedAt,
		number.UpdatedAt,
	)
	return err
}

// UpdateFraudNumber updates an existing reputation record
func (r *Repository) UpdateFraudNumber(ctx context.Context, number *FraudNumber) error {
	reportsJSON, err := json.Marshal(number.Reports)
	if err != nil {
		return err
	}

	query := `
		UPDATE fraud_numbers
		SET country_code = $2,
		    fraud_types = $3,
		    reputation_score = $4,
		    risk_level = $5,
		    report_count = $6,
		    reports = $7,
		    is_active = $8,
		    updated_at = $9
		WHERE id = $1
	`

	_, err = r.db.Exec(ctx, query,
		number.ID,
		number.CountryCode,
		number.FraudTypes,
		number.ReputationScore,
		number.RiskLevel,
		number.ReportCount,
		reportsJSON,
		number.IsActive,
		number.UpdatedAt,
	)
	return err
}

// GetTrustedNumber retrieves a trust record for (user, phone)
func (r *Repository) GetTrustedNumber(ctx context.Context, userID uuid.UUID, phoneNumber string) (*TrustedNumber, error) {
	query := `
		SELECT id, user_id, phone_number, name, category, created_at
		FROM trusted_numbers
		WHERE user_id = $1 AND phone_number = $2
	`

	var trusted TrustedNumber
	err := r.db.QueryRow(ctx, query, userID, phoneNumber).Scan(
		&trusted.ID,
		&trusted.UserID,
		&trusted.PhoneNumber,
		&trusted.Name,
		&trusted.Category,
		&trusted.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &trusted, nil
}

// CreateTrustedNumber inserts a trust record
func (r *Repository) CreateTrustedNumber(ctx context.Context, trusted *TrustedNumber) error {
	query := `
		INSERT INTO trusted_numbers (id, user_id, phone_number, name, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		trusted.ID,
		trusted.UserID,
		trusted.PhoneNumber,
		trusted.Name,
		trusted.Category,
		trusted.CreatedAt,
	)
	return err
}

// ListActivePatterns retrieves the active content-matching rules
func (r *Repository) ListActivePatterns(ctx context.Context) ([]*FraudPattern, error) {
	query := `
		SELECT id, pattern, risk_level, category, accuracy, is_active
		FROM fraud_patterns
		WHERE is_active
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	patterns := make([]*FraudPattern, 0)
	for rows.Next() {
		var pattern FraudPattern
		if err := rows.Scan(
			&pattern.ID,
			&pattern.Pattern,
			&pattern.RiskLevel,
			&pattern.Category,
			&pattern.Accuracy,
			&pattern.IsActive,
		); err != nil {
			return nil, err
		}
		patterns = append(patterns, &pattern)
	}
	return patterns, rows.Err()
}

// CreateDetectionLog appends an immutable detection log entry
func (r *Repository) CreateDetectionLog(ctx context.Context, log *DetectionLog) error {
	patternsJSON, err := json.Marshal(log.DetectedPatterns)
	if err != nil {
		return err
	}
	actionJSON, err := json.Marshal(log.RecommendedAction)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO detection_logs (
			id, user_id, phone_number, channel_type, content, risk_score,
			risk_level, is_fraud, detected_patterns, alert_message,
			recommended_action, degraded, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.db.Exec(ctx, query,
		log.ID,
		log.UserID,
		log.PhoneNumber,
		log.ChannelType,
		log.Content,
		log.RiskScore,
		log.RiskLevel,
		log.IsFraud,
		patternsJSON,
		log.AlertMessage,
		actionJSON,
		log.Degraded,
		log.CreatedAt,
	)
	return err
}

// GetDetectionLogsByUser retrieves a user's detection history with total count
func (r *Repository) GetDetectionLogsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*DetectionLog, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM detection_logs WHERE user_id = $1`
	if err := r.db.QueryRow(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, user_id, phone_number, channel_type, content, risk_score,
		       risk_level, is_fraud, detected_patterns, alert_message,
		       recommended_action, degraded, user_response, responded_at, created_at
		FROM detection_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := make([]*DetectionLog, 0)
	for rows.Next() {
		var log DetectionLog
		var patternsJSON, actionJSON []byte
		var userResponse sql.NullString
		var respondedAt sql.NullTime

		if err := rows.Scan(
			&log.ID,
			&log.UserID,
			&log.PhoneNumber,
			&log.ChannelType,
			&log.Content,
			&log.RiskScore,
			&log.RiskLevel,
			&log.IsFraud,
			&patternsJSON,
			&log.AlertMessage,
			&actionJSON,
			&log.Degraded,
			&userResponse,
			&respondedAt,
			&log.CreatedAt,
		); err != nil {
			return nil, 0, err
		}

		if err := json.Unmarshal(patternsJSON, &log.DetectedPatterns); err != nil {
			log.DetectedPatterns = []Signal{}
		}
		if err := json.Unmarshal(actionJSON, &log.RecommendedAction); err != nil {
			log.RecommendedAction = RecommendedAction{}
		}
		if userResponse.Valid {
			response := UserResponse(userResponse.String)
			log.UserResponse = &response
		}
		if respondedAt.Valid {
			log.RespondedAt = &respondedAt.Time
		}

		logs = append(logs, &log)
	}
	return logs, total, rows.Err()
}

// UpdateDetectionLogResponse attaches the user's response to their own log
func (r *Repository) UpdateDetectionLogResponse(ctx context.Context, logID, userID uuid.UUID, response UserResponse) error {
	query := `
		UPDATE detection_logs
		SET user_response = $3, responded_at = NOW()
		WHERE id = $1 AND user_id = $2
	`

	tag, err := r.db.Exec(ctx, query, logID, userID, response)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// GetDetectionStats aggregates detection logs since the given time
func (r *Repository) GetDetectionStats(ctx context.Context, since time.Time) (*DetectionStats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(CASE WHEN is_fraud THEN 1 END) AS fraud,
			COUNT(CASE WHEN risk_level = 'critical' THEN 1 END) AS critical,
			COUNT(CASE WHEN risk_level = 'high' THEN 1 END) AS high,
			COUNT(CASE WHEN risk_level = 'medium' THEN 1 END) AS medium,
			COUNT(CASE WHEN risk_level = 'low' THEN 1 END) AS low,
			COUNT(CASE WHEN degraded THEN 1 END) AS degraded
		FROM detection_logs
		WHERE created_at >= $1
	`

	var stats DetectionStats
	err := r.db.QueryRow(ctx, query, since).Scan(
		&stats.TotalDetections,
		&stats.FraudDetections,
		&stats.CriticalCount,
		&stats.HighCount,
		&stats.MediumCount,
		&stats.LowCount,
		&stats.DegradedCount,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
