package fraud

import (
	"time"

	"github.com/google/uuid"
)

// RiskLevel categorizes a risk score into fixed bands
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// ChannelType identifies how the suspect contact reached the user
type ChannelType string

const (
	ChannelSMS          ChannelType = "sms"
	ChannelWhatsAppMsg  ChannelType = "whatsapp_message"
	ChannelWhatsAppCall ChannelType = "whatsapp_call"
	ChannelPhoneCall    ChannelType = "phone_call"
)

// UserResponse is the caller-driven follow-up attached to a detection log
type UserResponse string

const (
	ResponseMarkedSafe     UserResponse = "marked_safe"
	ResponseConfirmedFraud UserResponse = "confirmed_fraud"
	ResponseIgnored        UserResponse = "ignored"
	ResponseBlockedNumber  UserResponse = "blocked_number"
)

// SignalType identifies which evaluator produced a signal
type SignalType string

const (
	SignalSuspiciousNumber SignalType = "suspicious_number"
	SignalFraudPattern     SignalType = "fraud_pattern"
	SignalPhishingURL      SignalType = "phishing_url"
	SignalFinancialKeyword SignalType = "financial_fraud_keyword"
	SignalContentHeuristic SignalType = "content_heuristic"
	SignalPhonePattern     SignalType = "suspicious_phone_pattern"
	SignalPhoneLength      SignalType = "invalid_phone_length"
	SignalRepeatedDigits   SignalType = "repeated_digits"
)

// Signal is one evaluator's contribution to a detection result.
// Insertion order in DetectedPatterns is evaluation order.
type Signal struct {
	Type       SignalType `json:"type"`
	Pattern    string     `json:"pattern,omitempty"`
	Category   string     `json:"category,omitempty"`
	Confidence float64    `json:"confidence"`
	Score      float64    `json:"score"`
}

// RecommendedAction tells the user what to do about a detection
type RecommendedAction struct {
	Action       string   `json:"action"`
	Instructions []string `json:"instructions"`
}

// DetectionRequest is one scoring request for a candidate number/content
type DetectionRequest struct {
	PhoneNumber string            `json:"phone_number" binding:"required" validate:"required,phone"`
	Content     string            `json:"content"`
	ChannelType ChannelType       `json:"channel_type" binding:"required" validate:"required,channel_type"`
	Metadata    map[string]string `json:"metadata"`
}

// DetectionResult is the scorer output. Degraded marks a result produced
// by the safe-default path after an internal failure.
type DetectionResult struct {
	LogID             uuid.UUID         `json:"log_id,omitempty"`
	RiskScore         float64           `json:"risk_score"`
	RiskLevel         RiskLevel         `json:"risk_level"`
	DetectedPatterns  []Signal          `json:"detected_patterns"`
	IsFraud           bool              `json:"is_fraud"`
	AlertMessage      string            `json:"alert_message"`
	RecommendedAction RecommendedAction `json:"recommended_action"`
	Degraded          bool              `json:"degraded,omitempty"`
}

// FraudReport is one entry in a number's report history
type FraudReport struct {
	ReportedBy uuid.UUID `json:"reported_by"`
	FraudType  string    `json:"fraud_type"`
	Reason     string    `json:"reason"`
	Evidence   string    `json:"evidence,omitempty"`
	ReportedAt time.Time `json:"reported_at"`
}

// FraudNumber is the persisted reputation record for a phone number
type FraudNumber struct {
	ID              uuid.UUID     `json:"id"`
	PhoneNumber     string        `json:"phone_number"`
	CountryCode     string        `json:"country_code"`
	FraudTypes      []string      `json:"fraud_types"`
	ReputationScore float64       `json:"reputation_score"`
	RiskLevel       RiskLevel     `json:"risk_level"`
	ReportCount     int           `json:"report_count"`
	Reports         []FraudReport `json:"reports"`
	IsActive        bool          `json:"is_active"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// TrustedNumber is a per-user allowlist entry
type TrustedNumber struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	PhoneNumber string    `json:"phone_number"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

// FraudPattern is a persisted content-matching rule
type FraudPattern struct {
	ID        uuid.UUID `json:"id"`
	Pattern   string    `json:"pattern"`
	RiskLevel RiskLevel `json:"risk_level"`
	Category  string    `json:"category"`
	Accuracy  float64   `json:"accuracy"`
	IsActive  bool      `json:"is_active"`
}

// DetectionLog is the immutable record of one detection event. Only the
// user response fields may be attached after the fact.
type DetectionLog struct {
	ID                uuid.UUID         `json:"id"`
	UserID            uuid.UUID         `json:"user_id"`
	PhoneNumber       string            `json:"phone_number"`
	ChannelType       ChannelType       `json:"channel_type"`
	Content           string            `json:"content,omitempty"`
	RiskScore         float64           `json:"risk_score"`
	RiskLevel         RiskLevel         `json:"risk_level"`
	IsFraud           bool              `json:"is_fraud"`
	DetectedPatterns  []Signal          `json:"detected_patterns"`
	AlertMessage      string            `json:"alert_message"`
	RecommendedAction RecommendedAction `json:"recommended_action"`
	Degraded          bool              `json:"degraded"`
	UserResponse      *UserResponse     `json:"user_response,omitempty"`
	RespondedAt       *time.Time        `json:"responded_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

// ReportRequest submits a community fraud report for a number
type ReportRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required" validate:"required,phone"`
	FraudType   string `json:"fraud_type" binding:"required"`
	Reason      string `json:"reason"`
	Evidence    string `json:"evidence"`
}

// TrustRequest adds a number to the caller's trust list
type TrustRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required" validate:"required,phone"`
	Name        string `json:"name" binding:"required"`
	Category    string `json:"category"`
}

// ResponseRequest attaches a user response to a detection log
type ResponseRequest struct {
	Response UserResponse `json:"response" binding:"required" validate:"required,user_response"`
}

// MutationResult reports the outcome of a report/trust mutation
type MutationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DetectionStats aggregates detection logs over a period
type DetectionStats struct {
	TotalDetections int64 `json:"total_detections"`
	FraudDetections int64 `json:"fraud_detections"`
	CriticalCount   int64 `json:"critical_count"`
	HighCount       int64 `json:"high_count"`
	MediumCount     int64 `json:"medium_count"`
	LowCount        int64 `json:"low_count"`
	DegradedCount   int64 `json:"degraded_count"`
}

// riskLevelForScore maps a score onto the fixed bands
func riskLevelForScore(score float64) RiskLevel {
	switch {
	case score >= 80:
		return RiskLevelCritical
	case score >= 60:
		return RiskLevelHigh
	case score >= 40:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// IsValid reports whether the response is one of the accepted values
func (r UserResponse) IsValid() bool {
	switch r {
	case ResponseMarkedSafe, ResponseConfirmedFraud, ResponseIgnored, ResponseBlockedNumber:
		return true
	}
	return false
}

// IsValid reports whether the channel is one of the accepted values
func (c ChannelType) IsValid() bool {
	switch c {
	case ChannelSMS, ChannelWhatsAppMsg, ChannelWhatsAppCall, ChannelPhoneCall:
		return true
	}
	return false
}
