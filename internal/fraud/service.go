package fraud

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shailjagaurzz/jan-kavach/pkg/logger"
	"go.uber.org/zap"
)

var (
	detectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraud_detections_total",
		Help: "Detection events by resulting risk level",
	}, []string{"risk_level", "is_fraud"})

	detectionsDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fraud_detections_degraded_total",
		Help: "Detection events answered by the safe-default path",
	})
)

// Alert message templates and extra lines per detected signal type
var alertMessageByLevel = map[RiskLevel]string{
	RiskLevelLow:      "No significant risk indicators found for this number.",
	RiskLevelMedium:   "Caution: this number shows some risk indicators. Verify the caller before sharing any information.",
	RiskLevelHigh:     "Warning: this number is likely fraudulent. Do not share OTPs, bank details, or personal information.",
	RiskLevelCritical: "Danger: this number is strongly linked to fraud. End contact immediately and consider reporting it.",
}

var alertNoteBySignal = map[SignalType]string{
	SignalSuspiciousNumber: "This number has been reported by other users.",
	SignalPhishingURL:      "The message contains a suspicious link. Do not open it.",
	SignalFinancialKeyword: "The message uses known financial-scam phrasing.",
	SignalPhonePattern:     "The number's prefix is associated with scam call origins.",
}

var recommendedActionByLevel = map[RiskLevel]RecommendedAction{
	RiskLevelLow: {
		Action:       "monitor",
		Instructions: []string{"No action needed.", "Report the number if it behaves suspiciously."},
	},
	RiskLevelMedium: {
		Action:       "caution",
		Instructions: []string{"Do not share OTPs or account details.", "Verify the caller through an official channel."},
	},
	RiskLevelHigh: {
		Action:       "block",
		Instructions: []string{"Block this number.", "Do not respond to messages or calls.", "Report it to help others."},
	},
	RiskLevelCritical: {
		Action:       "block_and_report",
		Instructions: []string{"Block this number immediately.", "Report it via the national cybercrime helpline (1930).", "Preserve messages as evidence."},
	},
}

const (
	fraudThreshold  = 50
	trustMultiplier = 0.1
	maxRiskScore    = 100
	firstReportSeed = 60
)

// Service is the fraud risk scorer. The pattern registry is loaded once
// at construction and read-only afterwards; each DetectFraud call is
// otherwise stateless and safe to run concurrently.
type Service struct {
	repo     FraudRepository
	cache    ReputationCache
	matchers []patternMatcher
	now      func() time.Time
}

// ServiceOption configures optional service collaborators.
type ServiceOption func(*Service)

// WithReputationCache adds a read-through cache in front of reputation
// lookups. Cache failures fall back to the repository.
func WithReputationCache(cache ReputationCache) ServiceOption {
	return func(s *Service) {
		s.cache = cache
	}
}

// NewService builds the scorer and loads the active pattern registry.
func NewService(ctx context.Context, repo FraudRepository, opts ...ServiceOption) (*Service, error) {
	patterns, err := repo.ListActivePatterns(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading fraud patterns: %w", err)
	}

	s := &Service{
		repo:     repo,
		matchers: compileMatchers(patterns),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	logger.Info("Fraud pattern registry loaded", zap.Int("patterns", len(patterns)))
	return s, nil
}

// DetectFraud scores one detection event. It never returns an error: any
// internal failure degrades to a zero-risk result marked Degraded, since
// this sits on a real-time alerting path.
func (s *Service) DetectFraud(ctx context.Context, userID uuid.UUID, req *DetectionRequest) *DetectionResult {
	result, err := s.detect(ctx, userID, req)
	if err != nil {
		logger.Error("Fraud detection degraded to safe default",
			zap.String("user_id", userID.String()),
			zap.String("channel_type", string(req.ChannelType)),
			zap.Error(err))
		detectionsDegraded.Inc()
		return degradedResult()
	}

	detectionsTotal.WithLabelValues(string(result.RiskLevel), fmt.Sprintf("%t", result.IsFraud)).Inc()
	return result
}

func (s *Service) detect(ctx context.Context, userID uuid.UUID, req *DetectionRequest) (*DetectionResult, error) {
	var score float64
	signals := []Signal{}

	// 1. Reputation lookup
	record, err := s.lookupReputation(ctx, req.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("reputation lookup: %w", err)
	}
	if record != nil {
		confidence := float64(record.ReportCount) * 10
		if confidence > 100 {
			confidence = 100
		}
		score += record.ReputationScore
		signals = append(signals, Signal{
			Type:       SignalSuspiciousNumber,
			Category:   strings.Join(record.FraudTypes, ","),
			Confidence: confidence,
			Score:      record.ReputationScore,
		})
	}

	// 2. Trust override: dampens what reputation contributed, before any
	// content or phone signals are added.
	trusted, err := s.repo.GetTrustedNumber(ctx, userID, req.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("trust lookup: %w", err)
	}
	if trusted != nil {
		score *= trustMultiplier
	}

	// 3. Content analysis
	if req.Content != "" {
		contentScore, contentSignals := analyzeContent(req.Content, s.matchers)
		score += contentScore
		signals = append(signals, contentSignals...)
	}

	// 4. Phone structure analysis
	phoneScore, phoneSignals := analyzePhoneNumber(req.PhoneNumber)
	score += phoneScore
	signals = append(signals, phoneSignals...)

	if score > maxRiskScore {
		score = maxRiskScore
	}

	level := riskLevelForScore(score)
	result := &DetectionResult{
		RiskScore:         score,
		RiskLevel:         level,
		DetectedPatterns:  signals,
		IsFraud:           score >= fraudThreshold,
		AlertMessage:      buildAlertMessage(level, signals),
		RecommendedAction: recommendedActionByLevel[level],
	}

	log := &DetectionLog{
		ID:                uuid.New(),
		UserID:            userID,
		PhoneNumber:       req.PhoneNumber,
		ChannelType:       req.ChannelType,
		Content:           req.Content,
		RiskScore:         result.RiskScore,
		RiskLevel:         result.RiskLevel,
		IsFraud:           result.IsFraud,
		DetectedPatterns:  signals,
		AlertMessage:      result.AlertMessage,
		RecommendedAction: result.RecommendedAction,
		CreatedAt:         s.now().UTC(),
	}
	if err := s.repo.CreateDetectionLog(ctx, log); err != nil {
		return nil, fmt.Errorf("appending detection log: %w", err)
	}
	result.LogID = log.ID

	return result, nil
}

func (s *Service) lookupReputation(ctx context.Context, phoneNumber string) (*FraudNumber, error) {
	if s.cache != nil {
		if record, ok, err := s.cache.Get(ctx, phoneNumber); err == nil && ok {
			if record != nil && !record.IsActive {
				return nil, nil
			}
			return record, nil
		} else if err != nil {
			logger.Warn("Reputation cache read failed", zap.Error(err))
		}
	}

	record, err := s.repo.GetActiveFraudNumber(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && record != nil {
		if err := s.cache.Set(ctx, record); err != nil {
			logger.Warn("Reputation cache write failed", zap.Error(err))
		}
	}
	return record, nil
}

// ReportFraudNumber upserts the reputation record for a number. It returns
// an explicit failure result instead of an error; the store is the only
// thing that can fail here and the caller needs a message either way.
func (s *Service) ReportFraudNumber(ctx context.Context, reportedBy uuid.UUID, req *ReportRequest) *MutationResult {
	report := FraudReport{
		ReportedBy: reportedBy,
		FraudType:  req.FraudType,
		Reason:     req.Reason,
		Evidence:   req.Evidence,
		ReportedAt: s.now().UTC(),
	}

	existing, err := s.repo.GetFraudNumber(ctx, req.PhoneNumber)
	if err != nil {
		return &MutationResult{Success: false, Message: fmt.Sprintf("report failed: %v", err)}
	}

	if existing == nil {
		number := &FraudNumber{
			ID:              uuid.New(),
			PhoneNumber:     req.PhoneNumber,
			CountryCode:     countryCodeFor(req.PhoneNumber),
			FraudTypes:      []string{req.FraudType},
			ReputationScore: firstReportSeed,
			RiskLevel:       riskLevelForScore(firstReportSeed),
			ReportCount:     1,
			Reports:         []FraudReport{report},
			IsActive:        true,
			CreatedAt:       s.now().UTC(),
			UpdatedAt:       s.now().UTC(),
		}
		if err := s.repo.CreateFraudNumber(ctx, number); err != nil {
			return &MutationResult{Success: false, Message: fmt.Sprintf("report failed: %v", err)}
		}
		s.invalidateCache(ctx, req.PhoneNumber)
		return &MutationResult{Success: true, Message: "number reported"}
	}

	existing.ReportCount++
	existing.ReputationScore += 10 / float64(existing.ReportCount)
	if existing.ReputationScore > 100 {
		existing.ReputationScore = 100
	}
	existing.RiskLevel = riskLevelForScore(existing.ReputationScore)
	existing.Reports = append(existing.Reports, report)
	if !containsString(existing.FraudTypes, req.FraudType) {
		existing.FraudTypes = append(existing.FraudTypes, req.FraudType)
	}
	existing.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateFraudNumber(ctx, existing); err != nil {
		return &MutationResult{Success: false, Message: fmt.Sprintf("report failed: %v", err)}
	}
	s.invalidateCache(ctx, req.PhoneNumber)
	return &MutationResult{Success: true, Message: "report recorded"}
}

// AddTrustedNumber inserts a trust record for the user. Uniqueness is the
// store's concern.
func (s *Service) AddTrustedNumber(ctx context.Context, userID uuid.UUID, req *TrustRequest) *MutationResult {
	category := req.Category
	if category == "" {
		category = "personal"
	}

	trusted := &TrustedNumber{
		ID:          uuid.New(),
		UserID:      userID,
		PhoneNumber: req.PhoneNumber,
		Name:        req.Name,
		Category:    category,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.repo.CreateTrustedNumber(ctx, trusted); err != nil {
		return &MutationResult{Success: false, Message: fmt.Sprintf("trust listing failed: %v", err)}
	}
	return &MutationResult{Success: true, Message: "number added to trusted list"}
}

// UpdateLogResponse attaches the user's follow-up to one of their own
// detection logs.
func (s *Service) UpdateLogResponse(ctx context.Context, logID, userID uuid.UUID, response UserResponse) error {
	if !response.IsValid() {
		return fmt.Errorf("invalid user response %q", response)
	}
	return s.repo.UpdateDetectionLogResponse(ctx, logID, userID, response)
}

// ListDetectionLogs returns the user's detection history, newest first.
func (s *Service) ListDetectionLogs(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*DetectionLog, int64, error) {
	return s.repo.GetDetectionLogsByUser(ctx, userID, limit, offset)
}

// Stats aggregates detection activity over the trailing 30 days.
func (s *Service) Stats(ctx context.Context) (*DetectionStats, error) {
	return s.repo.GetDetectionStats(ctx, s.now().UTC().AddDate(0, 0, -30))
}

func (s *Service) invalidateCache(ctx context.Context, phoneNumber string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, phoneNumber); err != nil {
		logger.Warn("Reputation cache invalidation failed",
			zap.String("phone_number", phoneNumber), zap.Error(err))
	}
}

// degradedResult is the safe default returned when scoring fails: fail
// open to "not flagged" so the alerting path stays available.
func degradedResult() *DetectionResult {
	return &DetectionResult{
		RiskScore:         0,
		RiskLevel:         RiskLevelLow,
		DetectedPatterns:  []Signal{},
		IsFraud:           false,
		AlertMessage:      alertMessageByLevel[RiskLevelLow],
		RecommendedAction: recommendedActionByLevel[RiskLevelLow],
		Degraded:          true,
	}
}

func buildAlertMessage(level RiskLevel, signals []Signal) string {
	parts := []string{alertMessageByLevel[level]}
	seen := map[SignalType]bool{}
	for _, sig := range signals {
		note, ok := alertNoteBySignal[sig.Type]
		if !ok || seen[sig.Type] {
			continue
		}
		seen[sig.Type] = true
		parts = append(parts, note)
	}
	return strings.Join(parts, " ")
}

func countryCodeFor(phoneNumber string) string {
	if strings.HasPrefix(phoneNumber, "+91") {
		return "+91"
	}
	return "other"
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
