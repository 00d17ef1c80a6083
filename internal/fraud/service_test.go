package fraud

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFraudRepository struct {
	mock.Mock
}

func (m *mockFraudRepository) GetFraudNumber(ctx context.Context, phoneNumber string) (*FraudNumber, error) {
	args := m.Called(ctx, phoneNumber)
	number, _ := args.Get(0).(*FraudNumber)
	return number, args.Error(1)
}

func (m *mockFraudRepository) GetActiveFraudNumber(ctx context.Context, phoneNumber string) (*FraudNumber, error) {
	args := m.Called(ctx, phoneNumber)
	number, _ := args.Get(0).(*FraudNumber)
	return number, args.Error(1)
}

func (m *mockFraudRepository) CreateFraudNumber(ctx context.Context, number *FraudNumber) error {
	args := m.Called(ctx, number)
	return args.Error(0)
}

func (m *mockFraudRepository) UpdateFraudNumber(ctx context.Context, number *FraudNumber) error {
	args := m.Called(ctx, number)
	return args.Error(0)
}

func (m *mockFraudRepository) GetTrustedNumber(ctx context.Context, userID uuid.UUID, phoneNumber string) (*TrustedNumber, error) {
	args := m.Called(ctx, userID, phoneNumber)
	trusted, _ := args.Get(0).(*TrustedNumber)
	return trusted, args.Error(1)
}

func (m *mockFraudRepository) CreateTrustedNumber(ctx context.Context, trusted *TrustedNumber) error {
	args := m.Called(ctx, trusted)
	return args.Error(0)
}

func (m *mockFraudRepository) ListActivePatterns(ctx context.Context) ([]*FraudPattern, error) {
	args := m.Called(ctx)
	patterns, _ := args.Get(0).([]*FraudPattern)
	return patterns, args.Error(1)
}

func (m *mockFraudRepository) CreateDetectionLog(ctx context.Context, log *DetectionLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *mockFraudRepository) GetDetectionLogsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*DetectionLog, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	logs, _ := args.Get(0).([]*DetectionLog)
	return logs, args.Get(1).(int64), args.Error(2)
}

func (m *mockFraudRepository) UpdateDetectionLogResponse(ctx context.Context, logID, userID uuid.UUID, response UserResponse) error {
	args := m.Called(ctx, logID, userID, response)
	return args.Error(0)
}

func (m *mockFraudRepository) GetDetectionStats(ctx context.Context, since time.Time) (*DetectionStats, error) {
	args := m.Called(ctx, since)
	stats, _ := args.Get(0).(*DetectionStats)
	return stats, args.Error(1)
}

func newTestService(t *testing.T, repo *mockFraudRepository, patterns []*FraudPattern) *Service {
	t.Helper()
	repo.On("ListActivePatterns", mock.Anything).Return(patterns, nil).Once()
	service, err := NewService(context.Background(), repo)
	require.NoError(t, err)
	return service
}

func TestNewService_PatternLoadFailure(t *testing.T) {
	repo := new(mockFraudRepository)
	repo.On("ListActivePatterns", mock.Anything).Return(nil, errors.New("db down")).Once()

	_, err := NewService(context.Background(), repo)
	require.Error(t, err)
}

func TestDetectFraud_SuspiciousPrefixOnly(t *testing.T) {
	ctx := context.Background()
	repo := new(mockFraudRepository)
	service := newTestService(t, repo, nil)
	userID := uuid.New()

	repo.On("GetActiveFraudNumber", ctx, "+23412345678").Return(nil, nil).Once()
	repo.On("GetTrustedNumber", ctx, userID, "+23412345678").Return(nil, nil).Once()
	repo.On("CreateDetectionLog", ctx, mock.MatchedBy(func(log *DetectionLog) bool {
		return log.PhoneNumber == "+23412345678" && log.RiskScore == 20 && !log.IsFraud
	})).Return(nil).Once()

	result := service.DetectFraud(ctx, userID, &DetectionRequest{
		PhoneNumber: "+23412345678",
		ChannelType: ChannelPhoneCall,
	})

	assert.Equal(t, 20.0, result.RiskScore)
	assert.Equal(t, RiskLevelLow, result.RiskLevel)
	assert.False(t, result.IsFraud)
	assert.False(t, result.Degraded)
	require.Len(t, result.DetectedPatterns, 1)
	assert.Equal(t, SignalPhonePattern, result.DetectedPatterns[0].Type)
	repo.AssertExpectations(t)
}

func TestDetectFraud_PhishingContentFlagsFraud(t *testing.T) {
	ctx := context.Background()
	repo := new(mockFraudRepository)
	service := newTestService(t, repo, nil)
	userID := uuid.New()
	phone := "+911234567890"

	repo.On("GetActiveFraudNumber", ctx, phone).Return(nil, nil).Once()
	repo.On("GetTrustedNumber", ctx, userID, phone).Return(nil, nil).Once()
	repo.On("CreateDetectionLog", ctx, mock.Anything).Return(nil).Once()

	result := service.DetectFraud(ctx, userID, &DetectionRequest{
		PhoneNumber: phone,
		Content:     "Congratulations you have won! Claim at http://bit.ly/xyz",
		ChannelType: ChannelSMS,
	})

	var types []SignalType
	for _, s := range result.DetectedPatterns {
		types = append(types, s.Type)
	}
	assert.Contains(t, types, SignalPhishingURL)
	assert.Contains(t, types, SignalFinancialKeyword)
	assert.GreaterOrEqual(t, result.RiskScore, 55.0)
	assert.True(t, result.IsFraud)
	assert.NotEqual(t, uuid.Nil, result.LogID)
	repo.AssertExpectations(t)
}

func TestDetectFraud_ReputationContribution(t *testing.T) {
	ctx := context.Background()
	repo := new(mockFraudRepository)
	service := newTestService(t, repo, nil)
	userID := uuid.New()
	phone := "+911234567890"

	record := &FraudNumber{
		PhoneNumber:     phone,
		ReputationScore: 65,
		ReportCount:     4,
		FraudTypes:      []string{"otp_scam"},
		IsActive:        true,
	}

	repo.On("GetActiveFraudNumber", ctx, phone).Return(record, nil).Once()
	repo.On("GetTrustedNumber", ctx, userID, phone).Return(nil, nil).Once()
	repo.On("CreateDetectionLog", ctx, mock.Anything).Return(nil).Once()

	result := service.DetectFraud(ctx, userID, &DetectionRequest{
		PhoneNumber: phone,
		ChannelType: ChannelWhatsAppCall,
	})

	assert.Equal(t, 65.0, result.RiskScore)
	assert.Equal(t, RiskLevelHigh, result.RiskLevel)
	assert.True(t, result.IsFraud)
	require.NotEmpty(t, result.DetectedPatterns)
	assert.Equal(t, SignalSuspiciousNumber, result.DetectedPatterns[0].Type)
	assert.Equal(t, 40.0, result.DetectedPatterns[0].Confidence)
	repo.AssertExpectations(t)
}

func TestDetectFraud_ConfidenceCappedAtHundred(t *testing.T) {
	ctx := context.Background()
	repo := new(mockFraudRepository)
	service := newTestService(t, repo, nil)
	userID := uuid.New()
	phone := "+911234567890"

	record := &FraudNumber{PhoneNumber: phone, ReputationScore: 100, ReportCount: 25, IsActive: true}

	repo.On("GetActiveFraudNumber", ctx, phone).Return(record, nil).Once()
	repo.On("GetTrustedNumber", ctx, userID, phone).Return(nil, nil).Once()
	repo.On("CreateDetectionLog", ctx, mock.Anything).Return(nil).Once()

	result := service.DetectFraud(ctx, userID, &DetectionRequest{
		PhoneNumber: phone,
		ChannelType: ChannelPhoneCall,
	})

	assert.Equal(t, 100.0, result.DetectedPatterns[0].Confidence)
	assert.Equal(t, RiskLevelCritical, result.RiskLevel)
	repo.AssertExpectations(t)
}

func TestDetectFraud_TrustDampensReputation(t *testing.T) {
	ctx := context.Background()
	repo := new(mockFraudRepository)
	service := newTestService(t, repo, nil)
	userID := uuid.New()
	phone := "+15551234567"

	record := &FraudNumber{PhoneNumber: phone, ReputationScore: 90, ReportCount: 9, IsActive: true}
	trusted := &TrustedNumber{ID: uuid.New(), UserID: userID, PhoneNumber: phone, Name: "Mom"}

	repo.On("GetActiveFraudNumber", ctx, phone).Return(record, nil).Once()
	repo.On("GetTrustedNumber", ctx, userID, phone).Return(trusted, nil).Once()
	repo.On("CreateDetectionLog", ctx, mock.Anything).Return(nil).Once()

	result := service.DetectFraud(ctx, userID, &DetectionRequest{
		PhoneNumber: phone,
		ChannelType: ChannelPhoneCall,
	})

	assert.InDelta(t, 9.0, result.RiskScore, 0.001)
	assert.Equal(t, RiskLevelLow, result.RiskLevel)
	assert.False(t, result.IsFraud)
	repo.AssertExpectations(t)
}

func TestDetectFraud_TrustDoesNotSuppressLaterSignals(t *testing.T) {
	// The dampener applies mid-computation: content and phone signals
	// added afterwards are unaffected.
	ctx := context.Background()
	repo := new(mockFraudRepository)
	service := newTestService(t, repo, nil)
	userID := uuid.New()
	phone := "+23412345678"

	record := &FraudNumber{PhoneNumber: phone, ReputationScore: 50, ReportCount: 2, IsActive: true}
	trusted := &TrustedNumber{ID: uuid.New(), UserID: userID, PhoneNumber: phone}

	repo.On("GetActiveFraudNumber", ctx, phone).Return(record, nil).Once()
	repo.On("GetTrustedNumber", ctx, userID, phone).Return(trusted, nil).Once()
	repo.On("CreateDetectionLog", ctx, mock.Anything).Return(nil).Once()

	result := service.DetectFraud(ctx, userID, &DetectionRequest{
		PhoneNumber: phone,
		ChannelType: ChannelPhoneCall,
	})

	// 50 * 0.1 = 5, then +20 for the suspicious prefix
	assert.InDelta(t, 25.0, result.RiskScore, 0.001)
	repo.AssertExpectations(t)
}

func TestDetectFraud_FraudFlagThreshold(t *testing.T) {
	// The 50 threshold is independent of the 40/60/80 level bands: scores
	// 40-49 are medium but not flagged, 50-59 are medium and flagged.
	tests := []struct {
		reputation float64
		level      RiskLevel
		isFraud    bool
	}{
		{45, RiskLevelMedium, false},
		{50, RiskLevelMedium, true},
		{55, RiskLevelMedium, true},
	}

	for _, tt := range tests {
		ctx := context.Background()
		repo := new(mockFraudRepository)
		service := newTestService(t, repo, nil)
		userID := uuid.New()
		phone := "+911234567890"

		record := &FraudNumber{PhoneNumber: phone, ReputationScore: tt.reputation, ReportCount: 1, IsActive: true}
		repo.On("GetActiveFraudNumber", ctx, phone).Return(record, nil).Once()
		repo.On("GetTrustedNumber", ctx, userID, phone).Return(nil, nil).Once()
		repo.On("CreateDetectionLog", ctx, mock.Anything).Return(nil).Once()

		result := service.DetectFraud(ctx, userID, &DetectionRequest{
			PhoneNumber: phone,
			ChannelType: ChannelSMS,
		})

		assert.Equal(t, tt.level, result.RiskLevel, "score %v", tt.reputation)
		assert.Equal(t, tt.isFraud, result.IsFraud, "score %v", tt.reputation)
	}
}

func TestDetectFraud_DegradesOnRepositoryFailure(t *testing.T) {
	ctx := context.Background()
	repo := new(mockFraudRepository)
	service := newTestService(t, repo, nil)
	userID := uuid.New()

	repo.On("GetActiveFraudNumber", ctx, mock.Anything).Return(nil, errors.New("store unavailable")).Once()

	result := service.DetectFraud(ctx, userID, &DetectionRequest{
		PhoneNumber: "+911234567890",
		ChannelType: ChannelSMS,
	})

	assert.True(t, result.Degraded)
	assert.False(t, result.IsFraud)
	assert.Equal(t, 0.0, result.RiskScore)
	assert.Equal(t, RiskLevelLow, result.RiskLevel)
	repo.AssertExpectations(t)
}

func TestDetectFraud_DegradesOnLogAppendFailure(t *testing.T) {
	ctx := context.Background()
	repo := new(mockFraudRepository)
	service := newTestService(t, repo, nil)
	userID := uuid.New()
	phone := "+911234567890"

	repo.On("GetActiveFraudNumber", ctx, phone).Return(nil, nil).Once()
	repo.On("GetTrustedNumber", ctx, userID, phone).Return(nil, nil).Once()
	repo.On("CreateDetectionLog", ctx, mock.Anything).Return(errors.New("insert failed")).Once()

	result := service.DetectFraud(ctx, userID, &DetectionRequest{
		PhoneNumber: phone,
		ChannelType: ChannelSMS,
	})

	assert.True(t, result.Degraded)
	assert.False(t, result.IsFraud)
	repo.AssertExpectations(t)
}

func TestReportFraudNumber_FirstReportSeedsRecord(t *testing.T) {
	ctx := context.Background()
	repo := new(mockFraudRepository)
	service := newTestService(t, repo, nil)
	reporter := uuid.New()

	repo.On("GetFraudNumber", ctx, "+919876543210").Return(nil, nil).Once()
	repo.On("CreateFraudNumber", ctx, mock.MatchedBy(func(number *FraudNumber) bool {
		return number.PhoneNumber == "+919876543210" &&
			number.CountryCode == "+91" &&
			number.ReputationScore == 60 &&
			number.RiskLevel == RiskLevelHigh &&
			number.ReportCount == 1 &&
			len(number.Reports) == 1 &&
			number.IsActive
	})).Return(nil).Once()

	result := service.ReportFraudNumber(ctx, reporter, &ReportRequest{
		PhoneNumber: "+919876543210",
		FraudType:   "otp_scam",
		Reason:      "asked for my OTP",
	})

	assert.True(t, result.Success)
	repo.AssertExpectations(t)
}

func TestReportFraudNumber_RepeatReportsNudgeScore(t *testing.T) {
	ctx := context.Background()
	repo := new(mockFraudRepository)
	service := newTestService(t, repo, nil)
	reporter := uuid.New()
	phone := "+919876543210"

	existing := &FraudNumber{
		ID:              uuid.New(),
		PhoneNumber:     phone,
		CountryCode:     "+91",
		FraudTypes:      []string{"otp_scam"},
		ReputationScore: 60,
		RiskLevel:       RiskLevelHigh,
		ReportCount:     1,
		Reports:         []FraudReport{{ReportedBy: reporter, FraudType: "otp_scam"}},
		IsActive:        true,
	}

	// Second report: 60 + 10/2 = 65
	repo.On("GetFraudNumber", ctx, phone).Return(existing, nil).Once()
	repo.On("UpdateFraudNumber", ctx, mock.MatchedBy(func(number *FraudNumber) bool {
		return number.ReportCount == 2 &&
			number.ReputationScore == 65 &&
			len(number.Reports) == 2
	})).Return(nil).Once()

	result := service.ReportFraudNumber(ctx, reporter, &ReportRequest{PhoneNumber: phone, FraudType: "otp_scam"})
	require.True(t, result.Success)

	// Third report: 65 + 10/3 ≈ 68.33
	repo.On("GetFraudNumber", ctx, phone).Return(existing, nil).Once()
	repo.On("UpdateFraudNumber", ctx, mock.MatchedBy(func(number *FraudNumber) bool {
		return number.ReportCount == 3 &&
			number.ReputationScore > 68.3 && number.ReputationScore < 68.4 &&
			len(number.Reports) == 3
	})).Return(nil).Once()

	result = service.ReportFraudNumber(ctx, reporter, &ReportRequest{PhoneNumber: phone, FraudType: "otp_scam"})
	require.True(t, result.Success)
	repo.AssertExpectations(t)
}

func TestReportFraudNumber_ScoreClampedAtHundred(t *testing.T) {
	ctx := context.Background()
	repo := new(mockFraudRepository)
	service := newTestService(t, repo, nil)
	phone := "+919876543210"

	existing := &FraudNumber{
		ID:              uuid.New(),
		PhoneNumber:     phone,
		ReputationScore: 99.5,
		ReportCount:     3,
		Reports:         []FraudReport{},
		IsActive:        true,
	}

	repo.On("GetFraudNumber", ctx, phone).Return(existing, nil).Once()
	repo.On("UpdateFraudNumber", ctx, mock.MatchedBy(func(number *FraudNumber) bool {
		return number.ReputationScore == 100 && number.RiskLevel == RiskLevelCritical
	})).Return(nil).Once()

	result := service.ReportFraudNumber(ctx, uuid.New(), &ReportRequest{PhoneNumber: phone, FraudType: "lottery_scam"})
	assert.True(t, result.Success)
	repo.AssertExpectations(t)
}

func TestReportFraudNumber_NonIndianCountryCode(t *testing.T) {
	ctx := context.Background()
	repo := new(mockFraudRepository)
	service := newTestService(t, repo, nil)

	repo.On("GetFraudNumber", ctx, "+23412345678").Return(nil, nil).Once()
	repo.On("CreateFraudNumber", ctx, mock.MatchedBy(func(number *FraudNumber) bool {
		return number.CountryCode == "other"
	})).Return(nil).Once()

	result := service.ReportFraudNumber(ctx, uuid.New(), &ReportRequest{
		PhoneNumber: "+23412345678",
		FraudType:   "lottery_scam",
	})
	assert.True(t, result.Success)
	repo.AssertExpectations(t)
}

func TestReportFraudNumber_StoreFailureReturnsExplicitResult(t *testing.T) {
	ctx := context.Background()
	repo := new(mockFraudRepository)
	service := newTestService(t, repo, nil)

	repo.On("GetFraudNumber", ctx, mock.Anything).Return(nil, errors.New("store unavailable")).Once()

	result := service.ReportFraudNumber(ctx, uuid.New(), &ReportRequest{
		PhoneNumber: "+919876543210",
		FraudType:   "otp_scam",
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "store unavailable")
	repo.AssertExpectations(t)
}

func TestAddTrustedNumber(t *testing.T) {
	ctx := context.Background()
	repo := new(mockFraudRepository)
	service := newTestService(t, repo, nil)
	userID := uuid.New()

	repo.On("CreateTrustedNumber", ctx, mock.MatchedBy(func(trusted *TrustedNumber) bool {
		return trusted.UserID == userID &&
			trusted.PhoneNumber == "+911112223334" &&
			trusted.Name == "Bank RM" &&
			trusted.Category == "personal"
	})).Return(nil).Once()

	result := service.AddTrustedNumber(ctx, userID, &TrustRequest{
		PhoneNumber: "+911112223334",
		Name:        "Bank RM",
	})

	assert.True(t, result.Success)
	repo.AssertExpectations(t)
}

func TestAddTrustedNumber_DuplicateReturnsFailure(t *testing.T) {
	ctx := context.Background()
	repo := new(mockFraudRepository)
	service := newTestService(t, repo, nil)

	repo.On("CreateTrustedNumber", ctx, mock.Anything).Return(errors.New("duplicate key")).Once()

	result := service.AddTrustedNumber(ctx, uuid.New(), &TrustRequest{
		PhoneNumber: "+911112223334",
		Name:        "Someone",
	})

	assert.False(t, result.Success)
	repo.AssertExpectations(t)
}

func TestUpdateLogResponse_RejectsUnknownValue(t *testing.T) {
	repo := new(mockFraudRepository)
	service := newTestService(t, repo, nil)

	err := service.UpdateLogResponse(context.Background(), uuid.New(), uuid.New(), UserResponse("shrugged"))
	require.Error(t, err)
}

func TestUpdateLogResponse_Valid(t *testing.T) {
	ctx := context.Background()
	repo := new(mockFraudRepository)
	service := newTestService(t, repo, nil)
	logID, userID := uuid.New(), uuid.New()

	repo.On("UpdateDetectionLogResponse", ctx, logID, userID, ResponseBlockedNumber).Return(nil).Once()

	err := service.UpdateLogResponse(ctx, logID, userID, ResponseBlockedNumber)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestDetectFraud_RegistryPatternsApplied(t *testing.T) {
	ctx := context.Background()
	repo := new(mockFraudRepository)
	patterns := []*FraudPattern{
		{ID: uuid.New(), Pattern: `(?i)(otp|one time password).{0,20}(share|send|tell)`, RiskLevel: RiskLevelCritical, Category: "otp_phishing", Accuracy: 0.9, IsActive: true},
	}
	service := newTestService(t, repo, patterns)
	userID := uuid.New()
	phone := "+911234567890"

	repo.On("GetActiveFraudNumber", ctx, phone).Return(nil, nil).Once()
	repo.On("GetTrustedNumber", ctx, userID, phone).Return(nil, nil).Once()
	repo.On("CreateDetectionLog", ctx, mock.Anything).Return(nil).Once()

	result := service.DetectFraud(ctx, userID, &DetectionRequest{
		PhoneNumber: phone,
		Content:     "Your OTP 4321 - share it with our agent to get the refund",
		ChannelType: ChannelSMS,
	})

	found := false
	for _, s := range result.DetectedPatterns {
		if s.Type == SignalFraudPattern && s.Category == "otp_phishing" {
			found = true
			assert.Equal(t, 60.0, s.Score)
		}
	}
	assert.True(t, found)
	assert.True(t, result.IsFraud)
	repo.AssertExpectations(t)
}
