package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mlimwengu/CourseHubGo/internal/domain"
	"github.com/mlimwengu/CourseHubGo/internal/repository"
	apperrors "github.com/mlimwengu/CourseHubGo/pkg/errors"
)

// --- Mock Repositories ---

type mockLedgerRepository struct {
	mock.Mock
}

func (m *mockLedgerRepository) Redeem(ctx context.Context, req *domain.RedemptionRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *mockLedgerRepository) Credit(ctx context.Context, userID string, points int64) (int64, error) {
	args := m.Called(ctx, userID, points)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLedgerRepository) GetRequest(ctx context.Context, id string) (*domain.RedemptionRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RedemptionRequest), args.Error(1)
}

func (m *mockLedgerRepository) ListRequests(ctx context.Context, filter repository.RedemptionFilter) ([]domain.RedemptionRequest, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.RedemptionRequest), args.Int(1), args.Error(2)
}

func (m *mockLedgerRepository) Decide(ctx context.Context, id, status, decidedBy string, refund bool) (*domain.RedemptionRequest, error) {
	args := m.Called(ctx, id, status, decidedBy, refund)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RedemptionRequest), args.Error(1)
}

type mockRewardRepository struct {
	mock.Mock
}

func (m *mockRewardRepository) Create(ctx context.Context, reward *domain.Reward) error {
	args := m.Called(ctx, reward)
	return args.Error(0)
}

func (m *mockRewardRepository) GetByID(ctx context.Context, id string) (*domain.Reward, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reward), args.Error(1)
}

func (m *mockRewardRepository) List(ctx context.Context, activeOnly bool, page, perPage int) ([]domain.Reward, int, error) {
	args := m.Called(ctx, activeOnly, page, perPage)
	return args.Get(0).([]domain.Reward), args.Int(1), args.Error(2)
}

// --- Test Helpers ---

func newPointsService(t *testing.T, ledger *mockLedgerRepository, rewards *mockRewardRepository, refundOnReject bool) *PointsService {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewPointsService(ledger, rewards, newTestProducer(), newTestInvalidator(mr), refundOnReject, newTestLogger())
}

func activeReward() *domain.Reward {
	return &domain.Reward{
		ID:         "rwd-001",
		Title:      "Course voucher",
		PointsCost: 300,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}
}

// --- Redeem Tests ---

func TestPointsService_Redeem_Success(t *testing.T) {
	ledger := new(mockLedgerRepository)
	rewards := new(mockRewardRepository)
	svc := newPointsService(t, ledger, rewards, false)

	rewards.On("GetByID", mock.Anything, "rwd-001").Return(activeReward(), nil)
	ledger.On("Redeem", mock.Anything, mock.MatchedBy(func(req *domain.RedemptionRequest) bool {
		return req.UserID == "user-001" &&
			req.RewardID == "rwd-001" &&
			req.PointsSpent == 300 &&
			req.Status == domain.RedemptionStatusPending
	})).Return(nil)

	req, err := svc.Redeem(context.Background(), RedeemInput{UserID: "user-001", RewardID: "rwd-001"})
	require.NoError(t, err)
	assert.Equal(t, domain.RedemptionStatusPending, req.Status)
	assert.Equal(t, int64(300), req.PointsSpent)
	assert.NotEmpty(t, req.ID)

	ledger.AssertExpectations(t)
	rewards.AssertExpectations(t)
}

func TestPointsService_Redeem_InactiveReward(t *testing.T) {
	ledger := new(mockLedgerRepository)
	rewards := new(mockRewardRepository)
	svc := newPointsService(t, ledger, rewards, false)

	reward := activeReward()
	reward.Active = false
	rewards.On("GetByID", mock.Anything, "rwd-001").Return(reward, nil)

	_, err := svc.Redeem(context.Background(), RedeemInput{UserID: "user-001", RewardID: "rwd-001"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	ledger.AssertNotCalled(t, "Redeem", mock.Anything, mock.Anything)
}

func TestPointsService_Redeem_InsufficientBalance(t *testing.T) {
	ledger := new(mockLedgerRepository)
	rewards := new(mockRewardRepository)
	svc := newPointsService(t, ledger, rewards, false)

	rewards.On("GetByID", mock.Anything, "rwd-001").Return(activeReward(), nil)
	ledger.On("Redeem", mock.Anything, mock.Anything).
		Return(apperrors.InsufficientBalance(300, 100))

	_, err := svc.Redeem(context.Background(), RedeemInput{UserID: "user-001", RewardID: "rwd-001"})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)
}

func TestPointsService_Redeem_RewardNotFound(t *testing.T) {
	ledger := new(mockLedgerRepository)
	rewards := new(mockRewardRepository)
	svc := newPointsService(t, ledger, rewards, false)

	rewards.On("GetByID", mock.Anything, "missing").Return(nil, apperrors.NotFound("reward", "missing"))

	_, err := svc.Redeem(context.Background(), RedeemInput{UserID: "user-001", RewardID: "missing"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// --- CreditPoints Tests ---

func TestPointsService_CreditPoints_Success(t *testing.T) {
	ledger := new(mockLedgerRepository)
	rewards := new(mockRewardRepository)
	svc := newPointsService(t, ledger, rewards, false)

	ledger.On("Credit", mock.Anything, "user-001", int64(50)).Return(int64(150), nil)

	balance, err := svc.CreditPoints(context.Background(), "user-001", 50)
	require.NoError(t, err)
	assert.Equal(t, int64(150), balance)
}

func TestPointsService_CreditPoints_RejectsNonPositive(t *testing.T) {
	ledger := new(mockLedgerRepository)
	rewards := new(mockRewardRepository)
	svc := newPointsService(t, ledger, rewards, false)

	_, err := svc.CreditPoints(context.Background(), "user-001", 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.CreditPoints(context.Background(), "user-001", -10)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	ledger.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything)
}

// --- DecideRedemption Tests ---

func TestPointsService_DecideRedemption_Approve(t *testing.T) {
	ledger := new(mockLedgerRepository)
	rewards := new(mockRewardRepository)
	svc := newPointsService(t, ledger, rewards, false)

	now := time.Now().UTC()
	decided := &domain.RedemptionRequest{
		ID:          "red-001",
		UserID:      "user-001",
		RewardID:    "rwd-001",
		PointsSpent: 300,
		Status:      domain.RedemptionStatusApproved,
		DecidedAt:   &now,
		DecidedBy:   "admin-1",
	}

	ledger.On("Decide", mock.Anything, "red-001", domain.RedemptionStatusApproved, "admin-1", false).
		Return(decided, nil)
	rewards.On("GetByID", mock.Anything, "rwd-001").Return(activeReward(), nil)

	req, err := svc.DecideRedemption(context.Background(), "red-001", domain.RedemptionStatusApproved, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RedemptionStatusApproved, req.Status)
}

func TestPointsService_DecideRedemption_RejectWithRefundFlag(t *testing.T) {
	ledger := new(mockLedgerRepository)
	rewards := new(mockRewardRepository)
	svc := newPointsService(t, ledger, rewards, true)

	decided := &domain.RedemptionRequest{
		ID:          "red-001",
		UserID:      "user-001",
		RewardID:    "rwd-001",
		PointsSpent: 300,
		Status:      domain.RedemptionStatusRejected,
	}

	// The refund flag only applies to rejections.
	ledger.On("Decide", mock.Anything, "red-001", domain.RedemptionStatusRejected, "admin-1", true).
		Return(decided, nil)
	rewards.On("GetByID", mock.Anything, "rwd-001").Return(activeReward(), nil)

	_, err := svc.DecideRedemption(context.Background(), "red-001", domain.RedemptionStatusRejected, "admin-1")
	require.NoError(t, err)

	ledger.AssertExpectations(t)
}

func TestPointsService_DecideRedemption_ApproveNeverRefunds(t *testing.T) {
	ledger := new(mockLedgerRepository)
	rewards := new(mockRewardRepository)
	svc := newPointsService(t, ledger, rewards, true)

	decided := &domain.RedemptionRequest{
		ID:       "red-001",
		UserID:   "user-001",
		RewardID: "rwd-001",
		Status:   domain.RedemptionStatusApproved,
	}

	ledger.On("Decide", mock.Anything, "red-001", domain.RedemptionStatusApproved, "admin-1", false).
		Return(decided, nil)
	rewards.On("GetByID", mock.Anything, "rwd-001").Return(activeReward(), nil)

	_, err := svc.DecideRedemption(context.Background(), "red-001", domain.RedemptionStatusApproved, "admin-1")
	require.NoError(t, err)
}

func TestPointsService_DecideRedemption_InvalidStatus(t *testing.T) {
	ledger := new(mockLedgerRepository)
	rewards := new(mockRewardRepository)
	svc := newPointsService(t, ledger, rewards, false)

	_, err := svc.DecideRedemption(context.Background(), "red-001", "pending", "admin-1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.DecideRedemption(context.Background(), "red-001", "cancelled", "admin-1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	ledger.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPointsService_DecideRedemption_TerminalRequest(t *testing.T) {
	ledger := new(mockLedgerRepository)
	rewards := new(mockRewardRepository)
	svc := newPointsService(t, ledger, rewards, false)

	ledger.On("Decide", mock.Anything, "red-001", domain.RedemptionStatusRejected, "admin-1", false).
		Return(nil, apperrors.InvalidTransition("redemption request", domain.RedemptionStatusApproved, domain.RedemptionStatusRejected))

	_, err := svc.DecideRedemption(context.Background(), "red-001", domain.RedemptionStatusRejected, "admin-1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

// --- Reward Tests ---

func TestPointsService_CreateReward(t *testing.T) {
	ledger := new(mockLedgerRepository)
	rewards := new(mockRewardRepository)
	svc := newPointsService(t, ledger, rewards, false)

	rewards.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.Reward) bool {
		return r.Title == "Course voucher" && r.PointsCost == 300 && r.Active
	})).Return(nil)

	reward, err := svc.CreateReward(context.Background(), CreateRewardInput{
		Title:      "Course voucher",
		PointsCost: 300,
		Active:     true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, reward.ID)

	rewards.AssertExpectations(t)
}

func TestPointsService_ListRedemptions_InvalidStatusFilter(t *testing.T) {
	ledger := new(mockLedgerRepository)
	rewards := new(mockRewardRepository)
	svc := newPointsService(t, ledger, rewards, false)

	bad := "cancelled"
	_, _, err := svc.ListRedemptions(context.Background(), repository.RedemptionFilter{Status: &bad})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
