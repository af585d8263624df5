package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mlimwengu/CourseHubGo/internal/cache"
	"github.com/mlimwengu/CourseHubGo/internal/domain"
	"github.com/mlimwengu/CourseHubGo/internal/event"
	"github.com/mlimwengu/CourseHubGo/internal/repository"
	apperrors "github.com/mlimwengu/CourseHubGo/pkg/errors"
)

// PointsService implements the business logic for the points ledger and the
// redemption request lifecycle.
type PointsService struct {
	ledger         repository.LedgerRepository
	rewards        repository.RewardRepository
	producer       *event.Producer
	invalidator    *cache.Invalidator
	refundOnReject bool
	logger         *slog.Logger
}

// NewPointsService creates a new points service. With refundOnReject set,
// rejecting a redemption request credits the spent points back.
func NewPointsService(ledger repository.LedgerRepository, rewards repository.RewardRepository, producer *event.Producer, invalidator *cache.Invalidator, refundOnReject bool, logger *slog.Logger) *PointsService {
	return &PointsService{
		ledger:         ledger,
		rewards:        rewards,
		producer:       producer,
		invalidator:    invalidator,
		refundOnReject: refundOnReject,
		logger:         logger,
	}
}

// RedeemInput holds the parameters for redeeming points for a reward.
type RedeemInput struct {
	UserID   string `json:"user_id" validate:"required"`
	RewardID string `json:"reward_id" validate:"required"`
}

// Redeem exchanges points for a reward: the balance debit and the pending
// request creation commit together or not at all.
func (s *PointsService) Redeem(ctx context.Context, input RedeemInput) (*domain.RedemptionRequest, error) {
	reward, err := s.rewards.GetByID(ctx, input.RewardID)
	if err != nil {
		return nil, err
	}
	if !reward.Active {
		return nil, apperrors.InvalidInput("reward is not available for redemption")
	}
	if reward.PointsCost <= 0 {
		return nil, apperrors.InvalidInput("reward has no redeemable cost")
	}

	req := &domain.RedemptionRequest{
		ID:          uuid.New().String(),
		UserID:      input.UserID,
		RewardID:    reward.ID,
		PointsSpent: reward.PointsCost,
		Status:      domain.RedemptionStatusPending,
		RequestedAt: time.Now().UTC(),
	}

	if err := s.ledger.Redeem(ctx, req); err != nil {
		return nil, err
	}

	s.invalidator.Invalidate(ctx, cache.UserViewKeys(input.UserID)...)

	if err := s.producer.PublishPointsRedeemed(ctx, event.PointsRedeemedData{
		RequestID:   req.ID,
		UserID:      req.UserID,
		RewardID:    req.RewardID,
		PointsSpent: req.PointsSpent,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish points.redeemed event",
			slog.String("request_id", req.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "points redeemed",
		slog.String("request_id", req.ID),
		slog.String("user_id", req.UserID),
		slog.String("reward_id", req.RewardID),
		slog.Int64("points_spent", req.PointsSpent),
	)

	return req, nil
}

// CreditPoints adds points to a user's balance, for instance as a completion
// bonus or a manual adjustment.
func (s *PointsService) CreditPoints(ctx context.Context, userID string, points int64) (int64, error) {
	if points <= 0 {
		return 0, apperrors.InvalidInput("points must be positive")
	}

	balance, err := s.ledger.Credit(ctx, userID, points)
	if err != nil {
		return 0, err
	}

	s.invalidator.Invalidate(ctx, cache.UserViewKeys(userID)...)

	if err := s.producer.PublishPointsCredited(ctx, event.PointsCreditedData{
		UserID:     userID,
		Points:     points,
		NewBalance: balance,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish points.credited event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "points credited",
		slog.String("user_id", userID),
		slog.Int64("points", points),
		slog.Int64("new_balance", balance),
	)

	return balance, nil
}

// DecideRedemption moves a pending redemption request to approved or
// rejected. Terminal requests cannot be decided again.
func (s *PointsService) DecideRedemption(ctx context.Context, requestID, status, decidedBy string) (*domain.RedemptionRequest, error) {
	if status != domain.RedemptionStatusApproved && status != domain.RedemptionStatusRejected {
		return nil, apperrors.InvalidInput("status must be approved or rejected")
	}

	refund := s.refundOnReject && status == domain.RedemptionStatusRejected

	req, err := s.ledger.Decide(ctx, requestID, status, decidedBy, refund)
	if err != nil {
		return nil, err
	}

	keys := cache.UserViewKeys(req.UserID)
	s.invalidator.Invalidate(ctx, keys...)

	data := event.RedemptionStatusChangedData{
		RequestID:   req.ID,
		UserID:      req.UserID,
		RewardID:    req.RewardID,
		PointsSpent: req.PointsSpent,
		OldStatus:   domain.RedemptionStatusPending,
		NewStatus:   req.Status,
	}
	if reward, err := s.rewards.GetByID(ctx, req.RewardID); err == nil {
		data.RewardTitle = reward.Title
	}

	if err := s.producer.PublishRedemptionStatusChanged(ctx, data); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish redemption.status_changed event",
			slog.String("request_id", req.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "redemption request decided",
		slog.String("request_id", req.ID),
		slog.String("status", req.Status),
		slog.String("decided_by", decidedBy),
		slog.Bool("refunded", refund),
	)

	return req, nil
}

// GetRedemption retrieves a redemption request by ID.
func (s *PointsService) GetRedemption(ctx context.Context, id string) (*domain.RedemptionRequest, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("request id is required")
	}
	return s.ledger.GetRequest(ctx, id)
}

// ListRedemptions returns redemption requests matching the filter.
func (s *PointsService) ListRedemptions(ctx context.Context, filter repository.RedemptionFilter) ([]domain.RedemptionRequest, int, error) {
	if filter.Status != nil && !domain.IsValidRedemptionStatus(*filter.Status) {
		return nil, 0, apperrors.InvalidInput("invalid redemption status filter")
	}
	return s.ledger.ListRequests(ctx, filter)
}

// CreateRewardInput holds the parameters for creating a reward.
type CreateRewardInput struct {
	Title       string `json:"title" validate:"required,min=2,max=200"`
	Description string `json:"description" validate:"max=2000"`
	PointsCost  int64  `json:"points_cost" validate:"required,gt=0"`
	Active      bool   `json:"active"`
}

// CreateReward adds an entry to the reward catalog.
func (s *PointsService) CreateReward(ctx context.Context, input CreateRewardInput) (*domain.Reward, error) {
	reward := &domain.Reward{
		ID:          uuid.New().String(),
		Title:       input.Title,
		Description: input.Description,
		PointsCost:  input.PointsCost,
		Active:      input.Active,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.rewards.Create(ctx, reward); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "reward created",
		slog.String("reward_id", reward.ID),
		slog.Int64("points_cost", reward.PointsCost),
	)

	return reward, nil
}

// ListRewards returns reward catalog entries.
func (s *PointsService) ListRewards(ctx context.Context, activeOnly bool, page, perPage int) ([]domain.Reward, int, error) {
	return s.rewards.List(ctx, activeOnly, page, perPage)
}
