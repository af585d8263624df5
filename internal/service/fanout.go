package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mlimwengu/CourseHubGo/internal/domain"
	"github.com/mlimwengu/CourseHubGo/internal/event"
	"github.com/mlimwengu/CourseHubGo/internal/repository"
	apperrors "github.com/mlimwengu/CourseHubGo/pkg/errors"
)

// NotificationService creates notifications from committed domain events and
// serves each recipient's notification feed.
type NotificationService struct {
	repo   repository.NotificationRepository
	dedup  bool
	logger *slog.Logger
}

// NewNotificationService creates a new notification service. With dedup set,
// each recipient gets at most one notification per triggering event even
// when the event is redelivered.
func NewNotificationService(repo repository.NotificationRepository, dedup bool, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		dedup:  dedup,
		logger: logger,
	}
}

// recipientNotification is one planned insert of a fan-out.
type recipientNotification struct {
	userID      string
	title       string
	description string
	link        string
}

// FanOutReviewCreated notifies the course instructor about a new review.
func (s *NotificationService) FanOutReviewCreated(ctx context.Context, eventID string, data event.ReviewCreatedData) error {
	var recipients []recipientNotification
	if data.InstructorID != "" {
		recipients = append(recipients, recipientNotification{
			userID:      data.InstructorID,
			title:       fmt.Sprintf("New %d-star review on %s", data.Rating, data.TargetTitle),
			description: fmt.Sprintf("Rating is now %.2f across %d reviews.", data.RatingAverage, data.RatingCount),
			link:        "/courses/" + data.TargetSlug,
		})
	}

	return s.fanOut(ctx, eventID, recipients)
}

// FanOutRedemptionStatusChanged notifies the requesting user about the
// decision on their redemption request.
func (s *NotificationService) FanOutRedemptionStatusChanged(ctx context.Context, eventID string, data event.RedemptionStatusChangedData) error {
	title := "Redemption request updated"
	switch data.NewStatus {
	case domain.RedemptionStatusApproved:
		title = "Redemption request approved"
	case domain.RedemptionStatusRejected:
		title = "Redemption request rejected"
	}

	description := fmt.Sprintf("%d points", data.PointsSpent)
	if data.RewardTitle != "" {
		description = fmt.Sprintf("%s for %d points", data.RewardTitle, data.PointsSpent)
	}

	recipients := []recipientNotification{{
		userID:      data.UserID,
		title:       title,
		description: description,
		link:        "/redemptions/" + data.RequestID,
	}}

	return s.fanOut(ctx, eventID, recipients)
}

// FanOutEnrollmentCompleted notifies the learner and the course instructor
// about a completed course.
func (s *NotificationService) FanOutEnrollmentCompleted(ctx context.Context, eventID string, data event.EnrollmentCompletedData) error {
	courseName := data.CourseTitle
	if courseName == "" {
		courseName = "your course"
	}

	recipients := []recipientNotification{{
		userID:      data.UserID,
		title:       "Course completed",
		description: fmt.Sprintf("You finished %s.", courseName),
		link:        "/courses/" + data.CourseSlug,
	}}
	if data.InstructorID != "" {
		recipients = append(recipients, recipientNotification{
			userID:      data.InstructorID,
			title:       "A learner completed your course",
			description: fmt.Sprintf("A learner finished %s.", courseName),
			link:        "/courses/" + data.CourseSlug,
		})
	}

	return s.fanOut(ctx, eventID, recipients)
}

// fanOut inserts one notification per recipient. Each insert is independent:
// one failed recipient is logged and does not block the others. The error
// returned reflects whether any insert failed, so the consumer can retry the
// event; dedup keys make the retry safe for recipients already served.
func (s *NotificationService) fanOut(ctx context.Context, eventID string, recipients []recipientNotification) error {
	var failed int
	for _, r := range recipients {
		n := &domain.Notification{
			ID:          uuid.New().String(),
			UserID:      r.userID,
			Title:       r.title,
			Description: r.description,
			Link:        r.link,
			CreatedAt:   time.Now().UTC(),
		}
		if s.dedup {
			n.DedupKey = domain.NotificationDedupKey(eventID, r.userID)
		}

		created, err := s.repo.Create(ctx, n)
		if err != nil {
			failed++
			s.logger.ErrorContext(ctx, "failed to create notification",
				slog.String("user_id", r.userID),
				slog.String("event_id", eventID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !created {
			s.logger.DebugContext(ctx, "duplicate notification dropped",
				slog.String("user_id", r.userID),
				slog.String("event_id", eventID),
			)
		}
	}

	if failed > 0 {
		return fmt.Errorf("fan-out: %d of %d notifications failed", failed, len(recipients))
	}
	return nil
}

// ListNotifications returns the recipient's notifications with total and
// unread counts.
func (s *NotificationService) ListNotifications(ctx context.Context, userID string, filter repository.NotificationFilter) ([]domain.Notification, int, int, error) {
	if userID == "" {
		return nil, 0, 0, apperrors.InvalidInput("user id is required")
	}
	return s.repo.ListByUserID(ctx, userID, filter)
}

// MarkNotificationRead marks one of the recipient's notifications as read.
func (s *NotificationService) MarkNotificationRead(ctx context.Context, id, userID string) error {
	if id == "" || userID == "" {
		return apperrors.InvalidInput("notification id and user id are required")
	}
	return s.repo.MarkRead(ctx, id, userID)
}
