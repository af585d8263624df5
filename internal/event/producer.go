package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/mlimwengu/CourseHubGo/pkg/kafka"
)

// Kafka topic constants for domain events.
const (
	TopicReviewCreated           = "coursehub.review.created"
	TopicPointsRedeemed          = "coursehub.points.redeemed"
	TopicPointsCredited          = "coursehub.points.credited"
	TopicRedemptionStatusChanged = "coursehub.redemption.status_changed"
	TopicEnrollmentProgressed    = "coursehub.enrollment.progressed"
	TopicEnrollmentCompleted     = "coursehub.enrollment.completed"
)

// Aggregate type constants.
const (
	AggregateTypeCourse     = "course"
	AggregateTypeProduct    = "product"
	AggregateTypeUser       = "user"
	AggregateTypeRedemption = "redemption_request"
	AggregateTypeEnrollment = "enrollment"
)

// Source identifier for events originating from this service.
const SourceCoreService = "coursehub-core"

// ReviewCreatedData is the payload for a review.created event.
type ReviewCreatedData struct {
	TargetCollection string  `json:"target_collection"`
	TargetID         string  `json:"target_id"`
	TargetTitle      string  `json:"target_title"`
	TargetSlug       string  `json:"target_slug"`
	InstructorID     string  `json:"instructor_id,omitempty"`
	ReviewID         string  `json:"review_id"`
	AuthorID         string  `json:"author_id"`
	Rating           int     `json:"rating"`
	RatingAverage    float64 `json:"rating_average"`
	RatingCount      int     `json:"rating_count"`
}

// RedemptionStatusChangedData is the payload for a redemption.status_changed
// event.
type RedemptionStatusChangedData struct {
	RequestID   string `json:"request_id"`
	UserID      string `json:"user_id"`
	RewardID    string `json:"reward_id"`
	RewardTitle string `json:"reward_title,omitempty"`
	PointsSpent int64  `json:"points_spent"`
	OldStatus   string `json:"old_status"`
	NewStatus   string `json:"new_status"`
}

// PointsRedeemedData is the payload for a points.redeemed event.
type PointsRedeemedData struct {
	RequestID   string `json:"request_id"`
	UserID      string `json:"user_id"`
	RewardID    string `json:"reward_id"`
	PointsSpent int64  `json:"points_spent"`
}

// PointsCreditedData is the payload for a points.credited event.
type PointsCreditedData struct {
	UserID     string `json:"user_id"`
	Points     int64  `json:"points"`
	NewBalance int64  `json:"new_balance"`
}

// EnrollmentProgressedData is the payload for an enrollment.progressed event.
type EnrollmentProgressedData struct {
	EnrollmentID    string `json:"enrollment_id"`
	UserID          string `json:"user_id"`
	CourseID        string `json:"course_id"`
	LessonID        string `json:"lesson_id"`
	ProgressPercent int    `json:"progress_percent"`
}

// EnrollmentCompletedData is the payload for an enrollment.completed event.
type EnrollmentCompletedData struct {
	EnrollmentID string `json:"enrollment_id"`
	UserID       string `json:"user_id"`
	CourseID     string `json:"course_id"`
	CourseTitle  string `json:"course_title,omitempty"`
	CourseSlug   string `json:"course_slug,omitempty"`
	InstructorID string `json:"instructor_id,omitempty"`
}

// Producer publishes domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishReviewCreated publishes a review.created event carrying the review
// and the recomputed rating statistics.
func (p *Producer) PublishReviewCreated(ctx context.Context, data ReviewCreatedData) error {
	aggregateType := AggregateTypeCourse
	if data.TargetCollection != "courses" {
		aggregateType = AggregateTypeProduct
	}

	event, err := pkgkafka.NewEvent(TopicReviewCreated, data.TargetID, aggregateType, SourceCoreService, data)
	if err != nil {
		return fmt.Errorf("create review.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewCreated, event); err != nil {
		return fmt.Errorf("publish review.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.created event",
		slog.String("target_id", data.TargetID),
		slog.String("review_id", data.ReviewID),
		slog.Int("rating", data.Rating),
	)

	return nil
}

// PublishPointsRedeemed publishes a points.redeemed event.
func (p *Producer) PublishPointsRedeemed(ctx context.Context, data PointsRedeemedData) error {
	event, err := pkgkafka.NewEvent(TopicPointsRedeemed, data.UserID, AggregateTypeUser, SourceCoreService, data)
	if err != nil {
		return fmt.Errorf("create points.redeemed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicPointsRedeemed, event); err != nil {
		return fmt.Errorf("publish points.redeemed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published points.redeemed event",
		slog.String("request_id", data.RequestID),
		slog.String("user_id", data.UserID),
		slog.Int64("points_spent", data.PointsSpent),
	)

	return nil
}

// PublishPointsCredited publishes a points.credited event.
func (p *Producer) PublishPointsCredited(ctx context.Context, data PointsCreditedData) error {
	event, err := pkgkafka.NewEvent(TopicPointsCredited, data.UserID, AggregateTypeUser, SourceCoreService, data)
	if err != nil {
		return fmt.Errorf("create points.credited event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicPointsCredited, event); err != nil {
		return fmt.Errorf("publish points.credited event: %w", err)
	}

	p.logger.DebugContext(ctx, "published points.credited event",
		slog.String("user_id", data.UserID),
		slog.Int64("points", data.Points),
	)

	return nil
}

// PublishRedemptionStatusChanged publishes a redemption.status_changed event.
func (p *Producer) PublishRedemptionStatusChanged(ctx context.Context, data RedemptionStatusChangedData) error {
	event, err := pkgkafka.NewEvent(TopicRedemptionStatusChanged, data.RequestID, AggregateTypeRedemption, SourceCoreService, data)
	if err != nil {
		return fmt.Errorf("create redemption.status_changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicRedemptionStatusChanged, event); err != nil {
		return fmt.Errorf("publish redemption.status_changed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published redemption.status_changed event",
		slog.String("request_id", data.RequestID),
		slog.String("old_status", data.OldStatus),
		slog.String("new_status", data.NewStatus),
	)

	return nil
}

// PublishEnrollmentProgressed publishes an enrollment.progressed event.
func (p *Producer) PublishEnrollmentProgressed(ctx context.Context, data EnrollmentProgressedData) error {
	event, err := pkgkafka.NewEvent(TopicEnrollmentProgressed, data.EnrollmentID, AggregateTypeEnrollment, SourceCoreService, data)
	if err != nil {
		return fmt.Errorf("create enrollment.progressed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicEnrollmentProgressed, event); err != nil {
		return fmt.Errorf("publish enrollment.progressed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published enrollment.progressed event",
		slog.String("enrollment_id", data.EnrollmentID),
		slog.String("lesson_id", data.LessonID),
		slog.Int("progress_percent", data.ProgressPercent),
	)

	return nil
}

// PublishEnrollmentCompleted publishes an enrollment.completed event.
func (p *Producer) PublishEnrollmentCompleted(ctx context.Context, data EnrollmentCompletedData) error {
	event, err := pkgkafka.NewEvent(TopicEnrollmentCompleted, data.EnrollmentID, AggregateTypeEnrollment, SourceCoreService, data)
	if err != nil {
		return fmt.Errorf("create enrollment.completed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicEnrollmentCompleted, event); err != nil {
		return fmt.Errorf("publish enrollment.completed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published enrollment.completed event",
		slog.String("enrollment_id", data.EnrollmentID),
		slog.String("user_id", data.UserID),
		slog.String("course_id", data.CourseID),
	)

	return nil
}
