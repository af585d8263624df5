package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mlimwengu/CourseHubGo/internal/cache"
	"github.com/mlimwengu/CourseHubGo/internal/domain"
	"github.com/mlimwengu/CourseHubGo/internal/event"
	"github.com/mlimwengu/CourseHubGo/internal/repository"
	apperrors "github.com/mlimwengu/CourseHubGo/pkg/errors"
)

// ReviewService appends reviews to course and product aggregates and keeps
// their rating statistics consistent. The review entry and the recomputed
// statistics land in one conditional write, so readers never observe one
// without the other.
type ReviewService struct {
	store            repository.DocumentStore
	producer         *event.Producer
	invalidator      *cache.Invalidator
	rejectDuplicates bool
	logger           *slog.Logger
}

// NewReviewService creates a new review service. With rejectDuplicates set,
// a second review by the same author on the same aggregate fails instead of
// being appended.
func NewReviewService(store repository.DocumentStore, producer *event.Producer, invalidator *cache.Invalidator, rejectDuplicates bool, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		store:            store,
		producer:         producer,
		invalidator:      invalidator,
		rejectDuplicates: rejectDuplicates,
		logger:           logger,
	}
}

// AddReviewInput holds the parameters for adding a review.
type AddReviewInput struct {
	AuthorID string `json:"author_id" validate:"required"`
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Comment  string `json:"comment" validate:"max=2000"`
}

// AddCourseReview appends a review to a course and recomputes its rating
// statistics atomically.
func (s *ReviewService) AddCourseReview(ctx context.Context, courseID string, input AddReviewInput) (*domain.Course, error) {
	if !domain.IsValidRating(input.Rating) {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}

	review := domain.Review{
		ID:        uuid.New().String(),
		AuthorID:  input.AuthorID,
		Rating:    input.Rating,
		Comment:   input.Comment,
		CreatedAt: time.Now().UTC(),
	}

	var course domain.Course
	_, _, err := s.store.Apply(ctx, repository.CollectionCourses, courseID, func(data []byte) ([]byte, bool, error) {
		course = domain.Course{}
		if err := json.Unmarshal(data, &course); err != nil {
			return nil, false, fmt.Errorf("unmarshal course: %w", err)
		}

		if s.rejectDuplicates && course.Ratings.HasReviewBy(input.AuthorID) {
			return nil, false, apperrors.AlreadyExists("review", "author_id", input.AuthorID)
		}

		course.Ratings.Add(review)
		course.UpdatedAt = review.CreatedAt

		newData, err := json.Marshal(&course)
		if err != nil {
			return nil, false, fmt.Errorf("marshal course: %w", err)
		}
		return newData, true, nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidator.Invalidate(ctx, cache.CourseViewKeys(course.ID, course.Slug)...)

	if err := s.producer.PublishReviewCreated(ctx, event.ReviewCreatedData{
		TargetCollection: repository.CollectionCourses,
		TargetID:         course.ID,
		TargetTitle:      course.Title,
		TargetSlug:       course.Slug,
		InstructorID:     course.InstructorID,
		ReviewID:         review.ID,
		AuthorID:         review.AuthorID,
		Rating:           review.Rating,
		RatingAverage:    course.Ratings.Average,
		RatingCount:      course.Ratings.Count,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.String("course_id", course.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "review added",
		slog.String("course_id", course.ID),
		slog.String("review_id", review.ID),
		slog.Int("rating", review.Rating),
		slog.Float64("rating_average", course.Ratings.Average),
		slog.Int("rating_count", course.Ratings.Count),
	)

	return &course, nil
}

// AddProductReview appends a review to a product and recomputes its rating
// statistics atomically.
func (s *ReviewService) AddProductReview(ctx context.Context, productID string, input AddReviewInput) (*domain.Product, error) {
	if !domain.IsValidRating(input.Rating) {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}

	review := domain.Review{
		ID:        uuid.New().String(),
		AuthorID:  input.AuthorID,
		Rating:    input.Rating,
		Comment:   input.Comment,
		CreatedAt: time.Now().UTC(),
	}

	var product domain.Product
	_, _, err := s.store.Apply(ctx, repository.CollectionProducts, productID, func(data []byte) ([]byte, bool, error) {
		product = domain.Product{}
		if err := json.Unmarshal(data, &product); err != nil {
			return nil, false, fmt.Errorf("unmarshal product: %w", err)
		}

		if s.rejectDuplicates && product.Ratings.HasReviewBy(input.AuthorID) {
			return nil, false, apperrors.AlreadyExists("review", "author_id", input.AuthorID)
		}

		product.Ratings.Add(review)
		product.UpdatedAt = review.CreatedAt

		newData, err := json.Marshal(&product)
		if err != nil {
			return nil, false, fmt.Errorf("marshal product: %w", err)
		}
		return newData, true, nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidator.Invalidate(ctx, cache.ProductViewKeys(product.ID, product.Slug)...)

	if err := s.producer.PublishReviewCreated(ctx, event.ReviewCreatedData{
		TargetCollection: repository.CollectionProducts,
		TargetID:         product.ID,
		TargetTitle:      product.Title,
		TargetSlug:       product.Slug,
		ReviewID:         review.ID,
		AuthorID:         review.AuthorID,
		Rating:           review.Rating,
		RatingAverage:    product.Ratings.Average,
		RatingCount:      product.Ratings.Count,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review added",
		slog.String("product_id", product.ID),
		slog.String("review_id", review.ID),
		slog.Int("rating", review.Rating),
	)

	return &product, nil
}
