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

// ProgressService tracks lesson completion across enrollments. The lesson
// count is snapshotted at enrollment time, so progress recomputation depends
// only on the enrollment document itself.
type ProgressService struct {
	store       repository.DocumentStore
	producer    *event.Producer
	invalidator *cache.Invalidator
	logger      *slog.Logger
}

// NewProgressService creates a new progress service.
func NewProgressService(store repository.DocumentStore, producer *event.Producer, invalidator *cache.Invalidator, logger *slog.Logger) *ProgressService {
	return &ProgressService{
		store:       store,
		producer:    producer,
		invalidator: invalidator,
		logger:      logger,
	}
}

// EnrollInput holds the parameters for enrolling a user in a course.
type EnrollInput struct {
	UserID   string `json:"user_id" validate:"required"`
	CourseID string `json:"course_id" validate:"required"`
}

// Enroll creates an enrollment for a user in a course, snapshotting the
// course's current lesson count.
func (s *ProgressService) Enroll(ctx context.Context, input EnrollInput) (*domain.Enrollment, error) {
	courseDoc, err := s.store.Get(ctx, repository.CollectionCourses, input.CourseID)
	if err != nil {
		return nil, err
	}

	var course domain.Course
	if err := json.Unmarshal(courseDoc.Data, &course); err != nil {
		return nil, fmt.Errorf("unmarshal course: %w", err)
	}

	now := time.Now().UTC()
	enrollment := domain.NewEnrollment(uuid.New().String(), course.ID, input.UserID, course.TotalLessons(), now)

	data, err := json.Marshal(enrollment)
	if err != nil {
		return nil, fmt.Errorf("marshal enrollment: %w", err)
	}

	if err := s.store.Insert(ctx, repository.CollectionEnrollments, enrollment.ID, data); err != nil {
		return nil, err
	}

	s.invalidator.Invalidate(ctx, cache.EnrollmentViewKeys(enrollment.ID, enrollment.UserID)...)

	s.logger.InfoContext(ctx, "user enrolled",
		slog.String("enrollment_id", enrollment.ID),
		slog.String("user_id", enrollment.UserID),
		slog.String("course_id", enrollment.CourseID),
		slog.Int("total_lessons", enrollment.TotalLessons),
	)

	// A zero-lesson course completes at enrollment.
	if enrollment.Status == domain.EnrollmentStatusCompleted {
		s.publishCompleted(ctx, enrollment, &course)
	}

	return enrollment, nil
}

// CompleteLesson records a finished lesson and recomputes the enrollment's
// progress. Re-completing a lesson is a no-op and performs no write.
func (s *ProgressService) CompleteLesson(ctx context.Context, enrollmentID, lessonID string) (*domain.Enrollment, error) {
	if lessonID == "" {
		return nil, apperrors.InvalidInput("lesson id is required")
	}

	var enrollment domain.Enrollment
	var completedNow bool

	_, wrote, err := s.store.Apply(ctx, repository.CollectionEnrollments, enrollmentID, func(data []byte) ([]byte, bool, error) {
		enrollment = domain.Enrollment{}
		if err := json.Unmarshal(data, &enrollment); err != nil {
			return nil, false, fmt.Errorf("unmarshal enrollment: %w", err)
		}

		wasCompleted := enrollment.Status == domain.EnrollmentStatusCompleted
		if !enrollment.MarkLessonComplete(lessonID, time.Now().UTC()) {
			return nil, false, nil
		}
		completedNow = !wasCompleted && enrollment.Status == domain.EnrollmentStatusCompleted

		newData, err := json.Marshal(&enrollment)
		if err != nil {
			return nil, false, fmt.Errorf("marshal enrollment: %w", err)
		}
		return newData, true, nil
	})
	if err != nil {
		return nil, err
	}

	if !wrote {
		return &enrollment, nil
	}

	s.invalidator.Invalidate(ctx, cache.EnrollmentViewKeys(enrollment.ID, enrollment.UserID)...)

	s.logger.InfoContext(ctx, "lesson completed",
		slog.String("enrollment_id", enrollment.ID),
		slog.String("lesson_id", lessonID),
		slog.Int("progress_percent", enrollment.ProgressPercent),
		slog.String("status", enrollment.Status),
	)

	if err := s.producer.PublishEnrollmentProgressed(ctx, event.EnrollmentProgressedData{
		EnrollmentID:    enrollment.ID,
		UserID:          enrollment.UserID,
		CourseID:        enrollment.CourseID,
		LessonID:        lessonID,
		ProgressPercent: enrollment.ProgressPercent,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish enrollment.progressed event",
			slog.String("enrollment_id", enrollment.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	if completedNow {
		var course *domain.Course
		if doc, err := s.store.Get(ctx, repository.CollectionCourses, enrollment.CourseID); err == nil {
			var c domain.Course
			if err := json.Unmarshal(doc.Data, &c); err == nil {
				course = &c
			}
		}
		s.publishCompleted(ctx, &enrollment, course)
	}

	return &enrollment, nil
}

// GetEnrollment retrieves an enrollment by ID.
func (s *ProgressService) GetEnrollment(ctx context.Context, id string) (*domain.Enrollment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("enrollment id is required")
	}

	doc, err := s.store.Get(ctx, repository.CollectionEnrollments, id)
	if err != nil {
		return nil, err
	}

	var enrollment domain.Enrollment
	if err := json.Unmarshal(doc.Data, &enrollment); err != nil {
		return nil, fmt.Errorf("unmarshal enrollment: %w", err)
	}

	return &enrollment, nil
}

func (s *ProgressService) publishCompleted(ctx context.Context, enrollment *domain.Enrollment, course *domain.Course) {
	data := event.EnrollmentCompletedData{
		EnrollmentID: enrollment.ID,
		UserID:       enrollment.UserID,
		CourseID:     enrollment.CourseID,
	}
	if course != nil {
		data.CourseTitle = course.Title
		data.CourseSlug = course.Slug
		data.InstructorID = course.InstructorID
	}

	if err := s.producer.PublishEnrollmentCompleted(ctx, data); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish enrollment.completed event",
			slog.String("enrollment_id", enrollment.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}
}
