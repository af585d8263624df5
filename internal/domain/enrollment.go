package domain

import (
	"math"
	"time"
)

// Enrollment status constants.
const (
	EnrollmentStatusInProgress = "in_progress"
	EnrollmentStatusCompleted  = "completed"
)

// Enrollment tracks a user's progress through a course. TotalLessons is
// snapshotted from the course at enrollment time so progress recomputation
// stays a pure function of this document alone.
type Enrollment struct {
	ID                 string     `json:"id"`
	CourseID           string     `json:"course_id"`
	UserID             string     `json:"user_id"`
	TotalLessons       int        `json:"total_lessons"`
	CompletedLessonIDs []string   `json:"completed_lesson_ids"`
	ProgressPercent    int        `json:"progress_percent"`
	Status             string     `json:"status"`
	EnrolledAt         time.Time  `json:"enrolled_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// NewEnrollment creates an enrollment with its initial progress computed.
// A course with zero lessons is trivially complete.
func NewEnrollment(id, courseID, userID string, totalLessons int, now time.Time) *Enrollment {
	e := &Enrollment{
		ID:                 id,
		CourseID:           courseID,
		UserID:             userID,
		TotalLessons:       totalLessons,
		CompletedLessonIDs: []string{},
		Status:             EnrollmentStatusInProgress,
		EnrolledAt:         now,
		UpdatedAt:          now,
	}
	e.recomputeProgress(now)
	return e
}

// HasCompleted reports whether the lesson is already recorded as complete.
func (e *Enrollment) HasCompleted(lessonID string) bool {
	for _, id := range e.CompletedLessonIDs {
		if id == lessonID {
			return true
		}
	}
	return false
}

// MarkLessonComplete records the lesson and recomputes progress. It returns
// false, with no state change, when the lesson is already complete.
func (e *Enrollment) MarkLessonComplete(lessonID string, now time.Time) bool {
	if e.HasCompleted(lessonID) {
		return false
	}
	e.CompletedLessonIDs = append(e.CompletedLessonIDs, lessonID)
	e.UpdatedAt = now
	e.recomputeProgress(now)
	return true
}

// recomputeProgress derives ProgressPercent and Status from the completed
// set. Status is monotonic: once completed, it never reverts.
func (e *Enrollment) recomputeProgress(now time.Time) {
	if e.TotalLessons <= 0 {
		e.ProgressPercent = 100
	} else {
		pct := int(math.Round(100 * float64(len(e.CompletedLessonIDs)) / float64(e.TotalLessons)))
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		e.ProgressPercent = pct
	}

	if e.ProgressPercent >= 100 && e.Status != EnrollmentStatusCompleted {
		e.Status = EnrollmentStatusCompleted
		t := now
		e.CompletedAt = &t
	}
}
