package domain

import (
	"math"
	"time"
)

// Course is the aggregate for a published course, including its embedded
// reviews and derived rating statistics. It is stored as a single versioned
// document so review writes are atomic with the statistics recompute.
type Course struct {
	ID           string    `json:"id"`
	InstructorID string    `json:"instructor_id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description,omitempty"`
	PriceAmount  int64     `json:"price_amount"`
	Currency     string    `json:"currency"`
	LessonIDs    []string  `json:"lesson_ids"`
	Ratings      Ratings   `json:"ratings"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TotalLessons returns the number of lessons in the course.
func (c *Course) TotalLessons() int {
	return len(c.LessonIDs)
}

// Review is a single rating entry. It belongs exclusively to the aggregate
// that embeds it and is never referenced from elsewhere.
type Review struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// IsValidRating reports whether the rating is within the 1..5 range.
func IsValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}

// Ratings holds the embedded review entries (most-recent-first) and the
// statistics derived from them. Average and Count are never mutated
// independently; Add recomputes them from the entries on every insert.
type Ratings struct {
	Reviews []Review `json:"reviews"`
	Average float64  `json:"rating_average"`
	Count   int      `json:"rating_count"`
}

// Add prepends the review and recomputes the derived statistics. The average
// is computed at full precision, then rounded to 2 decimal places for storage.
func (rs *Ratings) Add(review Review) {
	rs.Reviews = append([]Review{review}, rs.Reviews...)

	var sum int
	for _, r := range rs.Reviews {
		sum += r.Rating
	}
	rs.Count = len(rs.Reviews)
	rs.Average = round2(float64(sum) / float64(rs.Count))
}

// HasReviewBy reports whether the author has already reviewed this aggregate.
func (rs *Ratings) HasReviewBy(authorID string) bool {
	for _, r := range rs.Reviews {
		if r.AuthorID == authorID {
			return true
		}
	}
	return false
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
