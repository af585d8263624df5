package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newReview(author string, rating int) Review {
	return Review{
		ID:        fmt.Sprintf("rev-%s-%d", author, rating),
		AuthorID:  author,
		Rating:    rating,
		CreatedAt: time.Now().UTC(),
	}
}

func TestRatings_Add_RecomputesStatistics(t *testing.T) {
	var rs Ratings

	rs.Add(newReview("u1", 5))
	assert.Equal(t, 1, rs.Count)
	assert.Equal(t, 5.0, rs.Average)

	rs.Add(newReview("u2", 3))
	assert.Equal(t, 2, rs.Count)
	assert.Equal(t, 4.0, rs.Average)

	rs.Add(newReview("u3", 4))
	assert.Equal(t, 3, rs.Count)
	assert.Equal(t, 4.0, rs.Average)
}

func TestRatings_Add_RoundsToTwoDecimals(t *testing.T) {
	var rs Ratings

	// 5 + 4 + 4 = 13 / 3 = 4.333...
	rs.Add(newReview("u1", 5))
	rs.Add(newReview("u2", 4))
	rs.Add(newReview("u3", 4))

	assert.Equal(t, 4.33, rs.Average)

	// 13 + 4 = 17 / 4 = 4.25, exact.
	rs.Add(newReview("u4", 4))
	assert.Equal(t, 4.25, rs.Average)
}

func TestRatings_Add_MostRecentFirst(t *testing.T) {
	var rs Ratings

	rs.Add(newReview("u1", 5))
	rs.Add(newReview("u2", 3))

	assert.Equal(t, "u2", rs.Reviews[0].AuthorID)
	assert.Equal(t, "u1", rs.Reviews[1].AuthorID)
}

func TestRatings_HasReviewBy(t *testing.T) {
	var rs Ratings
	rs.Add(newReview("u1", 5))

	assert.True(t, rs.HasReviewBy("u1"))
	assert.False(t, rs.HasReviewBy("u2"))
}

func TestIsValidRating(t *testing.T) {
	for rating := 1; rating <= 5; rating++ {
		assert.True(t, IsValidRating(rating))
	}
	assert.False(t, IsValidRating(0))
	assert.False(t, IsValidRating(6))
	assert.False(t, IsValidRating(-1))
}

func TestCourse_TotalLessons(t *testing.T) {
	c := Course{LessonIDs: []string{"l1", "l2", "l3"}}
	assert.Equal(t, 3, c.TotalLessons())

	empty := Course{}
	assert.Equal(t, 0, empty.TotalLessons())
}
