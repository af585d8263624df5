package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInvalidator(t *testing.T) (*Invalidator, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewInvalidator(client, logger), mr
}

func TestInvalidator_Invalidate_DeletesDeclaredKeys(t *testing.T) {
	inv, mr := newTestInvalidator(t)

	require.NoError(t, mr.Set("view:courses:course-001", "cached"))
	require.NoError(t, mr.Set("view:courses:slug:go-basics", "cached"))
	require.NoError(t, mr.Set("view:courses:list", "cached"))
	require.NoError(t, mr.Set("view:courses:course-002", "untouched"))

	inv.Invalidate(context.Background(), CourseViewKeys("course-001", "go-basics")...)

	assert.False(t, mr.Exists("view:courses:course-001"))
	assert.False(t, mr.Exists("view:courses:slug:go-basics"))
	assert.False(t, mr.Exists("view:courses:list"))
	assert.True(t, mr.Exists("view:courses:course-002"))
}

func TestInvalidator_Invalidate_MissingKeysAreNoOp(t *testing.T) {
	inv, _ := newTestInvalidator(t)

	// Deleting keys that were never cached must not panic or error.
	inv.Invalidate(context.Background(), UserViewKeys("user-001")...)
}

func TestInvalidator_Invalidate_SurvivesRedisDown(t *testing.T) {
	inv, mr := newTestInvalidator(t)
	mr.Close()

	// Best effort: a dead cache never fails the write path.
	inv.Invalidate(context.Background(), "view:courses:course-001")
}

func TestInvalidator_Invalidate_EmptyKeySet(t *testing.T) {
	inv, _ := newTestInvalidator(t)
	inv.Invalidate(context.Background())
}

func TestViewKeys(t *testing.T) {
	assert.Contains(t, CourseViewKeys("c1", "s1"), "view:courses:c1")
	assert.Contains(t, ProductViewKeys("p1", "s1"), "view:products:slug:s1")
	assert.Contains(t, UserViewKeys("u1"), "view:users:u1:redemptions")
	assert.Contains(t, EnrollmentViewKeys("e1", "u1"), "view:users:u1:enrollments")
}
