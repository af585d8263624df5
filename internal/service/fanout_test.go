package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mlimwengu/CourseHubGo/internal/domain"
	"github.com/mlimwengu/CourseHubGo/internal/event"
	"github.com/mlimwengu/CourseHubGo/internal/repository"
)

// --- Mock Repository ---

type mockNotificationRepository struct {
	mock.Mock
}

func (m *mockNotificationRepository) Create(ctx context.Context, n *domain.Notification) (bool, error) {
	args := m.Called(ctx, n)
	return args.Bool(0), args.Error(1)
}

func (m *mockNotificationRepository) ListByUserID(ctx context.Context, userID string, filter repository.NotificationFilter) ([]domain.Notification, int, int, error) {
	args := m.Called(ctx, userID, filter)
	return args.Get(0).([]domain.Notification), args.Int(1), args.Int(2), args.Error(3)
}

func (m *mockNotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

// --- Tests ---

func TestNotificationService_FanOutReviewCreated_NotifiesInstructor(t *testing.T) {
	repo := new(mockNotificationRepository)
	svc := NewNotificationService(repo, true, newTestLogger())

	repo.On("Create", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.UserID == "instr-001" &&
			n.DedupKey == domain.NotificationDedupKey("evt-001", "instr-001") &&
			n.Link == "/courses/go-basics"
	})).Return(true, nil)

	err := svc.FanOutReviewCreated(context.Background(), "evt-001", event.ReviewCreatedData{
		TargetID:      "course-001",
		TargetTitle:   "Go Basics",
		TargetSlug:    "go-basics",
		InstructorID:  "instr-001",
		Rating:        5,
		RatingAverage: 4.33,
		RatingCount:   3,
	})
	require.NoError(t, err)

	repo.AssertExpectations(t)
}

func TestNotificationService_FanOutReviewCreated_NoInstructorNoRecipients(t *testing.T) {
	repo := new(mockNotificationRepository)
	svc := NewNotificationService(repo, true, newTestLogger())

	err := svc.FanOutReviewCreated(context.Background(), "evt-001", event.ReviewCreatedData{
		TargetID: "prod-001",
	})
	require.NoError(t, err)

	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestNotificationService_FanOutRedemptionStatusChanged(t *testing.T) {
	repo := new(mockNotificationRepository)
	svc := NewNotificationService(repo, true, newTestLogger())

	repo.On("Create", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.UserID == "user-001" &&
			n.Title == "Redemption request approved" &&
			n.Link == "/redemptions/red-001"
	})).Return(true, nil)

	err := svc.FanOutRedemptionStatusChanged(context.Background(), "evt-002", event.RedemptionStatusChangedData{
		RequestID:   "red-001",
		UserID:      "user-001",
		RewardTitle: "Course voucher",
		PointsSpent: 300,
		NewStatus:   domain.RedemptionStatusApproved,
	})
	require.NoError(t, err)

	repo.AssertExpectations(t)
}

func TestNotificationService_FanOutEnrollmentCompleted_BothRecipients(t *testing.T) {
	repo := new(mockNotificationRepository)
	svc := NewNotificationService(repo, true, newTestLogger())

	repo.On("Create", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.UserID == "user-001"
	})).Return(true, nil).Once()
	repo.On("Create", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.UserID == "instr-001"
	})).Return(true, nil).Once()

	err := svc.FanOutEnrollmentCompleted(context.Background(), "evt-003", event.EnrollmentCompletedData{
		EnrollmentID: "enr-001",
		UserID:       "user-001",
		CourseID:     "course-001",
		CourseTitle:  "Go Basics",
		CourseSlug:   "go-basics",
		InstructorID: "instr-001",
	})
	require.NoError(t, err)

	repo.AssertExpectations(t)
}

func TestNotificationService_FanOut_OneFailureDoesNotBlockOthers(t *testing.T) {
	repo := new(mockNotificationRepository)
	svc := NewNotificationService(repo, true, newTestLogger())

	repo.On("Create", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.UserID == "user-001"
	})).Return(false, errors.New("connection reset")).Once()
	repo.On("Create", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.UserID == "instr-001"
	})).Return(true, nil).Once()

	err := svc.FanOutEnrollmentCompleted(context.Background(), "evt-004", event.EnrollmentCompletedData{
		EnrollmentID: "enr-001",
		UserID:       "user-001",
		InstructorID: "instr-001",
	})
	assert.Error(t, err)

	// Both inserts were attempted despite the first failure.
	repo.AssertExpectations(t)
}

func TestNotificationService_FanOut_DuplicateDroppedSilently(t *testing.T) {
	repo := new(mockNotificationRepository)
	svc := NewNotificationService(repo, true, newTestLogger())

	repo.On("Create", mock.Anything, mock.Anything).Return(false, nil)

	err := svc.FanOutRedemptionStatusChanged(context.Background(), "evt-005", event.RedemptionStatusChangedData{
		RequestID: "red-001",
		UserID:    "user-001",
		NewStatus: domain.RedemptionStatusRejected,
	})
	assert.NoError(t, err)
}

func TestNotificationService_FanOut_DedupDisabled(t *testing.T) {
	repo := new(mockNotificationRepository)
	svc := NewNotificationService(repo, false, newTestLogger())

	repo.On("Create", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.DedupKey == ""
	})).Return(true, nil)

	err := svc.FanOutRedemptionStatusChanged(context.Background(), "evt-006", event.RedemptionStatusChangedData{
		RequestID: "red-001",
		UserID:    "user-001",
		NewStatus: domain.RedemptionStatusApproved,
	})
	require.NoError(t, err)

	repo.AssertExpectations(t)
}

func TestNotificationService_ListNotifications(t *testing.T) {
	repo := new(mockNotificationRepository)
	svc := NewNotificationService(repo, true, newTestLogger())

	filter := repository.NotificationFilter{Page: 1, PerPage: 20}
	repo.On("ListByUserID", mock.Anything, "user-001", filter).
		Return([]domain.Notification{{ID: "ntf-001"}}, 1, 1, nil)

	notifications, total, unread, err := svc.ListNotifications(context.Background(), "user-001", filter)
	require.NoError(t, err)
	assert.Len(t, notifications, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, unread)
}

func TestNotificationService_MarkNotificationRead_RequiresIDs(t *testing.T) {
	repo := new(mockNotificationRepository)
	svc := NewNotificationService(repo, true, newTestLogger())

	assert.Error(t, svc.MarkNotificationRead(context.Background(), "", "user-001"))
	assert.Error(t, svc.MarkNotificationRead(context.Background(), "ntf-001", ""))
}
