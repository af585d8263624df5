package postgres

import (
	"context"
	"strconv"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlimwengu/CourseHubGo/internal/domain"
	"github.com/mlimwengu/CourseHubGo/internal/repository"
	"github.com/mlimwengu/CourseHubGo/pkg/database"
	apperrors "github.com/mlimwengu/CourseHubGo/pkg/errors"
)

// --- Test Helpers ---

func newTestLedger(t *testing.T) (*LedgerRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewLedgerRepository(mock)
	return repo, mock
}

func userRows(version int64, balance int64) *pgxmock.Rows {
	data := []byte(`{"id":"user-001","display_name":"Asha","points_balance":` + strconv.FormatInt(balance, 10) + `}`)
	return pgxmock.NewRows([]string{"version", "data"}).AddRow(version, data)
}

func sampleRequest() *domain.RedemptionRequest {
	return &domain.RedemptionRequest{
		ID:          "red-001",
		UserID:      "user-001",
		RewardID:    "rwd-001",
		PointsSpent: 300,
		Status:      domain.RedemptionStatusPending,
		RequestedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

// --- Redeem Tests ---

func TestLedgerRepository_Redeem_Success(t *testing.T) {
	repo, mock := newTestLedger(t)

	req := sampleRequest()

	mock.ExpectQuery("SELECT version, data").
		WithArgs(repository.CollectionUsers, req.UserID).
		WillReturnRows(userRows(5, 500))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE aggregates").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), repository.CollectionUsers, req.UserID, int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO redemption_requests").
		WithArgs(req.ID, req.UserID, req.RewardID, req.PointsSpent, req.Status, req.RequestedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.Redeem(context.Background(), req)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_Redeem_InsufficientBalance(t *testing.T) {
	repo, mock := newTestLedger(t)

	req := sampleRequest()

	mock.ExpectQuery("SELECT version, data").
		WithArgs(repository.CollectionUsers, req.UserID).
		WillReturnRows(userRows(5, 100))

	// No transaction expected: the check fails before any write.
	err := repo.Redeem(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_Redeem_RetriesOnLostRace(t *testing.T) {
	repo, mock := newTestLedger(t)

	req := sampleRequest()

	// First cycle loses the version race; the transaction rolls back and
	// the request insert never runs.
	mock.ExpectQuery("SELECT version, data").
		WithArgs(repository.CollectionUsers, req.UserID).
		WillReturnRows(userRows(5, 500))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE aggregates").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), repository.CollectionUsers, req.UserID, int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	// Second cycle reads the advanced version and commits.
	mock.ExpectQuery("SELECT version, data").
		WithArgs(repository.CollectionUsers, req.UserID).
		WillReturnRows(userRows(6, 400))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE aggregates").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), repository.CollectionUsers, req.UserID, int64(6)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO redemption_requests").
		WithArgs(req.ID, req.UserID, req.RewardID, req.PointsSpent, req.Status, req.RequestedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.Redeem(context.Background(), req)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_Redeem_UserNotFound(t *testing.T) {
	repo, mock := newTestLedger(t)

	req := sampleRequest()

	mock.ExpectQuery("SELECT version, data").
		WithArgs(repository.CollectionUsers, req.UserID).
		WillReturnRows(pgxmock.NewRows([]string{"version", "data"}))

	err := repo.Redeem(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Credit Tests ---

func TestLedgerRepository_Credit_Success(t *testing.T) {
	repo, mock := newTestLedger(t)

	mock.ExpectQuery("SELECT version, data").
		WithArgs(repository.CollectionUsers, "user-001").
		WillReturnRows(userRows(2, 100))
	mock.ExpectExec("UPDATE aggregates").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), repository.CollectionUsers, "user-001", int64(2)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	balance, err := repo.Credit(context.Background(), "user-001", 50)
	require.NoError(t, err)
	assert.Equal(t, int64(150), balance)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Decide Tests ---

func requestRows(req *domain.RedemptionRequest) *pgxmock.Rows {
	var decidedBy *string
	if req.DecidedBy != "" {
		decidedBy = &req.DecidedBy
	}
	return pgxmock.NewRows([]string{"id", "user_id", "reward_id", "points_spent", "status", "requested_at", "decided_at", "decided_by"}).
		AddRow(req.ID, req.UserID, req.RewardID, req.PointsSpent, req.Status, req.RequestedAt, req.DecidedAt, decidedBy)
}

func TestLedgerRepository_Decide_Approve(t *testing.T) {
	repo, mock := newTestLedger(t)

	req := sampleRequest()

	mock.ExpectQuery("SELECT id, user_id, reward_id").
		WithArgs(req.ID).
		WillReturnRows(requestRows(req))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE redemption_requests").
		WithArgs(domain.RedemptionStatusApproved, pgxmock.AnyArg(), "admin-1", req.ID, domain.RedemptionStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	decided, err := repo.Decide(context.Background(), req.ID, domain.RedemptionStatusApproved, "admin-1", false)
	require.NoError(t, err)
	assert.Equal(t, domain.RedemptionStatusApproved, decided.Status)
	assert.Equal(t, "admin-1", decided.DecidedBy)
	assert.NotNil(t, decided.DecidedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_Decide_TerminalRequestRejected(t *testing.T) {
	repo, mock := newTestLedger(t)

	req := sampleRequest()
	req.Status = domain.RedemptionStatusApproved

	mock.ExpectQuery("SELECT id, user_id, reward_id").
		WithArgs(req.ID).
		WillReturnRows(requestRows(req))

	_, err := repo.Decide(context.Background(), req.ID, domain.RedemptionStatusRejected, "admin-1", false)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_Decide_ConcurrentDecisionLoses(t *testing.T) {
	repo, mock := newTestLedger(t)

	req := sampleRequest()

	mock.ExpectQuery("SELECT id, user_id, reward_id").
		WithArgs(req.ID).
		WillReturnRows(requestRows(req))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE redemption_requests").
		WithArgs(domain.RedemptionStatusApproved, pgxmock.AnyArg(), "admin-1", req.ID, domain.RedemptionStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, err := repo.Decide(context.Background(), req.ID, domain.RedemptionStatusApproved, "admin-1", false)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_Decide_RejectWithRefund(t *testing.T) {
	repo, mock := newTestLedger(t)

	req := sampleRequest()

	mock.ExpectQuery("SELECT id, user_id, reward_id").
		WithArgs(req.ID).
		WillReturnRows(requestRows(req))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE redemption_requests").
		WithArgs(domain.RedemptionStatusRejected, pgxmock.AnyArg(), "admin-1", req.ID, domain.RedemptionStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("SELECT version, data").
		WithArgs(repository.CollectionUsers, req.UserID).
		WillReturnRows(userRows(7, 200))
	mock.ExpectExec("UPDATE aggregates").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), repository.CollectionUsers, req.UserID, int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	decided, err := repo.Decide(context.Background(), req.ID, domain.RedemptionStatusRejected, "admin-1", true)
	require.NoError(t, err)
	assert.Equal(t, domain.RedemptionStatusRejected, decided.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_Decide_ApproveNeverRefunds(t *testing.T) {
	repo, mock := newTestLedger(t)

	req := sampleRequest()

	mock.ExpectQuery("SELECT id, user_id, reward_id").
		WithArgs(req.ID).
		WillReturnRows(requestRows(req))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE redemption_requests").
		WithArgs(domain.RedemptionStatusApproved, pgxmock.AnyArg(), "admin-1", req.ID, domain.RedemptionStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	// Refund flag set, but approval must not touch the balance.
	_, err := repo.Decide(context.Background(), req.ID, domain.RedemptionStatusApproved, "admin-1", true)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- ListRequests Tests ---

func TestLedgerRepository_ListRequests_FilterByUser(t *testing.T) {
	repo, mock := newTestLedger(t)

	req := sampleRequest()
	userID := req.UserID

	rows := pgxmock.NewRows([]string{"id", "user_id", "reward_id", "points_spent", "status", "requested_at", "decided_at", "decided_by", "total"}).
		AddRow(req.ID, req.UserID, req.RewardID, req.PointsSpent, req.Status, req.RequestedAt, nil, nil, 1)

	mock.ExpectQuery("SELECT id, user_id, reward_id").
		WithArgs(userID, 20, 0).
		WillReturnRows(rows)

	requests, total, err := repo.ListRequests(context.Background(), repository.RedemptionFilter{
		UserID:  &userID,
		Page:    1,
		PerPage: 20,
	})
	require.NoError(t, err)
	assert.Len(t, requests, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, req.ID, requests[0].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}
