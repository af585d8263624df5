package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mlimwengu/CourseHubGo/internal/domain"
	"github.com/mlimwengu/CourseHubGo/internal/repository"
	"github.com/mlimwengu/CourseHubGo/pkg/database"
	apperrors "github.com/mlimwengu/CourseHubGo/pkg/errors"
)

// LedgerRepository implements repository.LedgerRepository using PostgreSQL.
// Balances live inside the users aggregate document; redemption requests are
// relational rows. Debit and request insert commit in the same transaction.
type LedgerRepository struct {
	pool database.DBTX
}

// NewLedgerRepository creates a new PostgreSQL-backed ledger repository.
func NewLedgerRepository(pool database.DBTX) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Redeem debits the user's balance and inserts the pending request
// atomically. The balance write is conditional on the document version read;
// on a lost race the transaction rolls back and the whole cycle retries.
func (r *LedgerRepository) Redeem(ctx context.Context, req *domain.RedemptionRequest) error {
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		user, version, err := r.getUser(ctx, req.UserID)
		if err != nil {
			return err
		}

		if !user.CanDebit(req.PointsSpent) {
			return apperrors.InsufficientBalance(req.PointsSpent, user.PointsBalance)
		}

		user.Debit(req.PointsSpent)
		now := time.Now().UTC()
		user.UpdatedAt = now

		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}

		var wrote bool
		err = execTx(ctx, r.pool, func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx, `
				UPDATE aggregates
				SET version = version + 1, data = $1, updated_at = $2
				WHERE collection = $3 AND id = $4 AND version = $5`,
				data, now, repository.CollectionUsers, req.UserID, version,
			)
			if err != nil {
				return fmt.Errorf("debit balance: %w", err)
			}
			if tag.RowsAffected() == 0 {
				// Concurrent writer advanced the user document.
				// Abort this transaction and re-read.
				return errRetryRedeem
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO redemption_requests (id, user_id, reward_id, points_spent, status, requested_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				req.ID, req.UserID, req.RewardID, req.PointsSpent, req.Status, req.RequestedAt,
			)
			if err != nil {
				return fmt.Errorf("insert redemption request: %w", err)
			}

			wrote = true
			return nil
		})
		if err != nil {
			if errors.Is(err, errRetryRedeem) {
				continue
			}
			return err
		}
		if wrote {
			return nil
		}
	}

	return apperrors.Conflict(repository.CollectionUsers, req.UserID)
}

var errRetryRedeem = errors.New("redeem lost version race")

// Credit adds points to the user's balance and returns the new balance.
func (r *LedgerRepository) Credit(ctx context.Context, userID string, points int64) (int64, error) {
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		user, version, err := r.getUser(ctx, userID)
		if err != nil {
			return 0, err
		}

		user.Credit(points)
		now := time.Now().UTC()
		user.UpdatedAt = now

		data, err := json.Marshal(user)
		if err != nil {
			return 0, fmt.Errorf("marshal user: %w", err)
		}

		tag, err := r.pool.Exec(ctx, `
			UPDATE aggregates
			SET version = version + 1, data = $1, updated_at = $2
			WHERE collection = $3 AND id = $4 AND version = $5`,
			data, now, repository.CollectionUsers, userID, version,
		)
		if err != nil {
			return 0, fmt.Errorf("credit balance: %w", err)
		}
		if tag.RowsAffected() == 1 {
			return user.PointsBalance, nil
		}
	}

	return 0, apperrors.Conflict(repository.CollectionUsers, userID)
}

// GetRequest retrieves a redemption request by ID.
func (r *LedgerRepository) GetRequest(ctx context.Context, id string) (*domain.RedemptionRequest, error) {
	query := `
		SELECT id, user_id, reward_id, points_spent, status, requested_at, decided_at, decided_by
		FROM redemption_requests
		WHERE id = $1`

	req := &domain.RedemptionRequest{}
	var decidedBy *string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&req.ID,
		&req.UserID,
		&req.RewardID,
		&req.PointsSpent,
		&req.Status,
		&req.RequestedAt,
		&req.DecidedAt,
		&decidedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("redemption request", id)
		}
		return nil, fmt.Errorf("query redemption request: %w", err)
	}
	if decidedBy != nil {
		req.DecidedBy = *decidedBy
	}

	return req, nil
}

// ListRequests returns redemption requests matching the filter, newest first,
// along with the total count.
func (r *LedgerRepository) ListRequests(ctx context.Context, filter repository.RedemptionFilter) ([]domain.RedemptionRequest, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argPos))
		args = append(args, *filter.UserID)
		argPos++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *filter.Status)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	offset := (filter.Page - 1) * filter.PerPage
	query := fmt.Sprintf(`
		SELECT id, user_id, reward_id, points_spent, status, requested_at, decided_at, decided_by, count(*) OVER() AS total
		FROM redemption_requests
		%s
		ORDER BY requested_at DESC
		LIMIT $%d OFFSET $%d`, whereClause, argPos, argPos+1)
	args = append(args, filter.PerPage, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query redemption requests: %w", err)
	}
	defer rows.Close()

	var requests []domain.RedemptionRequest
	var total int

	for rows.Next() {
		var req domain.RedemptionRequest
		var decidedBy *string
		if err := rows.Scan(
			&req.ID,
			&req.UserID,
			&req.RewardID,
			&req.PointsSpent,
			&req.Status,
			&req.RequestedAt,
			&req.DecidedAt,
			&decidedBy,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan redemption request: %w", err)
		}
		if decidedBy != nil {
			req.DecidedBy = *decidedBy
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate redemption requests: %w", err)
	}

	return requests, total, nil
}

// Decide moves a pending request to a terminal status. The update is
// conditional on the row still being pending, so two concurrent decisions
// cannot both win. With refund set on a rejection, the spent points are
// credited back inside the same transaction.
func (r *LedgerRepository) Decide(ctx context.Context, id, status, decidedBy string, refund bool) (*domain.RedemptionRequest, error) {
	current, err := r.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.CanTransitionTo(status) {
		return nil, apperrors.InvalidTransition("redemption request", current.Status, status)
	}

	now := time.Now().UTC()
	err = execTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE redemption_requests
			SET status = $1, decided_at = $2, decided_by = $3
			WHERE id = $4 AND status = $5`,
			status, now, decidedBy, id, domain.RedemptionStatusPending,
		)
		if err != nil {
			return fmt.Errorf("update redemption request: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// Another decision landed between our read and this write.
			return apperrors.InvalidTransition("redemption request", current.Status, status)
		}

		if refund && status == domain.RedemptionStatusRejected {
			if err := r.refundInTx(ctx, tx, current.UserID, current.PointsSpent, now); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	current.Status = status
	current.DecidedAt = &now
	current.DecidedBy = decidedBy
	return current, nil
}

// refundInTx credits points back to the user inside the caller's transaction.
// The balance row is locked with FOR UPDATE, so no version retry loop is
// needed here.
func (r *LedgerRepository) refundInTx(ctx context.Context, tx pgx.Tx, userID string, points int64, now time.Time) error {
	var data []byte
	var version int64
	err := tx.QueryRow(ctx, `
		SELECT version, data
		FROM aggregates
		WHERE collection = $1 AND id = $2
		FOR UPDATE`,
		repository.CollectionUsers, userID,
	).Scan(&version, &data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound(repository.CollectionUsers, userID)
		}
		return fmt.Errorf("lock user for refund: %w", err)
	}

	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		return fmt.Errorf("unmarshal user: %w", err)
	}

	user.Credit(points)
	user.UpdatedAt = now

	newData, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE aggregates
		SET version = version + 1, data = $1, updated_at = $2
		WHERE collection = $3 AND id = $4 AND version = $5`,
		newData, now, repository.CollectionUsers, userID, version,
	)
	if err != nil {
		return fmt.Errorf("refund balance: %w", err)
	}

	return nil
}

// getUser reads the user aggregate and its current document version.
func (r *LedgerRepository) getUser(ctx context.Context, userID string) (*domain.User, int64, error) {
	var data []byte
	var version int64
	err := r.pool.QueryRow(ctx, `
		SELECT version, data
		FROM aggregates
		WHERE collection = $1 AND id = $2`,
		repository.CollectionUsers, userID,
	).Scan(&version, &data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, apperrors.NotFound(repository.CollectionUsers, userID)
		}
		return nil, 0, fmt.Errorf("query user: %w", err)
	}

	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, 0, fmt.Errorf("unmarshal user: %w", err)
	}

	return &user, version, nil
}
