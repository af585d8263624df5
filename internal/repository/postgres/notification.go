package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/mlimwengu/CourseHubGo/internal/domain"
	"github.com/mlimwengu/CourseHubGo/internal/repository"
	"github.com/mlimwengu/CourseHubGo/pkg/database"
	apperrors "github.com/mlimwengu/CourseHubGo/pkg/errors"
)

// NotificationRepository implements repository.NotificationRepository using
// PostgreSQL.
type NotificationRepository struct {
	pool database.DBTX
}

// NewNotificationRepository creates a new PostgreSQL-backed notification
// repository.
func NewNotificationRepository(pool database.DBTX) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Create inserts a notification. The unique index on dedup_key makes
// redelivered fan-out attempts no-ops; the created flag reports whether this
// call actually inserted the row.
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (id, user_id, title, description, link, read, dedup_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
		ON CONFLICT (dedup_key) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		n.ID,
		n.UserID,
		n.Title,
		n.Description,
		n.Link,
		n.Read,
		n.DedupKey,
		n.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// ListByUserID returns the recipient's notifications, newest first, along
// with the total and unread counts.
func (r *NotificationRepository) ListByUserID(ctx context.Context, userID string, filter repository.NotificationFilter) ([]domain.Notification, int, int, error) {
	offset := (filter.Page - 1) * filter.PerPage

	query := `
		SELECT id, user_id, title, description, link, read, read_at, COALESCE(dedup_key, ''), created_at,
			count(*) OVER() AS total,
			count(*) FILTER (WHERE NOT read) OVER() AS unread
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	if filter.UnreadOnly {
		query = `
			SELECT id, user_id, title, description, link, read, read_at, COALESCE(dedup_key, ''), created_at,
				count(*) OVER() AS total,
				count(*) OVER() AS unread
			FROM notifications
			WHERE user_id = $1 AND NOT read
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`
	}

	rows, err := r.pool.Query(ctx, query, userID, filter.PerPage, offset)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []domain.Notification
	var total, unread int

	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Title,
			&n.Description,
			&n.Link,
			&n.Read,
			&n.ReadAt,
			&n.DedupKey,
			&n.CreatedAt,
			&total,
			&unread,
		); err != nil {
			return nil, 0, 0, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, fmt.Errorf("iterate notifications: %w", err)
	}

	return notifications, total, unread, nil
}

// MarkRead marks a notification read. The user_id predicate keeps recipients
// from touching each other's notifications.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	query := `
		UPDATE notifications
		SET read = TRUE, read_at = $1
		WHERE id = $2 AND user_id = $3 AND NOT read`

	tag, err := r.pool.Exec(ctx, query, time.Now().UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either missing, owned by someone else, or already read.
		// Already-read is fine; distinguish it with a cheap lookup.
		var exists bool
		err := r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM notifications WHERE id = $1 AND user_id = $2)`,
			id, userID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check notification: %w", err)
		}
		if !exists {
			return apperrors.NotFound("notification", id)
		}
	}

	return nil
}
