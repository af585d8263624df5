package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mlimwengu/CourseHubGo/internal/domain"
	"github.com/mlimwengu/CourseHubGo/pkg/database"
	apperrors "github.com/mlimwengu/CourseHubGo/pkg/errors"
)

// RewardRepository implements repository.RewardRepository using PostgreSQL.
type RewardRepository struct {
	pool database.DBTX
}

// NewRewardRepository creates a new PostgreSQL-backed reward repository.
func NewRewardRepository(pool database.DBTX) *RewardRepository {
	return &RewardRepository{pool: pool}
}

// Create inserts a new reward catalog entry.
func (r *RewardRepository) Create(ctx context.Context, reward *domain.Reward) error {
	query := `
		INSERT INTO rewards (id, title, description, points_cost, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		reward.ID,
		reward.Title,
		reward.Description,
		reward.PointsCost,
		reward.Active,
		reward.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reward: %w", err)
	}

	return nil
}

// GetByID retrieves a reward by its ID.
func (r *RewardRepository) GetByID(ctx context.Context, id string) (*domain.Reward, error) {
	query := `
		SELECT id, title, description, points_cost, active, created_at
		FROM rewards
		WHERE id = $1`

	reward := &domain.Reward{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&reward.ID,
		&reward.Title,
		&reward.Description,
		&reward.PointsCost,
		&reward.Active,
		&reward.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("reward", id)
		}
		return nil, fmt.Errorf("query reward: %w", err)
	}

	return reward, nil
}

// List returns rewards along with the total count, cheapest first.
func (r *RewardRepository) List(ctx context.Context, activeOnly bool, page, perPage int) ([]domain.Reward, int, error) {
	offset := (page - 1) * perPage

	query := `
		SELECT id, title, description, points_cost, active, created_at, count(*) OVER() AS total
		FROM rewards
		WHERE active OR NOT $1
		ORDER BY points_cost ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, activeOnly, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query rewards: %w", err)
	}
	defer rows.Close()

	var rewards []domain.Reward
	var total int

	for rows.Next() {
		var reward domain.Reward
		if err := rows.Scan(
			&reward.ID,
			&reward.Title,
			&reward.Description,
			&reward.PointsCost,
			&reward.Active,
			&reward.CreatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, reward)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate rewards: %w", err)
	}

	return rewards, total, nil
}
