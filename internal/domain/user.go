package domain

import "time"

// User is the aggregate owning the redeemable points balance. The balance is
// an integer of points and is never allowed to go negative.
type User struct {
	ID            string    `json:"id"`
	DisplayName   string    `json:"display_name"`
	Email         string    `json:"email,omitempty"`
	PointsBalance int64     `json:"points_balance"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CanDebit reports whether the balance covers the given amount.
func (u *User) CanDebit(points int64) bool {
	return u.PointsBalance >= points
}

// Debit subtracts points from the balance. Callers must check CanDebit first;
// Debit itself never produces a negative balance.
func (u *User) Debit(points int64) {
	if points > u.PointsBalance {
		points = u.PointsBalance
	}
	u.PointsBalance -= points
}

// Credit adds points to the balance.
func (u *User) Credit(points int64) {
	u.PointsBalance += points
}

// Reward is a catalog entry users can exchange points for.
type Reward struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	PointsCost  int64     `json:"points_cost"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}
