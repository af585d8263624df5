package domain

import "time"

// Redemption request status constants. Pending is the only non-terminal state.
const (
	RedemptionStatusPending  = "pending"
	RedemptionStatusApproved = "approved"
	RedemptionStatusRejected = "rejected"
)

// RedemptionRequest records a user's request to exchange points for a reward.
// It is created only after the matching balance debit succeeds, in the same
// transaction.
type RedemptionRequest struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	RewardID    string     `json:"reward_id"`
	PointsSpent int64      `json:"points_spent"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	DecidedBy   string     `json:"decided_by,omitempty"`
}

// ValidRedemptionStatuses returns all valid redemption request statuses.
func ValidRedemptionStatuses() []string {
	return []string{
		RedemptionStatusPending,
		RedemptionStatusApproved,
		RedemptionStatusRejected,
	}
}

// IsValidRedemptionStatus checks if a status string is valid.
func IsValidRedemptionStatus(status string) bool {
	for _, s := range ValidRedemptionStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// redemptionTransitions defines which status transitions are valid. Approved
// and rejected are terminal.
var redemptionTransitions = map[string][]string{
	RedemptionStatusPending:  {RedemptionStatusApproved, RedemptionStatusRejected},
	RedemptionStatusApproved: {},
	RedemptionStatusRejected: {},
}

// CanTransitionTo checks if the request can transition to the target status.
func (r *RedemptionRequest) CanTransitionTo(target string) bool {
	allowed, ok := redemptionTransitions[r.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the request has reached a final status.
func (r *RedemptionRequest) IsTerminal() bool {
	return r.Status != RedemptionStatusPending
}
