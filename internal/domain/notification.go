package domain

import (
	"fmt"
	"time"
)

// Notification is a record created by fan-out after a committed state change.
// It is owned by the recipient; only the recipient marks it read.
type Notification struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Link        string     `json:"link,omitempty"`
	Read        bool       `json:"read"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	DedupKey    string     `json:"dedup_key,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NotificationDedupKey builds the deterministic deduplication key for one
// recipient of one triggering event.
func NotificationDedupKey(triggerEventID, recipientID string) string {
	return fmt.Sprintf("%s:%s", triggerEventID, recipientID)
}
