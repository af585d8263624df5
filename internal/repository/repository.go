package repository

import (
	"context"
	"time"

	"github.com/mlimwengu/CourseHubGo/internal/domain"
)

// Collection names for the versioned document store.
const (
	CollectionCourses     = "courses"
	CollectionProducts    = "products"
	CollectionUsers       = "users"
	CollectionEnrollments = "enrollments"
)

// Document is one versioned row of the aggregate store. Data holds the
// aggregate's JSON encoding; Version increments on every successful write.
type Document struct {
	Collection string
	ID         string
	Version    int64
	Data       []byte
	UpdatedAt  time.Time
}

// Mutate transforms a document's raw data in a read-mutate-write cycle. It
// returns the new encoding, or changed=false to signal that the document is
// already in the desired state and no write should happen.
type Mutate func(data []byte) (newData []byte, changed bool, err error)

// DocumentStore persists aggregates as versioned JSON documents with
// optimistic concurrency control.
type DocumentStore interface {
	// Get fetches a single document.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// Insert creates a new document at version 1.
	Insert(ctx context.Context, collection, id string, data []byte) error

	// Apply runs a read-mutate-write cycle under optimistic concurrency.
	// The write succeeds only if the version read is still current; on a
	// lost race the whole cycle is retried a bounded number of times.
	// Returns the document state after the cycle and whether a write
	// actually happened.
	Apply(ctx context.Context, collection, id string, fn Mutate) (*Document, bool, error)

	// List returns documents of a collection ordered by last update,
	// newest first, along with the total count.
	List(ctx context.Context, collection string, page, perPage int) ([]Document, int, error)
}

// RedemptionFilter defines filter criteria for listing redemption requests.
type RedemptionFilter struct {
	UserID  *string
	Status  *string
	Page    int
	PerPage int
}

// LedgerRepository owns the points balance writes and the redemption request
// lifecycle. Debit and request creation are atomic.
type LedgerRepository interface {
	// Redeem debits the user's balance and creates a pending redemption
	// request in the same transaction. The debit is conditional on the
	// balance version read; a lost race is retried internally.
	Redeem(ctx context.Context, req *domain.RedemptionRequest) error

	// Credit adds points to the user's balance.
	Credit(ctx context.Context, userID string, points int64) (newBalance int64, err error)

	// GetRequest retrieves a redemption request by ID.
	GetRequest(ctx context.Context, id string) (*domain.RedemptionRequest, error)

	// ListRequests returns redemption requests matching the filter and the
	// total count.
	ListRequests(ctx context.Context, filter RedemptionFilter) ([]domain.RedemptionRequest, int, error)

	// Decide moves a pending request to a terminal status. When refund is
	// set and the target status is rejected, the spent points are credited
	// back in the same transaction. Deciding a non-pending request fails
	// with an invalid transition error.
	Decide(ctx context.Context, id, status, decidedBy string, refund bool) (*domain.RedemptionRequest, error)
}

// NotificationFilter defines filter criteria for listing notifications.
type NotificationFilter struct {
	UnreadOnly bool
	Page       int
	PerPage    int
}

// NotificationRepository persists fan-out notifications.
type NotificationRepository interface {
	// Create inserts a notification. A duplicate dedup key is silently
	// dropped and reported via the created flag.
	Create(ctx context.Context, n *domain.Notification) (created bool, err error)

	// ListByUserID returns the recipient's notifications, newest first,
	// with the total and unread counts.
	ListByUserID(ctx context.Context, userID string, filter NotificationFilter) ([]domain.Notification, int, int, error)

	// MarkRead marks a notification read for its recipient.
	MarkRead(ctx context.Context, id, userID string) error
}

// RewardRepository persists the redeemable reward catalog.
type RewardRepository interface {
	Create(ctx context.Context, reward *domain.Reward) error
	GetByID(ctx context.Context, id string) (*domain.Reward, error)
	List(ctx context.Context, activeOnly bool, page, perPage int) ([]domain.Reward, int, error)
}
