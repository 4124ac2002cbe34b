package domain

import (
	"context"
	"errors"
)

// ErrNotFound is returned by store lookups for ids that do not exist (or are
// not owned by the requesting author).
var ErrNotFound = errors.New("not found")

// SpatialIndex queries the external location-aware store for users near a
// point. Implementations exclude users with no recorded location.
type SpatialIndex interface {
	// Nearby returns every user with a recorded location within radiusMeters
	// of origin, except excludeUserID, along with their declared interest
	// tags. Order is unspecified.
	Nearby(ctx context.Context, origin Point, radiusMeters float64, excludeUserID string) ([]Candidate, error)
}

// InterestStore defines persistence operations for interest posts. Posts are
// durably created before fanout; the dispatcher never writes to the store.
type InterestStore interface {
	// Create inserts a new interest post, assigning ID and CreatedAt.
	Create(ctx context.Context, interest *Interest) error

	// GetByID retrieves one post. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*Interest, error)

	// ListByAuthor retrieves an author's posts, newest first.
	ListByAuthor(ctx context.Context, authorID string) ([]Interest, error)

	// ListByIDs retrieves the posts with the given ids, preserving the input
	// order and skipping ids that no longer exist.
	ListByIDs(ctx context.Context, ids []string) ([]Interest, error)

	// Delete removes a post owned by authorID. Returns ErrNotFound if no such
	// post exists for that author.
	Delete(ctx context.Context, id, authorID string) error
}

// Connection is a single live delivery channel belonging to one session. A
// connection is open from registration until unregistration and is never
// reused after close; a reconnect creates a new Connection value.
type Connection interface {
	// Deliver enqueues a payload for this connection without blocking. It
	// returns an error if the connection is closed or its outbound buffer is
	// full; the payload is then dropped.
	Deliver(n *Notification) error
}
