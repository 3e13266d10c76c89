// Package store defines the persistence contract for links.
//
// Two primitives carry the concurrency guarantees of the service:
// InsertUnique reserves a code in one conditional write, and
// IncrementClicks advances the counter in one atomic write. Callers must
// never emulate either with a read followed by a write.
//
// A link returned by FindByCode may be a cached snapshot. IncrementClicks
// is the authority: it counts a click only if the stored row still matches
// the snapshot and is live.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/mikepea/shorturls/pkg/shorturls/models"
)

var (
	// ErrNotFound indicates no link matches the given id or code.
	ErrNotFound = errors.New("link not found")

	// ErrCodeTaken indicates the code is already held by another link.
	// It is the only collision signal the store reports.
	ErrCodeTaken = errors.New("code already taken")

	// ErrStale indicates the stored link no longer matches the snapshot a
	// click was counted against, or is no longer live.
	ErrStale = errors.New("link snapshot is stale")
)

// Store persists links. Implementations must be safe for concurrent use.
type Store interface {
	// InsertUnique inserts the link if no other link holds its code.
	// Returns ErrCodeTaken on collision and the persisted link otherwise.
	InsertUnique(ctx context.Context, link *models.Link) (*models.Link, error)

	// FindByCode returns the link holding code, active or not.
	FindByCode(ctx context.Context, code string) (*models.Link, error)

	// FindByID returns the link with the given id.
	FindByID(ctx context.Context, id uint) (*models.Link, error)

	// List returns all links, newest first.
	List(ctx context.Context) ([]models.Link, error)

	// UpdateByID applies changes and refreshes UpdatedAt. A code change
	// that clashes with another link returns ErrCodeTaken.
	UpdateByID(ctx context.Context, id uint, changes Changes) (*models.Link, error)

	// DeleteByID removes the link, releasing its code.
	DeleteByID(ctx context.Context, id uint) error

	// IncrementClicks atomically adds one to the click counter of the link
	// with link.ID, provided it still holds link.Code and link.Destination,
	// is active, and has not expired at now. Otherwise nothing is written
	// and ErrStale is returned.
	IncrementClicks(ctx context.Context, link *models.Link, now time.Time) error
}

// Changes is a partial update. Nil fields are left untouched.
type Changes struct {
	Code        *string
	Destination *string
	Title       *string
	Active      *bool
	ExpiresAt   *time.Time
	// ClearExpiresAt removes the expiry. It wins over ExpiresAt.
	ClearExpiresAt bool
}

// IsEmpty reports whether the changes touch no field.
func (c Changes) IsEmpty() bool {
	return c.Code == nil && c.Destination == nil && c.Title == nil &&
		c.Active == nil && c.ExpiresAt == nil && !c.ClearExpiresAt
}

// Columns returns the changes keyed by column name, with updated_at set to now.
func (c Changes) Columns(now time.Time) map[string]interface{} {
	cols := map[string]interface{}{"updated_at": now}
	if c.Code != nil {
		cols["code"] = *c.Code
	}
	if c.Destination != nil {
		cols["destination"] = *c.Destination
	}
	if c.Title != nil {
		cols["title"] = *c.Title
	}
	if c.Active != nil {
		cols["active"] = *c.Active
	}
	if c.ClearExpiresAt {
		cols["expires_at"] = nil
	} else if c.ExpiresAt != nil {
		cols["expires_at"] = c.ExpiresAt.UTC()
	}
	return cols
}
