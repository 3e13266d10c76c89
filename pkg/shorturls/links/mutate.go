package links

import (
	"context"
	"errors"
	"time"

	"github.com/mikepea/shorturls/pkg/shorturls/models"
	"github.com/mikepea/shorturls/pkg/shorturls/store"
)

// Changes is an administrative partial update. Nil fields are left as they are.
type Changes struct {
	Code        *string
	Destination *string
	Title       *string
	Active      *bool
	ExpiresAt   *time.Time
	// ClearExpiresAt removes any expiry; it takes precedence over ExpiresAt.
	ClearExpiresAt bool
}

// Update applies changes to the link with the given id.
//
// A code that differs from the stored one is checked for legal characters,
// as given, and then written under the store's unique index; if another
// link holds it the result is a *ConflictError. Setting a link's code to
// its current value always succeeds and is not re-validated.
func (s *Service) Update(ctx context.Context, id uint, changes Changes) (*models.Link, error) {
	sc := store.Changes{
		Title:          changes.Title,
		Active:         changes.Active,
		ExpiresAt:      changes.ExpiresAt,
		ClearExpiresAt: changes.ClearExpiresAt,
	}

	if changes.Code != nil {
		current, err := s.store.FindByID(ctx, id)
		if err != nil {
			return nil, translate(err)
		}
		if *changes.Code != current.Code {
			if err := validateCode(*changes.Code); err != nil {
				return nil, err
			}
			sc.Code = changes.Code
		}
	}

	if changes.Destination != nil {
		if err := validateDestination(*changes.Destination); err != nil {
			return nil, err
		}
		sc.Destination = changes.Destination
	}

	link, err := s.store.UpdateByID(ctx, id, sc)
	if errors.Is(err, store.ErrCodeTaken) && sc.Code != nil {
		return nil, &ConflictError{Code: *sc.Code}
	}
	if err != nil {
		return nil, translate(err)
	}
	return link, nil
}

// Delete removes the link, releasing its code for reuse.
func (s *Service) Delete(ctx context.Context, id uint) error {
	if err := s.store.DeleteByID(ctx, id); err != nil {
		return translate(err)
	}
	return nil
}
