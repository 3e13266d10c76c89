package links

import (
	"context"
	"errors"

	"github.com/golang/glog"
	"github.com/mikepea/shorturls/pkg/shorturls/store"
)

// resolveAttempts bounds how often Resolve re-reads a link whose snapshot
// was rejected as stale.
const resolveAttempts = 3

// Resolve returns the destination for code and counts one click.
//
// An inactive link resolves exactly like a missing one: both return
// ErrNotFound, so callers cannot probe for disabled codes. A link past its
// expiry returns ErrGone. Neither outcome counts a click.
//
// The link read by code may be a cached snapshot. The increment only
// succeeds if the stored row still matches it and is live; otherwise the
// link is read again. A link that keeps changing under the resolver is
// reported as ErrNotFound.
//
// The increment runs on a context that ignores the caller's cancellation,
// so a client hanging up mid-redirect cannot leave the count decided but
// unwritten. Increment failures are returned to the caller.
func (s *Service) Resolve(ctx context.Context, code string) (string, error) {
	for attempt := 0; attempt < resolveAttempts; attempt++ {
		link, err := s.store.FindByCode(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}
		if err != nil {
			return "", translate(err)
		}

		now := s.now()
		if !link.Active {
			return "", ErrNotFound
		}
		if link.IsExpired(now) {
			return "", ErrGone
		}

		err = s.store.IncrementClicks(context.WithoutCancel(ctx), link, now)
		if errors.Is(err, store.ErrStale) {
			continue
		}
		if err != nil {
			return "", translate(err)
		}
		return link.Destination, nil
	}

	glog.Warningf("Resolve(%s) gave up after %d stale reads", code, resolveAttempts)
	return "", ErrNotFound
}
