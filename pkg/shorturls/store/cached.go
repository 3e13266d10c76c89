package store

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"
	"github.com/mikepea/shorturls/pkg/shorturls/cache"
	"github.com/mikepea/shorturls/pkg/shorturls/models"
)

// Cached serves FindByCode from a cache in front of another store.
// Writes go straight to the inner store and invalidate the affected codes.
//
// A cached snapshot is only a hint. Only live links are cached, so a link
// found inactive or expired always comes from the inner store, and a
// snapshot that went stale is caught by IncrementClicks, which drops it.
// This also covers writes made by other processes sharing the database.
// Clicks in a cached snapshot are stale; the counter itself is never cached.
type Cached struct {
	Store
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewCached wraps inner with a resolution cache.
func NewCached(inner Store, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{Store: inner, cache: c, ttl: ttl, now: time.Now}
}

func codeKey(code string) string {
	return "shorturls:link:code:" + code
}

func (s *Cached) live(link *models.Link) bool {
	return link.Active && !link.IsExpired(s.now())
}

// FindByCode returns the cached snapshot when present and live, otherwise
// loads from the inner store and caches the result if it is live.
// Cache errors fall through to the inner store.
func (s *Cached) FindByCode(ctx context.Context, code string) (*models.Link, error) {
	var link models.Link
	err := s.cache.GetJSON(ctx, codeKey(code), &link)
	switch {
	case err == nil && s.live(&link):
		return &link, nil
	case err == nil:
		s.invalidate(ctx, code)
	case !errors.Is(err, cache.ErrMiss):
		glog.Warningf("cache.GetJSON(%s) %+v", code, err)
	}

	found, err := s.Store.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if s.live(found) {
		if err := s.cache.SetJSON(ctx, codeKey(code), found, s.ttl); err != nil {
			glog.Warningf("cache.SetJSON(%s) %+v", code, err)
		}
	}
	return found, nil
}

// IncrementClicks counts a click in the inner store. When the snapshot is
// rejected as stale its code is dropped so the next lookup reloads it.
func (s *Cached) IncrementClicks(ctx context.Context, link *models.Link, now time.Time) error {
	err := s.Store.IncrementClicks(ctx, link, now)
	if errors.Is(err, ErrStale) {
		glog.V(1).Infof("dropping stale snapshot for %s", link.Code)
		s.invalidate(ctx, link.Code)
	}
	return err
}

// UpdateByID updates the inner store and drops both the old and new code from the cache.
func (s *Cached) UpdateByID(ctx context.Context, id uint, changes Changes) (*models.Link, error) {
	before, err := s.Store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.Store.UpdateByID(ctx, id, changes)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, before.Code, updated.Code)
	return updated, nil
}

// DeleteByID deletes from the inner store and drops the code from the cache.
func (s *Cached) DeleteByID(ctx context.Context, id uint) error {
	before, err := s.Store.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.Store.DeleteByID(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, before.Code)
	return nil
}

func (s *Cached) invalidate(ctx context.Context, codes ...string) {
	for _, code := range codes {
		if err := s.cache.Delete(ctx, codeKey(code)); err != nil {
			glog.Warningf("cache.Delete(%s) %+v", code, err)
		}
	}
}
