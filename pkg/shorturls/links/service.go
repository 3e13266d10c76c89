// Package links allocates, resolves and administers short links.
//
// Service holds no mutable state of its own. Every guarantee about code
// uniqueness and click counting comes from the store's conditional insert
// and atomic increment.
package links

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mikepea/shorturls/pkg/shorturls/models"
	"github.com/mikepea/shorturls/pkg/shorturls/shortcode"
	"github.com/mikepea/shorturls/pkg/shorturls/store"
)

// DefaultMaxAttempts bounds how many generated codes Create tries.
const DefaultMaxAttempts = 10

// Options configures a Service. Zero values take the defaults.
type Options struct {
	Generator   shortcode.Generator
	CodeLength  int
	MaxAttempts int
	Now         func() time.Time
}

// Service is the link core used by the HTTP handlers and the CLI.
type Service struct {
	store       store.Store
	generator   shortcode.Generator
	codeLength  int
	maxAttempts int
	now         func() time.Time
}

// NewService creates a link service backed by s.
func NewService(s store.Store, opts Options) *Service {
	svc := &Service{
		store:       s,
		generator:   opts.Generator,
		codeLength:  opts.CodeLength,
		maxAttempts: opts.MaxAttempts,
		now:         opts.Now,
	}
	if svc.generator == nil {
		svc.generator = shortcode.NewRandom()
	}
	if svc.codeLength <= 0 {
		svc.codeLength = shortcode.DefaultLength
	}
	if svc.maxAttempts <= 0 {
		svc.maxAttempts = DefaultMaxAttempts
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// Get returns a link by id regardless of its active flag or expiry.
func (s *Service) Get(ctx context.Context, id uint) (*models.Link, error) {
	link, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return link, nil
}

// List returns every link, newest first.
func (s *Service) List(ctx context.Context) ([]models.Link, error) {
	links, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return links, nil
}

// Search lists the links whose code, destination or title contains query,
// ignoring case. An empty query matches every link.
func (s *Service) Search(ctx context.Context, query string) ([]models.Link, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return all, nil
	}

	matched := make([]models.Link, 0, len(all))
	for _, link := range all {
		if strings.Contains(strings.ToLower(link.Code), query) ||
			strings.Contains(strings.ToLower(link.Destination), query) ||
			strings.Contains(strings.ToLower(link.Title), query) {
			matched = append(matched, link)
		}
	}
	return matched, nil
}

// translate maps store sentinels to the service's error kinds.
func translate(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("link store: %w", err)
}
