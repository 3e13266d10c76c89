package links

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/mikepea/shorturls/pkg/shorturls/models"
	"github.com/mikepea/shorturls/pkg/shorturls/store"
)

// CreateRequest describes a new link. An empty Code asks for a generated one.
type CreateRequest struct {
	Code        string
	Destination string
	Title       string
	ExpiresAt   *time.Time
	CreatedByID *uint
}

// Create validates req and reserves a code for it.
//
// A requested code is reserved with a single conditional insert; if another
// link holds it the result is a *ConflictError and nothing is written.
// Otherwise up to MaxAttempts generated codes are tried in turn, and
// ErrAllocationExhausted is returned if all of them were taken.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Link, error) {
	if err := validateDestination(req.Destination); err != nil {
		return nil, err
	}

	link := &models.Link{
		Destination: req.Destination,
		Title:       req.Title,
		Active:      true,
		ExpiresAt:   req.ExpiresAt,
		CreatedByID: req.CreatedByID,
	}

	code := strings.TrimSpace(req.Code)
	if code != "" {
		if err := validateCode(code); err != nil {
			return nil, err
		}
		link.Code = code
		created, err := s.store.InsertUnique(ctx, link)
		if errors.Is(err, store.ErrCodeTaken) {
			return nil, &ConflictError{Code: code}
		}
		if err != nil {
			return nil, translate(err)
		}
		return created, nil
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		link.Code = s.generator.Generate(s.codeLength)
		created, err := s.store.InsertUnique(ctx, link)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, store.ErrCodeTaken) {
			return nil, translate(err)
		}
		glog.V(1).Infof("Generated code %s taken, attempt %d/%d", link.Code, attempt, s.maxAttempts)
	}

	glog.Errorf("Create() no free code after %d attempts", s.maxAttempts)
	return nil, ErrAllocationExhausted
}
