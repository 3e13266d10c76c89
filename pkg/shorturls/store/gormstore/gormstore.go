// Package gormstore implements store.Store on top of gorm.
//
// The unique index on links.code is what serialises competing reservations;
// the database must be opened with gorm.Config.TranslateError so that index
// violations surface as gorm.ErrDuplicatedKey.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikepea/shorturls/pkg/shorturls/models"
	"github.com/mikepea/shorturls/pkg/shorturls/store"
	"gorm.io/gorm"
)

var _ store.Store = (*Store)(nil)

// Store is a gorm-backed link store.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// New returns a store using db. The links table must already be migrated.
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// InsertUnique inserts the link in a single INSERT guarded by the code index.
func (s *Store) InsertUnique(ctx context.Context, link *models.Link) (*models.Link, error) {
	row := *link
	row.ID = 0
	row.Clicks = 0

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, store.ErrCodeTaken
		}
		return nil, fmt.Errorf("failed to insert link: %w", err)
	}
	return &row, nil
}

// FindByCode returns the link holding code.
func (s *Store) FindByCode(ctx context.Context, code string) (*models.Link, error) {
	var link models.Link
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&link).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &link, nil
}

// FindByID returns the link with the given id.
func (s *Store) FindByID(ctx context.Context, id uint) (*models.Link, error) {
	var link models.Link
	if err := s.db.WithContext(ctx).First(&link, id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &link, nil
}

// List returns all links, newest first.
func (s *Store) List(ctx context.Context) ([]models.Link, error) {
	var links []models.Link
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// UpdateByID applies changes in one UPDATE and returns the stored result.
func (s *Store) UpdateByID(ctx context.Context, id uint, changes store.Changes) (*models.Link, error) {
	var link models.Link
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Link{}).Where("id = ?", id).Updates(changes.Columns(s.now()))
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				return store.ErrCodeTaken
			}
			return fmt.Errorf("failed to update link: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return tx.First(&link, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// DeleteByID hard deletes the link.
func (s *Store) DeleteByID(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Link{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete link: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// IncrementClicks runs clicks = clicks + 1 in the database, guarded on the
// snapshot's code, destination and active flag. updated_at is left alone
// since a click is not a mutation.
//
// Expiry is read back inside the same transaction, after the UPDATE has
// taken the write lock, and an expired row rolls the click back.
func (s *Store) IncrementClicks(ctx context.Context, link *models.Link, now time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Link{}).
			Where("id = ? AND code = ? AND destination = ? AND active = ?", link.ID, link.Code, link.Destination, true).
			UpdateColumn("clicks", gorm.Expr("clicks + ?", 1))
		if result.Error != nil {
			return fmt.Errorf("failed to increment clicks: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return store.ErrStale
		}

		var stored models.Link
		if err := tx.Select("id", "expires_at").First(&stored, link.ID).Error; err != nil {
			return fmt.Errorf("failed to increment clicks: %w", err)
		}
		if stored.IsExpired(now) {
			return store.ErrStale
		}
		return nil
	})
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return fmt.Errorf("failed to find link: %w", err)
}
