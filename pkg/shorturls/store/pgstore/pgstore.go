// Package pgstore implements store.Store on Postgres with lib/pq and
// hand-written SQL. Schema changes live in migrations/ and are applied
// with goose.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mikepea/shorturls/pkg/shorturls/models"
	"github.com/mikepea/shorturls/pkg/shorturls/store"
)

const uniqueViolation = "23505"

const linkColumns = `id, created_at, updated_at, code, destination, title, active, expires_at, created_by_id, clicks`

var _ store.Store = (*Store)(nil)

// Store is a Postgres-backed link store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New returns a store using db. Run Migrate first.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanLink(row scanner) (*models.Link, error) {
	var (
		link      models.Link
		id        int64
		expiresAt sql.NullTime
		createdBy sql.NullInt64
	)
	err := row.Scan(
		&id,
		&link.CreatedAt,
		&link.UpdatedAt,
		&link.Code,
		&link.Destination,
		&link.Title,
		&link.Active,
		&expiresAt,
		&createdBy,
		&link.Clicks,
	)
	if err != nil {
		return nil, err
	}

	link.ID = uint(id)
	if expiresAt.Valid {
		t := expiresAt.Time
		link.ExpiresAt = &t
	}
	if createdBy.Valid {
		uid := uint(createdBy.Int64)
		link.CreatedByID = &uid
	}
	return &link, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// InsertUnique relies on the unique index on code; a violation means the
// code is taken and nothing was written.
func (s *Store) InsertUnique(ctx context.Context, link *models.Link) (*models.Link, error) {
	now := s.now().UTC()

	var expiresAt interface{}
	if link.ExpiresAt != nil {
		expiresAt = link.ExpiresAt.UTC()
	}
	var createdBy interface{}
	if link.CreatedByID != nil {
		createdBy = int64(*link.CreatedByID)
	}

	query := `
		INSERT INTO links (created_at, updated_at, code, destination, title, active, expires_at, created_by_id)
		VALUES ($1, $1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + linkColumns

	row := s.db.QueryRowContext(ctx, query,
		now, link.Code, link.Destination, link.Title, link.Active, expiresAt, createdBy)
	created, err := scanLink(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrCodeTaken
		}
		return nil, fmt.Errorf("failed to insert link: %w", err)
	}
	return created, nil
}

func (s *Store) findOne(ctx context.Context, where string, arg interface{}) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE ` + where
	link, err := scanLink(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find link: %w", err)
	}
	return link, nil
}

// FindByCode returns the link holding code.
func (s *Store) FindByCode(ctx context.Context, code string) (*models.Link, error) {
	return s.findOne(ctx, "code = $1", code)
}

// FindByID returns the link with the given id.
func (s *Store) FindByID(ctx context.Context, id uint) (*models.Link, error) {
	return s.findOne(ctx, "id = $1", int64(id))
}

// List returns all links, newest first.
func (s *Store) List(ctx context.Context) ([]models.Link, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM links ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links := []models.Link{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, *link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// UpdateByID builds a single UPDATE from the changed columns.
func (s *Store) UpdateByID(ctx context.Context, id uint, changes store.Changes) (*models.Link, error) {
	cols := changes.Columns(s.now().UTC())

	// Fixed order keeps the generated SQL stable.
	order := []string{"code", "destination", "title", "active", "expires_at", "updated_at"}
	sets := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols)+1)
	for _, col := range order {
		val, ok := cols[col]
		if !ok {
			continue
		}
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	args = append(args, int64(id))

	query := fmt.Sprintf(`UPDATE links SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), linkColumns)

	link, err := scanLink(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrCodeTaken
		}
		return nil, fmt.Errorf("failed to update link: %w", err)
	}
	return link, nil
}

// DeleteByID removes the link row.
func (s *Store) DeleteByID(ctx context.Context, id uint) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM links WHERE id = $1`, int64(id))
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// IncrementClicks adds one to the counter in a single statement that also
// checks the row still matches the snapshot and is live.
func (s *Store) IncrementClicks(ctx context.Context, link *models.Link, now time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE links SET clicks = clicks + 1
		WHERE id = $1 AND code = $2 AND destination = $3 AND active
		  AND (expires_at IS NULL OR expires_at >= $4)`,
		int64(link.ID), link.Code, link.Destination, now.UTC())
	if err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrStale
	}
	return nil
}
