package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/sneaker-rotation/internal/apperror"
	"github.com/sakif/sneaker-rotation/internal/model"
	"github.com/sakif/sneaker-rotation/internal/repository"
)

const sneakerColumns = `id, user_id, brand, title, tag, rating, image, in_rotation, created_at, updated_at`

// Create inserts a new sneaker. ID and timestamps are assigned here and
// written back into s so the caller sees the stored record.
//
// Nullable columns (rating, image) go through sql.Null* so a nil pointer
// becomes NULL rather than a zero value.
func (db *DB) Create(ctx context.Context, s *model.Sneaker) error {
	now := time.Now().UTC()
	s.ID = xid.New().String()
	s.CreatedAt = now
	s.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sneakers (`+sneakerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Brand, s.Title, s.Tag,
		nullFloat(s.Rating), nullString(s.Image),
		s.InRotation, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating sneaker: %w", err)
	}
	return nil
}

// GetByID retrieves a single sneaker by its ID.
// sql.ErrNoRows is translated to apperror.NotFound so the handler returns 404.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Sneaker, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+sneakerColumns+` FROM sneakers WHERE id = ?`, id)
	s, err := scanSneaker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("sneaker", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting sneaker %s: %w", id, err)
	}
	return s, nil
}

// List returns one user's sneakers, oldest first. q.InRotation narrows the
// result at the store when set.
func (db *DB) List(ctx context.Context, q repository.SneakerQuery) ([]model.Sneaker, error) {
	query := `SELECT ` + sneakerColumns + ` FROM sneakers WHERE user_id = ?`
	args := []any{q.UserID}
	if q.InRotation != nil {
		query += ` AND in_rotation = ?`
		args = append(args, *q.InRotation)
	}
	query += ` ORDER BY created_at, id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing sneakers: %w", err)
	}
	// sql.Rows holds a pooled connection until closed. With the in-memory
	// pool capped at one connection, a leaked Rows blocks every later query.
	defer rows.Close()

	sneakers := make([]model.Sneaker, 0)
	for rows.Next() {
		s, err := scanSneaker(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning sneaker: %w", err)
		}
		sneakers = append(sneakers, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating sneakers: %w", err)
	}
	return sneakers, nil
}

// Update applies a partial update to a sneaker owned by ownerID.
//
// Only the columns present in the patch appear in the SET clause, so absent
// fields keep their stored values. The WHERE clause includes user_id: an
// update aimed at someone else's row matches nothing and reports not found.
func (db *DB) Update(ctx context.Context, id, ownerID string, patch model.SneakerPatch) (*model.Sneaker, error) {
	cols, vals := repository.PatchColumns(patch)
	if len(cols) == 0 {
		return nil, apperror.ValidationFailed("", "no fields to update")
	}

	sets := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(vals)+3)
	for i, c := range cols {
		sets = append(sets, c+" = ?")
		args = append(args, vals[i])
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id, ownerID)

	res, err := db.conn.ExecContext(ctx,
		`UPDATE sneakers SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating sneaker %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking update of sneaker %s: %w", id, err)
	}
	if n == 0 {
		return nil, apperror.NotFound("sneaker", id)
	}

	return db.GetByID(ctx, id)
}

// Delete removes a sneaker owned by ownerID and returns the removed row.
func (db *DB) Delete(ctx context.Context, id, ownerID string) (*model.Sneaker, error) {
	existing, err := db.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.UserID != ownerID {
		return nil, apperror.NotFound("sneaker", id)
	}

	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM sneakers WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: deleting sneaker %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking delete of sneaker %s: %w", id, err)
	}
	if n == 0 {
		return nil, apperror.NotFound("sneaker", id)
	}
	return existing, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSneaker(row rowScanner) (*model.Sneaker, error) {
	var (
		s      model.Sneaker
		rating sql.NullFloat64
		image  sql.NullString
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.Brand, &s.Title, &s.Tag,
		&rating, &image, &s.InRotation, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if rating.Valid {
		s.Rating = &rating.Float64
	}
	if image.Valid {
		s.Image = &image.String
	}
	return &s, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
