// Package postgres persists interest posts. It implements
// domain.InterestStore.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/calebwray/interest-radar/internal/domain"
)

// Repository implements domain.InterestStore using PostgreSQL.
type Repository struct {
	db *sql.DB
}

// NewRepository connects to PostgreSQL at the given URL, verifies the
// connection, and returns a new Repository. The caller should call Close
// when the repository is no longer needed.
func NewRepository(databaseURL string) (*Repository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// EnsureSchema creates the interests table if it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS interests (
			id          UUID PRIMARY KEY,
			author_id   TEXT NOT NULL,
			author_name TEXT NOT NULL,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			tags        TEXT[] NOT NULL DEFAULT '{}',
			lng         DOUBLE PRECISION NOT NULL,
			lat         DOUBLE PRECISION NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create interests table: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS interests_author_created_idx
		ON interests (author_id, created_at DESC)`)
	if err != nil {
		return fmt.Errorf("create interests index: %w", err)
	}
	return nil
}

// Create inserts a new interest post, assigning its id and creation time.
func (r *Repository) Create(ctx context.Context, interest *domain.Interest) error {
	if interest.Location == nil {
		return &domain.ValidationError{Reason: "post has no location"}
	}

	interest.ID = uuid.NewString()
	interest.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO interests (id, author_id, author_name, title, description, tags, lng, lat, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		interest.ID,
		interest.AuthorID,
		interest.AuthorName,
		interest.Title,
		interest.Description,
		pq.Array(interest.Tags),
		interest.Location.Lng,
		interest.Location.Lat,
		interest.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert interest: %w", err)
	}
	return nil
}

// GetByID retrieves one post.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Interest, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, author_id, author_name, title, description, tags, lng, lat, created_at
		FROM interests
		WHERE id = $1`, id)

	interest, err := scanInterest(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get interest %s: %w", id, err)
	}
	return interest, nil
}

// ListByAuthor retrieves an author's posts, newest first.
func (r *Repository) ListByAuthor(ctx context.Context, authorID string) ([]domain.Interest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, author_id, author_name, title, description, tags, lng, lat, created_at
		FROM interests
		WHERE author_id = $1
		ORDER BY created_at DESC`, authorID)
	if err != nil {
		return nil, fmt.Errorf("list interests for %s: %w", authorID, err)
	}
	defer rows.Close()

	return collectInterests(rows)
}

// ListByIDs retrieves the posts with the given ids, preserving the input
// order. Ids that no longer exist are skipped.
func (r *Repository) ListByIDs(ctx context.Context, ids []string) ([]domain.Interest, error) {
	if len(ids) == 0 {
		return []domain.Interest{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, author_id, author_name, title, description, tags, lng, lat, created_at
		FROM interests
		WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list interests by ids: %w", err)
	}
	defer rows.Close()

	interests, err := collectInterests(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Interest, len(interests))
	for _, i := range interests {
		byID[i.ID] = i
	}
	ordered := make([]domain.Interest, 0, len(interests))
	for _, id := range ids {
		if i, ok := byID[id]; ok {
			ordered = append(ordered, i)
		}
	}
	return ordered, nil
}

// Delete removes a post owned by authorID.
func (r *Repository) Delete(ctx context.Context, id, authorID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM interests WHERE id = $1 AND author_id = $2`, id, authorID)
	if err != nil {
		return fmt.Errorf("delete interest %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete interest %s: %w", id, err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInterest(row rowScanner) (*domain.Interest, error) {
	var (
		interest domain.Interest
		tags     pq.StringArray
		loc      domain.Point
	)
	err := row.Scan(
		&interest.ID,
		&interest.AuthorID,
		&interest.AuthorName,
		&interest.Title,
		&interest.Description,
		&tags,
		&loc.Lng,
		&loc.Lat,
		&interest.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	interest.Tags = tags
	interest.Location = &loc
	return &interest, nil
}

func collectInterests(rows *sql.Rows) ([]domain.Interest, error) {
	interests := []domain.Interest{}
	for rows.Next() {
		interest, err := scanInterest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interest: %w", err)
		}
		interests = append(interests, *interest)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interests: %w", err)
	}
	return interests, nil
}
