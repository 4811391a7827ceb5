package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"urlshortener/internal/model"
)

// Sentinel errors. ErrDuplicate signals a lost uniqueness race (url_hash or
// short_code); callers resolve it by re-reading, never by overwriting.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

const pgUniqueViolation = "23505"

// SequenceName keys the single shared allocator row in the counters table.
const SequenceName = "url_sequence"

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// EnsureSchema creates the mapping and counter tables if they are missing.
// The two unique indexes on url_mappings are the only mutual exclusion the
// dedup path relies on.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS url_mappings (
			id          BIGSERIAL PRIMARY KEY,
			long_url    TEXT NOT NULL,
			url_hash    CHAR(64) NOT NULL UNIQUE,
			short_code  VARCHAR(16) NOT NULL UNIQUE,
			click_count BIGINT NOT NULL DEFAULT 0,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS counters (
			name VARCHAR(64) PRIMARY KEY,
			seq  BIGINT NOT NULL
		);
	`
	if _, err := r.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *Repo) GetByCode(ctx context.Context, code string) (*model.URLMapping, error) {
	q := `SELECT id, long_url, url_hash, short_code, click_count, created_at, updated_at
		FROM url_mappings WHERE short_code = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, q, code))
}

func (r *Repo) GetByHash(ctx context.Context, hash string) (*model.URLMapping, error) {
	q := `SELECT id, long_url, url_hash, short_code, click_count, created_at, updated_at
		FROM url_mappings WHERE url_hash = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, q, hash))
}

func (r *Repo) scanOne(row *sql.Row) (*model.URLMapping, error) {
	var m model.URLMapping
	err := row.Scan(&m.ID, &m.LongURL, &m.URLHash, &m.ShortCode, &m.ClickCount, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts the mapping and fills in the store-assigned fields. A unique
// violation on either key comes back as ErrDuplicate.
func (r *Repo) Create(ctx context.Context, m *model.URLMapping) error {
	q := `INSERT INTO url_mappings (long_url, url_hash, short_code, click_count)
		VALUES ($1, $2, $3, 0)
		RETURNING id, created_at, updated_at`
	err := r.DB.QueryRowContext(ctx, q, m.LongURL, m.URLHash, m.ShortCode).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		}
		return err
	}
	m.ClickCount = 0
	return nil
}

// NextSequence atomically bumps the named counter, creating it on first use.
// The single upsert statement makes concurrent calls linearizable without any
// application-level lock.
func (r *Repo) NextSequence(ctx context.Context, name string) (uint64, error) {
	q := `INSERT INTO counters (name, seq) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET seq = counters.seq + 1
		RETURNING seq`
	var seq uint64
	if err := r.DB.QueryRowContext(ctx, q, name).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}

// IncrementClicks adds delta to one mapping's count. A missing code is not an
// error: a racing delete must not crash the aggregator.
func (r *Repo) IncrementClicks(ctx context.Context, code string, delta int64) error {
	q := `UPDATE url_mappings
		SET click_count = click_count + $2, updated_at = now()
		WHERE short_code = $1`
	_, err := r.DB.ExecContext(ctx, q, code, delta)
	return err
}

// BulkIncrementClicks applies one batch of aggregated counts. Codes are
// independent: one failing increment does not stop the rest, and all failures
// come back joined so the caller can retry the whole batch.
func (r *Repo) BulkIncrementClicks(ctx context.Context, counts map[string]int64) error {
	var errs []error
	for code, delta := range counts {
		if err := r.IncrementClicks(ctx, code, delta); err != nil {
			errs = append(errs, fmt.Errorf("increment %s: %w", code, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Repo) List(ctx context.Context, offset, limit int) ([]model.URLMapping, error) {
	q := `SELECT id, long_url, url_hash, short_code, click_count, created_at, updated_at
		FROM url_mappings ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make([]model.URLMapping, 0, limit)
	for rows.Next() {
		var m model.URLMapping
		if err := rows.Scan(&m.ID, &m.LongURL, &m.URLHash, &m.ShortCode, &m.ClickCount, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
