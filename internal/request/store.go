package request

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Manuele79/dj-requests/internal/platform"
)

type Store interface {
	GetEvent(ctx context.Context, code string) (*Event, error)
	UpsertEvent(ctx context.Context, code string, expiresAt time.Time) (*Event, error)
	CreatePassword(ctx context.Context) (string, error)

	Insert(ctx context.Context, item *RequestItem) error
	FindByVideoID(ctx context.Context, code, videoID string) (*RequestItem, error)
	Get(ctx context.Context, id string) (*RequestItem, error)
	UpdateMerged(ctx context.Context, id string, votes int, title string, updatedAt time.Time) (*RequestItem, error)
	UpdateVotes(ctx context.Context, id string, votes int, updatedAt time.Time) (*RequestItem, error)
	List(ctx context.Context, code string, since time.Time, limit int) ([]RequestItem, error)

	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func AutoMigrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS events(
            event_code TEXT PRIMARY KEY,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            expires_at TIMESTAMPTZ NOT NULL
        )
    `); err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS requests(
            id uuid PRIMARY KEY,
            event_code TEXT NOT NULL REFERENCES events(event_code) ON DELETE CASCADE,
            title TEXT NOT NULL,
            url TEXT NOT NULL DEFAULT '',
            platform TEXT NOT NULL DEFAULT 'other',
            youtube_video_id TEXT NOT NULL DEFAULT '',
            dedication TEXT NOT NULL DEFAULT '',
            votes INT NOT NULL DEFAULT 1,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )
    `); err != nil {
		return err
	}

	// Closes the duplicate-insert race: concurrent identical youtube
	// submissions hit this index and the loser retries as a merge.
	if _, err := pool.Exec(ctx, `
        CREATE UNIQUE INDEX IF NOT EXISTS idx_requests_fingerprint
        ON requests(event_code, youtube_video_id)
        WHERE platform = 'youtube' AND youtube_video_id <> ''
    `); err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, `
        CREATE INDEX IF NOT EXISTS idx_requests_event_ranking
        ON requests(event_code, votes DESC, updated_at DESC)
    `); err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS settings(
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL
        )
    `); err != nil {
		return err
	}

	return nil
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// failure (code 23505).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) GetEvent(ctx context.Context, code string) (*Event, error) {
	var ev Event
	err := s.pool.QueryRow(ctx, `
        SELECT event_code, created_at, expires_at FROM events WHERE event_code=$1
    `, code).Scan(&ev.EventCode, &ev.CreatedAt, &ev.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *PostgresStore) UpsertEvent(ctx context.Context, code string, expiresAt time.Time) (*Event, error) {
	var ev Event
	err := s.pool.QueryRow(ctx, `
        INSERT INTO events(event_code, expires_at)
        VALUES($1,$2)
        ON CONFLICT (event_code)
        DO UPDATE SET expires_at = EXCLUDED.expires_at
        RETURNING event_code, created_at, expires_at
    `, code, expiresAt).Scan(&ev.EventCode, &ev.CreatedAt, &ev.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *PostgresStore) CreatePassword(ctx context.Context) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `
        SELECT value FROM settings WHERE key='create_event_password'
    `).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *PostgresStore) Insert(ctx context.Context, item *RequestItem) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO requests(id, event_code, title, url, platform, youtube_video_id, dedication, votes, created_at, updated_at)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    `, item.ID, item.EventCode, item.Title, item.URL, string(item.Platform),
		item.YouTubeVideoID, item.Dedication, item.Votes, item.CreatedAt, item.UpdatedAt)
	return err
}

const requestColumns = `id, event_code, title, url, platform, youtube_video_id, dedication, votes, created_at, updated_at`

func scanRequest(row pgx.Row) (*RequestItem, error) {
	var it RequestItem
	var pf string
	err := row.Scan(&it.ID, &it.EventCode, &it.Title, &it.URL, &pf,
		&it.YouTubeVideoID, &it.Dedication, &it.Votes, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	it.Platform = platform.Platform(pf)
	return &it, nil
}

func (s *PostgresStore) FindByVideoID(ctx context.Context, code, videoID string) (*RequestItem, error) {
	row := s.pool.QueryRow(ctx, `
        SELECT `+requestColumns+`
        FROM requests
        WHERE event_code=$1 AND platform='youtube' AND youtube_video_id=$2
        LIMIT 1
    `, code, videoID)
	return scanRequest(row)
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*RequestItem, error) {
	row := s.pool.QueryRow(ctx, `
        SELECT `+requestColumns+` FROM requests WHERE id=$1
    `, id)
	return scanRequest(row)
}

func (s *PostgresStore) UpdateMerged(ctx context.Context, id string, votes int, title string, updatedAt time.Time) (*RequestItem, error) {
	row := s.pool.QueryRow(ctx, `
        UPDATE requests SET votes=$2, title=$3, updated_at=$4
        WHERE id=$1
        RETURNING `+requestColumns+`
    `, id, votes, title, updatedAt)
	return scanRequest(row)
}

func (s *PostgresStore) UpdateVotes(ctx context.Context, id string, votes int, updatedAt time.Time) (*RequestItem, error) {
	row := s.pool.QueryRow(ctx, `
        UPDATE requests SET votes=$2, updated_at=$3
        WHERE id=$1
        RETURNING `+requestColumns+`
    `, id, votes, updatedAt)
	return scanRequest(row)
}

func (s *PostgresStore) List(ctx context.Context, code string, since time.Time, limit int) ([]RequestItem, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT `+requestColumns+`
        FROM requests
        WHERE event_code=$1 AND created_at >= $2
        ORDER BY votes DESC, updated_at DESC
        LIMIT $3
    `, code, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]RequestItem, 0)
	for rows.Next() {
		it, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteExpired removes events past their expiry along with their requests
// (cascade) plus stray requests that fell out of the browse window.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM events WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	removed := tag.RowsAffected()

	tag, err = s.pool.Exec(ctx, `DELETE FROM requests WHERE created_at < $1`, now.Add(-BrowseWindow))
	if err != nil {
		return removed, err
	}
	return removed + tag.RowsAffected(), nil
}

