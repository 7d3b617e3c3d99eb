// Package postgres stores snippet metadata in PostgreSQL through pgxpool.
// The schema mirrors the sqlite store: epoch-millisecond timestamps and an
// index on expires_at for the sweeper.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wadjakorntonsri/go-snippet-bin/pkg/core/domain"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/ports"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const snippetColumns = `id, language, title, created_at, expires_at, file_size, views, content_key`

// Repository implements ports.MetadataStore on PostgreSQL.
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open applies migrations to the database at dsn and connects a pool to it.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Repository, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := Migrate(dsn, logger); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("metadata store opened",
		slog.String("driver", "pgx"),
		slog.String("host", poolCfg.ConnConfig.Host),
		slog.String("database", poolCfg.ConnConfig.Database),
	)
	return &Repository{pool: pool, logger: logger}, nil
}

// Migrate applies the embedded migrations using golang-migrate's pgx5 driver.
func Migrate(dsn string, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(dsn))
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("migrations applied",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// migrateURL rewrites a postgres:// DSN to the pgx5:// scheme golang-migrate expects.
func migrateURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

func (r *Repository) Insert(ctx context.Context, snippet *domain.Snippet) error {
	query := `
		INSERT INTO snippets (` + snippetColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	var title *string
	if snippet.Title != "" {
		title = &snippet.Title
	}
	tag, err := r.pool.Exec(ctx, query,
		snippet.ID, snippet.Language, title,
		domain.ToMillis(snippet.CreatedAt), domain.ToMillis(snippet.ExpiresAt),
		snippet.FileSize, snippet.Views, snippet.ContentKey,
	)
	if err != nil {
		return fmt.Errorf("%w: insert %s: %w", domain.ErrStorage, snippet.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", snippet.ID, domain.ErrDuplicateID)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Snippet, error) {
	query := `SELECT ` + snippetColumns + ` FROM snippets WHERE id = $1`

	s, err := scanSnippet(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: get %s: %w", domain.ErrStorage, id, err)
	}
	return s, nil
}

func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM snippets WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %w", domain.ErrStorage, id, err)
	}
	return exists, nil
}

func (r *Repository) IncrementViews(ctx context.Context, id string) (int64, error) {
	var views int64
	err := r.pool.QueryRow(ctx,
		`UPDATE snippets SET views = views + 1 WHERE id = $1 RETURNING views`, id).Scan(&views)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", id, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("%w: increment views %s: %w", domain.ErrStorage, id, err)
	}
	return views, nil
}

func (r *Repository) FindExpiredBefore(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM snippets WHERE expires_at < $1 ORDER BY expires_at`, domain.ToMillis(before))
	if err != nil {
		return nil, fmt.Errorf("%w: find expired: %w", domain.ErrStorage, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%w: find expired: %w", domain.ErrStorage, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM snippets WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%w: delete %s: %w", domain.ErrStorage, id, err)
	}
	return nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM snippets`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count: %w", domain.ErrStorage, err)
	}
	return count, nil
}

func (r *Repository) CountExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM snippets WHERE expires_at < $1`, domain.ToMillis(before)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count expired: %w", domain.ErrStorage, err)
	}
	return count, nil
}

func (r *Repository) Dump(ctx context.Context) ([]domain.Snippet, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+snippetColumns+` FROM snippets ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: dump: %w", domain.ErrStorage, err)
	}
	defer rows.Close()

	snippets := []domain.Snippet{}
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: dump: %w", domain.ErrStorage, err)
		}
		snippets = append(snippets, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: dump: %w", domain.ErrStorage, err)
	}
	return snippets, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func scanSnippet(row pgx.Row) (*domain.Snippet, error) {
	var (
		s                    domain.Snippet
		title                *string
		createdAt, expiresAt int64
	)
	if err := row.Scan(&s.ID, &s.Language, &title, &createdAt, &expiresAt, &s.FileSize, &s.Views, &s.ContentKey); err != nil {
		return nil, err
	}
	if title != nil {
		s.Title = *title
	}
	s.CreatedAt = domain.FromMillis(createdAt)
	s.ExpiresAt = domain.FromMillis(expiresAt)
	return &s, nil
}

// Ensure interface compliance
var _ ports.MetadataStore = (*Repository)(nil)
