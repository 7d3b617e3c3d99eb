package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	_ "modernc.org/sqlite"                               // Local SQLite driver

	"github.com/wadjakorntonsri/go-snippet-bin/pkg/core/domain"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/ports"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// busyTimeout lets a writer wait for the lock instead of failing with SQLITE_BUSY.
const busyTimeout = 5 * time.Second

type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteRepository opens dbURL, applies migrations and returns a ready store.
// libsql:// and wss:// URLs go to Turso; anything else is a local file.
func NewSQLiteRepository(ctx context.Context, dbURL string, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}

	driverName := "sqlite"
	dsn := dbURL
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	} else {
		var err error
		if dsn, err = localDSN(dbURL); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driverName, err)
	}
	if isMemory(dbURL) {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driverName, err)
	}

	if driverName == "sqlite" && !isMemory(dbURL) {
		if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("metadata store opened", "driver", driverName)
	return &SQLiteRepository{db: db, logger: logger}, nil
}

func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("init migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	// m.Close would also close db, which the repository keeps using
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// localDSN creates the parent directory of a file database and adds the
// busy_timeout pragma understood by modernc.org/sqlite.
func localDSN(dbURL string) (string, error) {
	if !isMemory(dbURL) {
		path := strings.TrimPrefix(dbURL, "file:")
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return "", fmt.Errorf("create database dir %s: %w", dir, err)
			}
		}
	}
	if strings.Contains(dbURL, "busy_timeout") {
		return dbURL, nil
	}
	sep := "?"
	if strings.Contains(dbURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)", dbURL, sep, busyTimeout.Milliseconds()), nil
}

func isMemory(dbURL string) bool {
	return strings.Contains(dbURL, ":memory:") || strings.Contains(dbURL, "mode=memory")
}

func (r *SQLiteRepository) Insert(ctx context.Context, snippet *domain.Snippet) error {
	query := `INSERT INTO snippets (id, language, title, created_at, expires_at, file_size, views, content_key)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		snippet.ID, snippet.Language, nullString(snippet.Title),
		domain.ToMillis(snippet.CreatedAt), domain.ToMillis(snippet.ExpiresAt),
		snippet.FileSize, snippet.Views, snippet.ContentKey,
	)
	if err != nil {
		return fmt.Errorf("%w: insert %s: %w", domain.ErrStorage, snippet.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: insert %s: %w", domain.ErrStorage, snippet.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", snippet.ID, domain.ErrDuplicateID)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*domain.Snippet, error) {
	query := `SELECT id, language, title, created_at, expires_at, file_size, views, content_key
			  FROM snippets WHERE id = ?`

	s, err := scanSnippet(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", domain.ErrStorage, id, err)
	}
	return s, nil
}

func (r *SQLiteRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM snippets WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %w", domain.ErrStorage, id, err)
	}
	return exists, nil
}

func (r *SQLiteRepository) IncrementViews(ctx context.Context, id string) (int64, error) {
	// Increment Views Counter (Atomic)
	query := `UPDATE snippets SET views = views + 1 WHERE id = ? RETURNING views`

	var views int64
	err := r.db.QueryRowContext(ctx, query, id).Scan(&views)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: increment views %s: %w", domain.ErrStorage, id, err)
	}
	return views, nil
}

func (r *SQLiteRepository) FindExpiredBefore(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM snippets WHERE expires_at < ? ORDER BY expires_at`, domain.ToMillis(before))
	if err != nil {
		return nil, fmt.Errorf("%w: find expired: %w", domain.ErrStorage, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: find expired: %w", domain.ErrStorage, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: find expired: %w", domain.ErrStorage, err)
	}
	return ids, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM snippets WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: delete %s: %w", domain.ErrStorage, id, err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snippets`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count: %w", domain.ErrStorage, err)
	}
	return count, nil
}

func (r *SQLiteRepository) CountExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM snippets WHERE expires_at < ?`, domain.ToMillis(before)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count expired: %w", domain.ErrStorage, err)
	}
	return count, nil
}

func (r *SQLiteRepository) Dump(ctx context.Context) ([]domain.Snippet, error) {
	query := `SELECT id, language, title, created_at, expires_at, file_size, views, content_key
			  FROM snippets ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
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

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnippet(row rowScanner) (*domain.Snippet, error) {
	var (
		s                    domain.Snippet
		title                sql.NullString
		createdAt, expiresAt int64
	)
	if err := row.Scan(&s.ID, &s.Language, &title, &createdAt, &expiresAt, &s.FileSize, &s.Views, &s.ContentKey); err != nil {
		return nil, err
	}
	s.Title = title.String
	s.CreatedAt = domain.FromMillis(createdAt)
	s.ExpiresAt = domain.FromMillis(expiresAt)
	return &s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Ensure interface compliance
var _ ports.MetadataStore = (*SQLiteRepository)(nil)
