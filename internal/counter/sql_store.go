package counter

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

const (
	selectCounterQuery = `SELECT counter FROM flashcardscreated LIMIT 1`

	incrementCounterQuery = `UPDATE flashcardscreated SET counter = counter + ? RETURNING counter`

	diagnosticInsertQuery = `INSERT INTO comments (post_id, user_id, comment_text, created_at)
		VALUES (2, 3, 'This is another sample comment.', CURRENT_TIMESTAMP)`
)

// SQLStore keeps the counter in a single-row flashcardscreated table. Works
// against SQLite and Postgres (Neon).
type SQLStore struct {
	db     *sql.DB
	driver string
}

func OpenSQL(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported counter driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return NewSQLStore(db, driver), nil
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// EnsureSchema creates the counter and comments tables if they are missing
// and seeds the counter row.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	counterTable := `
	CREATE TABLE IF NOT EXISTS flashcardscreated (
		counter BIGINT NOT NULL DEFAULT 0
	);`
	if _, err := s.db.ExecContext(ctx, counterTable); err != nil {
		return fmt.Errorf("failed to create flashcardscreated table: %w", err)
	}

	seed := `INSERT INTO flashcardscreated (counter)
		SELECT 0 WHERE NOT EXISTS (SELECT 1 FROM flashcardscreated)`
	if _, err := s.db.ExecContext(ctx, seed); err != nil {
		return fmt.Errorf("failed to seed counter: %w", err)
	}

	commentsTable := `
	CREATE TABLE IF NOT EXISTS comments (
		post_id INTEGER,
		user_id INTEGER,
		comment_text TEXT,
		created_at TIMESTAMP
	);`
	if _, err := s.db.ExecContext(ctx, commentsTable); err != nil {
		return fmt.Errorf("failed to create comments table: %w", err)
	}

	return nil
}

func (s *SQLStore) Current(ctx context.Context) (int64, error) {
	var value int64
	if err := s.db.QueryRowContext(ctx, selectCounterQuery).Scan(&value); err != nil {
		return 0, fmt.Errorf("failed to read counter: %w", err)
	}
	return value, nil
}

func (s *SQLStore) Add(ctx context.Context, n int64) (int64, error) {
	var updated int64
	if err := s.db.QueryRowContext(ctx, s.rebind(incrementCounterQuery), n).Scan(&updated); err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}
	return updated - n, nil
}

func (s *SQLStore) Diagnose(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, diagnosticInsertQuery); err != nil {
		return fmt.Errorf("failed to insert diagnostic comment: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind turns ? placeholders into $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
