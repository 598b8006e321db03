package pointcache

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore persists the snapshots in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at path and applies the schema.
// ":memory:" opens a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

func (s *SQLiteStore) Write(ctx context.Context, id uuid.UUID, snap Snapshot) error {
	if s.db == nil {
		return ErrStoreClosed
	}

	bodies, err := marshalBodies(snap.Bodies)
	if err != nil {
		return fmt.Errorf("write frame %d: %w", snap.Frame, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO frames (cache_id, frame, bodies)
		VALUES (?, ?, ?)
		ON CONFLICT(cache_id, frame) DO UPDATE SET bodies = excluded.bodies
	`, id.String(), snap.Frame, bodies)
	if err != nil {
		return fmt.Errorf("write frame %d: %w", snap.Frame, err)
	}

	return nil
}

func (s *SQLiteStore) Read(ctx context.Context, id uuid.UUID, frame int) (Snapshot, bool, error) {
	if s.db == nil {
		return Snapshot{}, false, ErrStoreClosed
	}

	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT bodies FROM frames
		WHERE cache_id = ? AND frame = ?
	`, id.String(), frame).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("read frame %d: %w", frame, err)
	}

	bodies, err := unmarshalBodies(data)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("read frame %d: %w", frame, err)
	}

	return Snapshot{Frame: frame, Bodies: bodies}, true, nil
}

func (s *SQLiteStore) Clear(ctx context.Context, id uuid.UUID) error {
	if s.db == nil {
		return ErrStoreClosed
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM frames WHERE cache_id = ?`, id.String()); err != nil {
		return fmt.Errorf("clear cache %s: %w", id, err)
	}
	return nil
}

// Frames lists the stored frames of id in ascending order.
func (s *SQLiteStore) Frames(ctx context.Context, id uuid.UUID) ([]int, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT frame FROM frames
		WHERE cache_id = ?
		ORDER BY frame ASC
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	frames := []int{}
	for rows.Next() {
		var frame int
		if err := rows.Scan(&frame); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		frames = append(frames, frame)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}

	return frames, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
