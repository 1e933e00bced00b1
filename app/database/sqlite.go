package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps every collection in one documents table.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps ReplaceAll serialized with readers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	version, dirty, err := RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("Database opened", "path", path, "migration_version", version, "dirty", dirty)

	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, collection, key string) (Document, bool, error) {
	var data string
	var updatedAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT data, updated_at FROM documents WHERE collection = ? AND key = ?`,
		collection, key).Scan(&data, &updatedAt)
	if err == sql.ErrNoRows {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("failed to get document %s/%s: %w", collection, key, err)
	}

	return Document{Key: key, Data: []byte(data), UpdatedAt: time.Unix(updatedAt, 0).UTC()}, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, collection string, doc Document) error {
	if err := upsertDocument(ctx, s.db, collection, doc); err != nil {
		return fmt.Errorf("failed to set document %s/%s: %w", collection, doc.Key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND key = ?`, collection, key)
	if err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *SQLiteStore) ListAll(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, data, updated_at FROM documents WHERE collection = ? ORDER BY key`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents in %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var data string
		var updatedAt int64
		if err := rows.Scan(&doc.Key, &data, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Data = []byte(data)
		doc.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents in %s: %w", collection, err)
	}

	return docs, nil
}

func (s *SQLiteStore) SetBatch(ctx context.Context, collection string, docs []Document) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, doc := range docs {
			if err := upsertDocument(ctx, tx, collection, doc); err != nil {
				return fmt.Errorf("failed to set document %s/%s: %w", collection, doc.Key, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) DeleteAll(ctx context.Context, collection string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, collection)
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", collection, err)
	}
	return nil
}

func (s *SQLiteStore) ReplaceAll(ctx context.Context, collection string, docs []Document) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, collection); err != nil {
			return fmt.Errorf("failed to clear %s: %w", collection, err)
		}
		for _, doc := range docs {
			if err := upsertDocument(ctx, tx, collection, doc); err != nil {
				return fmt.Errorf("failed to set document %s/%s: %w", collection, doc.Key, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertDocument(ctx context.Context, e execer, collection string, doc Document) error {
	updatedAt := doc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := e.ExecContext(ctx, `
		INSERT INTO documents (collection, key, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, key) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, collection, doc.Key, string(doc.Data), updatedAt.Unix())
	return err
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
