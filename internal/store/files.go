package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// File is an uploaded deck.
type File struct {
	ID        int64
	UserID    string
	Filename  string
	Path      string
	SHA256    string
	SizeBytes int64
	CreatedAt time.Time

	// AnalysisCount is filled by ListFiles.
	AnalysisCount int
}

// CreateFile inserts f and returns it with ID and CreatedAt set.
func (s *Store) CreateFile(ctx context.Context, f File) (File, error) {
	created := s.timestamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO files (user_id, filename, path, sha256, size_bytes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.UserID, f.Filename, f.Path, f.SHA256, f.SizeBytes, created,
	)
	if err != nil {
		return File{}, fmt.Errorf("inserting file: %w", err)
	}
	if f.ID, err = res.LastInsertId(); err != nil {
		return File{}, err
	}
	f.CreatedAt = parseTime(created)
	return f, nil
}

// GetFile returns the file with id if it belongs to userID.
func (s *Store) GetFile(ctx context.Context, id int64, userID string) (File, error) {
	var f File
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, filename, path, sha256, size_bytes, created_at
		 FROM files WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&f.ID, &f.UserID, &f.Filename, &f.Path, &f.SHA256, &f.SizeBytes, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return File{}, fmt.Errorf("file %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return File{}, fmt.Errorf("querying file: %w", err)
	}
	f.CreatedAt = parseTime(created)
	return f, nil
}

// ListFiles returns the user's files, newest first, with their analysis
// counts.
func (s *Store) ListFiles(ctx context.Context, userID string) ([]File, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.id, f.user_id, f.filename, f.path, f.sha256, f.size_bytes, f.created_at,
			(SELECT count(*) FROM analyses a WHERE a.file_id = f.id AND a.user_id = f.user_id)
		 FROM files f WHERE f.user_id = ?
		 ORDER BY f.created_at DESC, f.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		var f File
		var created string
		if err := rows.Scan(&f.ID, &f.UserID, &f.Filename, &f.Path, &f.SHA256, &f.SizeBytes, &created, &f.AnalysisCount); err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		f.CreatedAt = parseTime(created)
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteFile removes a file row; its analyses and items cascade.
func (s *Store) DeleteFile(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return expectRow(res, "file", id)
}

// PathInUse reports whether any file row references the blob at path.
func (s *Store) PathInUse(ctx context.Context, path string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM files WHERE path = ?`, path).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("counting blob references: %w", err)
	}
	return n > 0, nil
}

func expectRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return nil
}
