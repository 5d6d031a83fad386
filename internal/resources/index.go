// Package resources maintains the study-material index: folders and files
// keyed by class, subject, resource type and optional topic, refreshed from
// an external file store.
package resources

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vidyalinkco/studybot/internal/store"
)

type Folder struct {
	Path         string
	FolderID     string
	URL          string
	Class        int
	Subject      string
	ResourceType string
	Topic        string
}

type File struct {
	ID           string
	Title        string
	URL          string
	Class        int
	Subject      string
	ResourceType string
	Topic        string
}

type TypeCount struct {
	Subject      string
	ResourceType string
	Count        int
}

type Index struct {
	db *sql.DB
}

func NewIndex(s *store.Store) *Index {
	return &Index{db: s.DB()}
}

// FindFolder returns the folder matching the query, preferring a
// topic-scoped folder when topic is set. Nil without error when absent.
func (ix *Index) FindFolder(ctx context.Context, class int, subject, resourceType, topic string) (*Folder, error) {
	if topic != "" {
		f, err := ix.findFolderExact(ctx, class, subject, resourceType, topic)
		if err != nil || f != nil {
			return f, err
		}
		// No topic folder; the caller falls back to file listing.
		return nil, nil
	}
	return ix.findFolderExact(ctx, class, subject, resourceType, "")
}

func (ix *Index) findFolderExact(ctx context.Context, class int, subject, resourceType, topic string) (*Folder, error) {
	var f Folder
	err := ix.db.QueryRowContext(ctx, `
		SELECT path, folder_id, url, class, subject, resource_type, topic
		FROM resource_folders
		WHERE class = ? AND subject = ? AND resource_type = ? AND topic = ?
	`, class, subject, resourceType, topic).Scan(
		&f.Path, &f.FolderID, &f.URL, &f.Class, &f.Subject, &f.ResourceType, &f.Topic)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find folder: %w", err)
	}
	return &f, nil
}

// FindFiles lists files matching the query, topic-scoped when topic is set.
func (ix *Index) FindFiles(ctx context.Context, class int, subject, resourceType, topic string) ([]File, error) {
	q := `
		SELECT id, title, url, class, subject, resource_type, topic
		FROM resource_files
		WHERE class = ? AND subject = ? AND resource_type = ?
	`
	args := []any{class, subject, resourceType}
	if topic != "" {
		q += ` AND topic = ?`
		args = append(args, topic)
	}
	q += ` ORDER BY title ASC`

	rows, err := ix.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("find files: %w", err)
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.Title, &f.URL, &f.Class, &f.Subject, &f.ResourceType, &f.Topic); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return out, nil
}

// Counts aggregates available material for one class by subject and type.
func (ix *Index) Counts(ctx context.Context, class int) ([]TypeCount, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT subject, resource_type, COUNT(1)
		FROM resource_files
		WHERE class = ?
		GROUP BY subject, resource_type
		ORDER BY subject ASC, resource_type ASC
	`, class)
	if err != nil {
		return nil, fmt.Errorf("count resources: %w", err)
	}
	defer rows.Close()

	var out []TypeCount
	for rows.Next() {
		var tc TypeCount
		if err := rows.Scan(&tc.Subject, &tc.ResourceType, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out = append(out, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return out, nil
}

// Replace swaps the whole index in one transaction so readers never see a
// half-synced state.
func (ix *Index) Replace(ctx context.Context, folders []Folder, files []File) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM resource_folders`); err != nil {
		return fmt.Errorf("clear folders: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM resource_files`); err != nil {
		return fmt.Errorf("clear files: %w", err)
	}

	for _, f := range folders {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO resource_folders (path, folder_id, url, class, subject, resource_type, topic)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, f.Path, f.FolderID, f.URL, f.Class, f.Subject, f.ResourceType, f.Topic); err != nil {
			return fmt.Errorf("insert folder %q: %w", f.Path, err)
		}
	}
	for _, f := range files {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO resource_files (id, title, url, class, subject, resource_type, topic)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, f.ID, f.Title, f.URL, f.Class, f.Subject, f.ResourceType, f.Topic); err != nil {
			return fmt.Errorf("insert file %q: %w", f.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}
