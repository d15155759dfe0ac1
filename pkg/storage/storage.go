// Package storage persists ledger exports on the local filesystem, one directory per
// statement.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for an unknown statement or file.
var ErrNotFound = errors.New("file not found")

// FileInfo contains metadata about a stored file
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	StatementID uuid.UUID `json:"statement_id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // Internal storage path
	CreatedAt   time.Time `json:"created_at"`
}

// Storage defines the interface for export storage operations
type Storage interface {
	// Upload stores a file for a statement and returns its metadata
	Upload(ctx context.Context, statementID uuid.UUID, filename string, contentType string, r io.Reader) (*FileInfo, error)

	// Download retrieves a file by its ID
	Download(ctx context.Context, statementID uuid.UUID, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error)

	// Delete removes a file by its ID
	Delete(ctx context.Context, statementID uuid.UUID, fileID uuid.UUID) error

	// List returns all files of a statement
	List(ctx context.Context, statementID uuid.UUID) ([]*FileInfo, error)

	// Find returns the newest file of a statement with the given name
	Find(ctx context.Context, statementID uuid.UUID, filename string) (*FileInfo, error)

	// GetInfo returns metadata for a file without downloading
	GetInfo(ctx context.Context, statementID uuid.UUID, fileID uuid.UUID) (*FileInfo, error)

	// Prune deletes every statement whose newest file is older than cutoff
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// Config holds storage configuration
type Config struct {
	LocalPath string
}

// New creates the local storage described by cfg
func New(cfg *Config) (Storage, error) {
	return NewLocalStorage(cfg.LocalPath)
}
