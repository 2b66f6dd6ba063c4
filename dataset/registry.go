package dataset

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound reports that no dataset matches a lookup.
var ErrNotFound = errors.New("dataset not found")

// Registry is the SQLite-backed dataset catalog.
type Registry struct {
	db     *sql.DB
	logger func(string)
}

// NewRegistry opens (creating if necessary) the catalog at dbPath.
func NewRegistry(dbPath string, logger func(string)) (*Registry, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset catalog: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS datasets (
		id              TEXT PRIMARY KEY,
		package         TEXT NOT NULL,
		filename        TEXT NOT NULL,
		title           TEXT NOT NULL DEFAULT '',
		summary         TEXT NOT NULL DEFAULT '',
		metadata        TEXT NOT NULL,
		normalized_path TEXT NOT NULL,
		created_at      INTEGER NOT NULL,
		UNIQUE(package, filename)
	);
	CREATE INDEX IF NOT EXISTS idx_datasets_package ON datasets(package);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize dataset catalog: %w", err)
	}

	return &Registry{db: db, logger: logger}, nil
}

func (r *Registry) log(msg string) {
	if r.logger != nil {
		r.logger(msg)
	}
}

// Close closes the underlying database.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Register inserts or replaces a dataset record.
func (r *Registry) Register(ds Dataset) error {
	metadata, err := json.Marshal(ds.Columns)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	if ds.CreatedAt == 0 {
		ds.CreatedAt = time.Now().Unix()
	}

	_, err = r.db.Exec(`
		INSERT INTO datasets (id, package, filename, title, summary, metadata, normalized_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(package, filename) DO UPDATE SET
			title = excluded.title,
			summary = excluded.summary,
			metadata = excluded.metadata,
			normalized_path = excluded.normalized_path`,
		ds.ID, ds.Package, ds.Filename, ds.Title, ds.Summary, string(metadata), ds.NormalizedPath, ds.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to register dataset %s/%s: %w", ds.Package, ds.Filename, err)
	}

	r.log(fmt.Sprintf("[REGISTRY] Registered dataset %s/%s (%d columns)", ds.Package, ds.Filename, len(ds.Columns)))
	return nil
}

// Metadata returns the column metadata for a dataset file.
func (r *Registry) Metadata(pkg, filename string) ([]Column, error) {
	var metadata string
	err := r.db.QueryRow(
		`SELECT metadata FROM datasets WHERE package = ? AND filename = ?`,
		pkg, filename).Scan(&metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("metadata not found for package %s and filename %s: %w", pkg, filename, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata for %s/%s: %w", pkg, filename, err)
	}

	var columns []Column
	if err := json.Unmarshal([]byte(metadata), &columns); err != nil {
		return nil, fmt.Errorf("failed to decode metadata for %s/%s: %w", pkg, filename, err)
	}
	return columns, nil
}

// Summary returns the narrative summary for a package. The summary is stored
// per file but is the same for every file of a package; any row will do.
func (r *Registry) Summary(pkg string) (string, error) {
	var summary string
	err := r.db.QueryRow(
		`SELECT summary FROM datasets WHERE package = ? ORDER BY created_at LIMIT 1`,
		pkg).Scan(&summary)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("summary not found for package %s: %w", pkg, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load summary for package %s: %w", pkg, err)
	}
	return summary, nil
}

// NormalizedPath returns the path of the normalized tabular file for a
// dataset, the file generated analysis scripts load.
func (r *Registry) NormalizedPath(pkg, filename string) (string, error) {
	var path string
	err := r.db.QueryRow(
		`SELECT normalized_path FROM datasets WHERE package = ? AND filename = ?`,
		pkg, filename).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("normalized data not found for package %s and filename %s: %w", pkg, filename, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve normalized path for %s/%s: %w", pkg, filename, err)
	}
	return path, nil
}

// List returns all registered datasets, newest first, without column metadata.
func (r *Registry) List() ([]Dataset, error) {
	rows, err := r.db.Query(`
		SELECT id, package, filename, title, summary, normalized_path, created_at
		FROM datasets ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	var datasets []Dataset
	for rows.Next() {
		var ds Dataset
		if err := rows.Scan(&ds.ID, &ds.Package, &ds.Filename, &ds.Title, &ds.Summary, &ds.NormalizedPath, &ds.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dataset row: %w", err)
		}
		datasets = append(datasets, ds)
	}
	return datasets, rows.Err()
}
