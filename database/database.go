package database

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// InitDatabase initializes and returns a database connection
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Create table if it doesn't exist
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS reference_images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		fetched_at TEXT,
		image BLOB NOT NULL,
		UNIQUE(lat, lng)
	);
	CREATE INDEX IF NOT EXISTS idx_coordinate ON reference_images(lat, lng);`

	_, err = db.Exec(createTableSQL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot create schema: %v", err)
	}

	return db, nil
}

// ReferenceCache stores fetched reference imagery keyed by coordinate.
// Rows are written whole, so concurrent readers never observe torn entries.
type ReferenceCache struct {
	db *sql.DB
}

// NewReferenceCache creates a cache over an initialized database
func NewReferenceCache(db *sql.DB) *ReferenceCache {
	return &ReferenceCache{db: db}
}

// roundCoordinate normalizes a coordinate to six decimal places so lookups
// are stable across float formatting differences
func roundCoordinate(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// Get returns the cached image for a coordinate, if any
func (c *ReferenceCache) Get(lat, lng float64) ([]byte, bool, error) {
	var image []byte
	err := c.db.QueryRow(
		"SELECT image FROM reference_images WHERE lat = ? AND lng = ?",
		roundCoordinate(lat), roundCoordinate(lng),
	).Scan(&image)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup failed for %.6f,%.6f: %v", lat, lng, err)
	}

	return image, true, nil
}

// Put stores the image for a coordinate, replacing any previous entry
func (c *ReferenceCache) Put(lat, lng float64, image []byte) error {
	now := time.Now().Format(time.RFC3339)

	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO reference_images (lat, lng, fetched_at, image) VALUES (?, ?, ?, ?)",
		roundCoordinate(lat), roundCoordinate(lng), now, image,
	)
	if err != nil {
		return fmt.Errorf("cannot store reference image for %.6f,%.6f: %v", lat, lng, err)
	}

	return nil
}
