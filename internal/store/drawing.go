package store

import (
	"database/sql"
	"errors"
	"time"
)

// DrawingKey is the well-known key under which the drawing is stored.
const DrawingKey = "easelDrawing"

// Drawing is an encoded raster image stored under a key.
type Drawing struct {
	Key       string
	Data      []byte
	SessionID string
	UpdatedAt time.Time
}

// DrawingRepository reads and writes encoded drawings.
type DrawingRepository struct {
	db *sql.DB
}

// Drawings returns the drawing repository for this store.
func (s *Store) Drawings() *DrawingRepository {
	return &DrawingRepository{db: s.db}
}

// Get retrieves the drawing stored under key.
// Returns ErrNotFound if the key is absent.
func (r *DrawingRepository) Get(key string) (*Drawing, error) {
	d := &Drawing{}

	err := r.db.QueryRow(
		`SELECT key, data, session_id, updated_at FROM drawings WHERE key = ?`,
		key,
	).Scan(&d.Key, &d.Data, &d.SessionID, &d.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return d, nil
}

// Put stores d, replacing any previous value under the same key.
// The write is a single statement, so readers see either the old or the new blob.
func (r *DrawingRepository) Put(d *Drawing) error {
	d.UpdatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO drawings (key, data, session_id, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			session_id = excluded.session_id,
			updated_at = excluded.updated_at`,
		d.Key, d.Data, d.SessionID, d.UpdatedAt,
	)
	return err
}

// Delete removes the drawing under key. Deleting an absent key is not an error.
func (r *DrawingRepository) Delete(key string) error {
	_, err := r.db.Exec(`DELETE FROM drawings WHERE key = ?`, key)
	return err
}

// Exists reports whether a drawing is stored under key.
func (r *DrawingRepository) Exists(key string) (bool, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM drawings WHERE key = ?`, key).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
