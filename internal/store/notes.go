package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Note is one raw activity note. Notes are immutable once created except for
// soft deletion, which keeps historical recomputation reproducible.
type Note struct {
	ID             string
	UserID         string
	Text           string
	InputTimestamp time.Time
	BusinessDate   string
	IsDeleted      bool
	CreatedAt      time.Time
}

// AddNote inserts the note, assigning an ID when empty, and bumps the
// revision for its (user, business date) so cached analysis can be fenced.
func (db *DB) AddNote(n *Note) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	_, err := db.Exec(
		`INSERT INTO notes (id, user_id, text, input_timestamp, business_date, is_deleted)
		 VALUES (?, ?, ?, ?, ?, 0)`,
		n.ID, n.UserID, n.Text,
		n.InputTimestamp.UTC().Format(time.RFC3339),
		n.BusinessDate,
	)
	if err != nil {
		return fmt.Errorf("inserting note: %w", err)
	}
	if err := db.bumpRevision(n.UserID, n.BusinessDate); err != nil {
		return err
	}
	return nil
}

// ListNotes returns the user's non-deleted notes for a business date in
// input-timestamp order, ID as a stable tiebreak.
func (db *DB) ListNotes(userID, businessDate string) ([]Note, error) {
	return db.queryNotes(
		`SELECT id, user_id, text, input_timestamp, business_date, is_deleted, created_at
		 FROM notes
		 WHERE user_id = ? AND business_date = ? AND is_deleted = 0
		 ORDER BY input_timestamp ASC, id ASC`,
		userID, businessDate,
	)
}

// DeleteNote soft-deletes a note and returns it; the row is never physically
// removed.
func (db *DB) DeleteNote(id string) (*Note, error) {
	var n Note
	err := db.QueryRow("SELECT id, user_id, business_date FROM notes WHERE id = ?", id).
		Scan(&n.ID, &n.UserID, &n.BusinessDate)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("note %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up note: %w", err)
	}

	if _, err := db.Exec("UPDATE notes SET is_deleted = 1 WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("deleting note: %w", err)
	}
	n.IsDeleted = true
	return &n, db.bumpRevision(n.UserID, n.BusinessDate)
}

// Revision returns the monotonic note-set version for a (user, business date).
// It increments on every add and delete, never decrements.
func (db *DB) Revision(userID, businessDate string) (int64, error) {
	val, err := db.GetState(revisionKey(userID, businessDate))
	if err != nil {
		return 0, fmt.Errorf("reading revision: %w", err)
	}
	if val == "" {
		return 0, nil
	}
	var rev int64
	if _, err := fmt.Sscanf(val, "%d", &rev); err != nil {
		return 0, fmt.Errorf("parsing revision %q: %w", val, err)
	}
	return rev, nil
}

func (db *DB) bumpRevision(userID, businessDate string) error {
	rev, err := db.Revision(userID, businessDate)
	if err != nil {
		return err
	}
	if err := db.SetState(revisionKey(userID, businessDate), fmt.Sprintf("%d", rev+1)); err != nil {
		return fmt.Errorf("bumping revision: %w", err)
	}
	return nil
}

func revisionKey(userID, businessDate string) string {
	return "rev:" + userID + ":" + businessDate
}

func (db *DB) queryNotes(query string, args ...interface{}) ([]Note, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		var deleted int
		var tsStr, createdStr string

		if err := rows.Scan(
			&n.ID, &n.UserID, &n.Text, &tsStr, &n.BusinessDate, &deleted, &createdStr,
		); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}

		n.IsDeleted = deleted != 0
		if t, err := time.Parse(time.RFC3339, tsStr); err == nil {
			n.InputTimestamp = t
		}
		if t, err := time.Parse(time.RFC3339, createdStr); err == nil {
			n.CreatedAt = t
		}

		notes = append(notes, n)
	}

	return notes, rows.Err()
}
