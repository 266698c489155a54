package store

import (
	"context"
)

// Event is one audit record of a write performed through the hashing
// subsystem. Events are appended inside the same transaction as the
// writes they describe, so a rolled-back insert leaves no event behind.
type Event struct {
	Seq      int64
	Token    string // UUIDv7 insert token shared by all writes of one call
	Op       string // "insert", "insert_to_master"
	Table    string // storage name of the target relation
	Digest   string // truncated digest, "" for non-hashing writes
	RowCount int
}

// WriteEvent appends one event row.
func WriteEvent(ctx context.Context, ex Execer, ev Event) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO rowhash_events (token, op, table_name, digest, row_count)
		VALUES (?, ?, ?, ?, ?)
	`, ev.Token, ev.Op, ev.Table, ev.Digest, ev.RowCount)
	if err != nil {
		return &Error{Op: "write event", Table: "rowhash_events", Err: err}
	}
	return nil
}

// ReadEvents returns the full event log in append order.
func (s *Store) ReadEvents(ctx context.Context) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, token, op, table_name, digest, row_count
		FROM rowhash_events
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, &Error{Op: "read events", Table: "rowhash_events", Err: err}
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.Seq, &ev.Token, &ev.Op, &ev.Table, &ev.Digest, &ev.RowCount); err != nil {
			return nil, &Error{Op: "read events", Table: "rowhash_events", Err: err}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "read events", Table: "rowhash_events", Err: err}
	}
	return out, nil
}
