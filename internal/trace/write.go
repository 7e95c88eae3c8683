package trace

import (
	"context"
	"fmt"
	"time"
)

// Session describes one initialized run of the layer.
type Session struct {
	ID        string    `json:"id"`
	Label     string    `json:"label,omitempty"`
	LFConfig  string    `json:"lf_config"`
	Signal    int       `json:"signal"`
	CreatedAt time.Time `json:"created_at"`
}

// WriteSession inserts a session record. Duplicate IDs are silently ignored.
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	created := sess.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, label, lf_config, signal, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.Label,
		sess.LFConfig,
		sess.Signal,
		created.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteEvents inserts events for a session in one transaction and returns
// how many were new. Events already stored under the same seq are ignored, so
// flushing the same buffer twice is harmless.
//
// Note: The session must exist (foreign key constraint).
func (s *Store) WriteEvents(ctx context.Context, sessionID string, events []Event) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write events: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (session_id, seq, kind, subject, detail)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("write events: prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range events {
		res, err := stmt.ExecContext(ctx, sessionID, e.Seq, e.Kind, e.Subject, e.Detail)
		if err != nil {
			return 0, fmt.Errorf("write events: seq %d: %w", e.Seq, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("write events: rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write events: commit: %w", err)
	}
	return inserted, nil
}

// DeleteSession removes a session and its events.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
