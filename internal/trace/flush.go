package trace

import (
	"context"
	"fmt"
	"log/slog"
)

// Flush persists the session and everything recorded in b so far.
// Returns the number of newly stored events.
func Flush(ctx context.Context, st *Store, sess Session, b *Buffer) (int, error) {
	if err := st.WriteSession(ctx, sess); err != nil {
		return 0, fmt.Errorf("flush: %w", err)
	}
	n, err := st.WriteEvents(ctx, sess.ID, b.Events())
	if err != nil {
		return 0, fmt.Errorf("flush: %w", err)
	}
	slog.Debug("trace flushed", "session", sess.ID, "events", n)
	return n, nil
}
