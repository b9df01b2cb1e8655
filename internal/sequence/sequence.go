// Package sequence provides monotonic per-session message numbering.
// The only correct implementation is a
// single row-locked statement executed inside the same transaction as the
// message insert it numbers, so this package is a thin SQL helper rather
// than stateful Go — generalized from the teacher's direct *sql.Tx usage
// in internal/repository/postgres (now adapted into
// internal/repository/postgres/messages.go).
package sequence

import (
	"context"
	"database/sql"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
)

// Next returns the next sequence number for sessionID, atomically
// incrementing sessions.next_sequence under the row lock the UPDATE
// statement takes. Callers must run this inside the same transaction that
// inserts the message carrying the returned number, so a rollback undoes
// both together: this allocation and the message insert occur in the
// same transaction.
func Next(ctx context.Context, tx *sql.Tx, sessionID string) (int, error) {
	var next int
	row := tx.QueryRowContext(ctx, `
		UPDATE sessions
		SET next_sequence = next_sequence + 1
		WHERE id = $1
		RETURNING next_sequence - 1
	`, sessionID)
	if err := row.Scan(&next); err != nil {
		if err == sql.ErrNoRows {
			return 0, apperrors.NotFound("session " + sessionID + " not found")
		}
		return 0, apperrors.Internal("allocating next sequence number", err)
	}
	return next, nil
}
