package store

import (
	"context"
	"fmt"
	"time"

	"github.com/erazemk/nalog/internal/model"
)

// AppendHistory appends a status change to a record's history and returns the
// stored entry. Sequence numbers are assigned in commit order.
func AppendHistory(ctx context.Context, db DBTX, recordID int64, from, to model.Status, actorID int64, at time.Time) (*model.HistoryEntry, error) {
	var seq int
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM record_history WHERE record_id = ?`, recordID,
	).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("computing history sequence: %w", err)
	}

	at = at.UTC()
	_, err = db.ExecContext(ctx,
		`INSERT INTO record_history (record_id, seq, from_status, to_status, actor_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		recordID, seq, from, to, actorID, at,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrVersionConflict
		}
		return nil, fmt.Errorf("appending history: %w", err)
	}

	return &model.HistoryEntry{Seq: seq, FromStatus: from, ToStatus: to, ActorID: actorID, Timestamp: at}, nil
}

// ListHistory returns a record's status history in commit order.
func ListHistory(ctx context.Context, db DBTX, recordID int64) ([]model.HistoryEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT seq, from_status, to_status, actor_id, created_at
		 FROM record_history WHERE record_id = ? ORDER BY seq`, recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var out []model.HistoryEntry
	for rows.Next() {
		var h model.HistoryEntry
		if err := rows.Scan(&h.Seq, &h.FromStatus, &h.ToStatus, &h.ActorID, &h.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
