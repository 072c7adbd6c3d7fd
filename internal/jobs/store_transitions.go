package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shiptrack/internal/services"
)

var errStageMoved = errors.New("stage moved")

// Transition moves a job from t.From to t.To, appends a history entry, and
// optionally writes t.Record and t.Status, all in one transaction. The update
// is conditional on the job still being at t.From; losing that race yields a
// conflict and nothing is written.
func (s *Store) Transition(ctx context.Context, t Transition) (*Job, error) {
	if !t.To.IsSuccessorOf(t.From) {
		return nil, services.Wrap(services.ErrInvalidTransition, "jobs", "transition",
			fmt.Sprintf("%s is not the successor of %s", t.To, t.From), nil)
	}
	ctx = ensureContext(ctx)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(time.Now())
		query := `UPDATE jobs SET current_stage = ?, updated_at = ?`
		args := []any{t.To, now}
		if t.Status != "" {
			query += `, status = ?`
			args = append(args, t.Status)
		}
		query += ` WHERE id = ? AND current_stage = ?`
		args = append(args, t.JobID, t.From)

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update stage: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			var exists int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM jobs WHERE id = ?`, t.JobID).Scan(&exists); err != nil {
				return err
			}
			if exists == 0 {
				return errJobMissing
			}
			return errStageMoved
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stage_history (job_id, previous_stage, new_stage, user_id, created_at) VALUES (?, ?, ?, ?, ?)`,
			t.JobID, t.From, t.To, t.UserID, now,
		); err != nil {
			return fmt.Errorf("append history: %w", err)
		}

		if t.Record != nil {
			if t.Record.JobID != t.JobID {
				return fmt.Errorf("record belongs to job %d, not %d", t.Record.JobID, t.JobID)
			}
			if err := saveRecordTx(ctx, tx, t.Record); err != nil {
				return err
			}
		}
		return nil
	})
	switch {
	case errors.Is(err, errJobMissing):
		return nil, notFoundError("transition", fmt.Sprintf("job %d", t.JobID))
	case errors.Is(err, errStageMoved):
		return nil, conflictError("transition", fmt.Sprintf("job %d is no longer at %s", t.JobID, t.From))
	case err != nil:
		return nil, persistenceError("transition", err)
	}
	return s.GetJob(ctx, t.JobID)
}

// History returns the stage advances recorded for a job, oldest first.
func (s *Store) History(ctx context.Context, jobID int64) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+historyColumns+` FROM stage_history WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, persistenceError("history", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, persistenceError("history", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("history", err)
	}
	return entries, nil
}
