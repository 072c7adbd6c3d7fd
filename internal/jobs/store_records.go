package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shiptrack/internal/services"
	"shiptrack/internal/stage"
)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// StageRecord returns the data record for one stage of a job, or nil when the
// stage has not been entered yet.
func (s *Store) StageRecord(ctx context.Context, jobID int64, st stage.Stage) (*StageRecord, error) {
	ctx = ensureContext(ctx)
	rec, err := loadRecord(ctx, s.db, jobID, st)
	if err != nil {
		return nil, persistenceError("get stage record", err)
	}
	return rec, nil
}

// StageRecords returns every data record stored for a job in stage order.
func (s *Store) StageRecords(ctx context.Context, jobID int64) ([]*StageRecord, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM stage_records WHERE job_id = ? ORDER BY stage`, jobID)
	if err != nil {
		return nil, persistenceError("list stage records", err)
	}
	var records []*StageRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return nil, persistenceError("list stage records", err)
		}
		records = append(records, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, persistenceError("list stage records", err)
	}
	// Containers are loaded after the record cursor closes so a single
	// connection pool never holds two open result sets.
	for _, rec := range records {
		if err := attachContainers(ctx, s.db, rec); err != nil {
			return nil, persistenceError("list stage records", err)
		}
	}
	return records, nil
}

// SaveStageRecord inserts or replaces the record for (rec.JobID, rec.Stage).
// created_by and created_at of an existing record are preserved. Stage3
// containers are replaced in the same transaction.
func (s *Store) SaveStageRecord(ctx context.Context, rec *StageRecord) error {
	if rec == nil || rec.Data == nil {
		return errors.New("save stage record: record is nil")
	}
	ctx = ensureContext(ctx)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		// Touch the job row first: the write lock it takes keeps a concurrent
		// completion from landing between this check and the record write.
		if _, err := tx.ExecContext(ctx, `UPDATE jobs SET updated_at = ? WHERE id = ?`,
			formatTime(time.Now().UTC()), rec.JobID); err != nil {
			return err
		}
		var current string
		err := tx.QueryRowContext(ctx, `SELECT current_stage FROM jobs WHERE id = ?`, rec.JobID).Scan(&current)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return errJobMissing
		case err != nil:
			return err
		case stage.Stage(current) == stage.Completed:
			return errJobCompleted
		}
		return saveRecordTx(ctx, tx, rec)
	})
	switch {
	case errors.Is(err, errJobMissing):
		return notFoundError("save stage record", fmt.Sprintf("job %d", rec.JobID))
	case errors.Is(err, errJobCompleted):
		return services.Wrap(services.ErrInvalidTransition, "jobs", "save stage record",
			fmt.Sprintf("job %d is completed", rec.JobID), nil)
	}
	if err != nil {
		return persistenceError("save stage record", err)
	}
	return nil
}

var (
	errJobMissing   = errors.New("job missing")
	errJobCompleted = errors.New("job completed")
)

func saveRecordTx(ctx context.Context, tx *sql.Tx, rec *StageRecord) error {
	if rec.Data.Stage() != rec.Stage {
		return fmt.Errorf("record stage %s does not match payload stage %s", rec.Stage, rec.Data.Stage())
	}
	data, err := encodeRecordData(rec.Data)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	now := time.Now().UTC()

	var (
		createdBy  int64
		createdRaw string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT created_by, created_at FROM stage_records WHERE job_id = ? AND stage = ?`,
		rec.JobID, rec.Stage,
	).Scan(&createdBy, &createdRaw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if rec.CreatedBy == 0 {
			rec.CreatedBy = rec.UpdatedBy
		}
		rec.CreatedAt = now
		rec.UpdatedAt = now
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stage_records (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.JobID, rec.Stage, data, rec.CreatedBy, rec.UpdatedBy, formatTime(now), formatTime(now),
		); err != nil {
			return fmt.Errorf("insert stage record: %w", err)
		}
	case err != nil:
		return fmt.Errorf("load stage record: %w", err)
	default:
		rec.CreatedBy = createdBy
		if created, perr := parseTimeString(createdRaw); perr == nil {
			rec.CreatedAt = created
		}
		rec.UpdatedAt = now
		if _, err := tx.ExecContext(ctx,
			`UPDATE stage_records SET data = ?, updated_by = ?, updated_at = ? WHERE job_id = ? AND stage = ?`,
			data, rec.UpdatedBy, formatTime(now), rec.JobID, rec.Stage,
		); err != nil {
			return fmt.Errorf("update stage record: %w", err)
		}
	}

	if s3, ok := rec.Data.(*Stage3Data); ok {
		if err := replaceContainers(ctx, tx, rec.JobID, s3.Containers); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE jobs SET updated_at = ? WHERE id = ?`, formatTime(now), rec.JobID); err != nil {
		return fmt.Errorf("touch job: %w", err)
	}
	return nil
}

func replaceContainers(ctx context.Context, tx *sql.Tx, jobID int64, containers []Container) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM stage_containers WHERE job_id = ? AND stage = ?`, jobID, stage.Stage3); err != nil {
		return fmt.Errorf("clear containers: %w", err)
	}
	for i, c := range containers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stage_containers (job_id, stage, position, container_no, size, vehicle_no, offload_date, return_date)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			jobID, stage.Stage3, i, c.ContainerNo,
			nullableString(c.Size), nullableString(c.VehicleNo), nullableString(c.OffloadDate), nullableString(c.ReturnDate),
		); err != nil {
			return fmt.Errorf("insert container %q: %w", c.ContainerNo, err)
		}
	}
	return nil
}

func loadRecord(ctx context.Context, q queryer, jobID int64, st stage.Stage) (*StageRecord, error) {
	row := q.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM stage_records WHERE job_id = ? AND stage = ?`, jobID, st)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := attachContainers(ctx, q, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func attachContainers(ctx context.Context, q queryer, rec *StageRecord) error {
	s3, ok := rec.Data.(*Stage3Data)
	if !ok {
		return nil
	}
	rows, err := q.QueryContext(ctx,
		`SELECT container_no, size, vehicle_no, offload_date, return_date
         FROM stage_containers WHERE job_id = ? AND stage = ? ORDER BY position`,
		rec.JobID, stage.Stage3,
	)
	if err != nil {
		return fmt.Errorf("load containers: %w", err)
	}
	defer rows.Close()

	s3.Containers = nil
	for rows.Next() {
		var (
			c                             Container
			size, vehicle, offload, retrn sql.NullString
		)
		if err := rows.Scan(&c.ContainerNo, &size, &vehicle, &offload, &retrn); err != nil {
			return fmt.Errorf("scan container: %w", err)
		}
		c.Size = stringPtr(size.String, size.Valid)
		c.VehicleNo = stringPtr(vehicle.String, vehicle.Valid)
		c.OffloadDate = stringPtr(offload.String, offload.Valid)
		c.ReturnDate = stringPtr(retrn.String, retrn.Valid)
		s3.Containers = append(s3.Containers, c)
	}
	return rows.Err()
}
