package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"shiptrack/internal/stage"
)

// CreateJob inserts a job at stage1 with status active together with its
// stage1 record. A duplicate job number is reported as a conflict.
func (s *Store) CreateJob(ctx context.Context, jobNo string, createdBy int64, stage1 Payload) (*Job, error) {
	jobNo, err := ValidateJobNo(jobNo)
	if err != nil {
		return nil, err
	}
	if stage1 == nil {
		stage1 = &Stage1Data{}
	}
	if stage1.Stage() != stage.Stage1 {
		return nil, fmt.Errorf("create job: initial record must be stage1, got %s", stage1.Stage())
	}
	data, err := encodeRecordData(stage1)
	if err != nil {
		return nil, persistenceError("create job", err)
	}

	var id int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		timestamp := formatTime(time.Now())
		res, err := tx.ExecContext(ctx,
			`INSERT INTO jobs (job_no, current_stage, status, created_by, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			jobNo, stage.Stage1, StatusActive, createdBy, timestamp, timestamp,
		)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO stage_records (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, stage.Stage1, data, createdBy, createdBy, timestamp, timestamp,
		)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, conflictError("create job", fmt.Sprintf("job number %q already exists", jobNo))
		}
		return nil, persistenceError("create job", err)
	}
	return s.GetJob(ctx, id)
}

// GetJob fetches a job by identifier. It returns nil when the job does not exist.
func (s *Store) GetJob(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistenceError("get job", err)
	}
	return job, nil
}

// GetJobByNumber fetches a job by its human-facing number. It returns nil when absent.
func (s *Store) GetJobByNumber(ctx context.Context, jobNo string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE job_no = ?`, strings.TrimSpace(jobNo))
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistenceError("get job by number", err)
	}
	return job, nil
}

// ListJobs returns jobs matching filter in creation order.
func (s *Store) ListJobs(ctx context.Context, filter ListFilter) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var (
		clauses []string
		args    []any
	)
	if filter.Stage != "" {
		clauses = append(clauses, "current_stage = ?")
		args = append(args, filter.Stage)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, persistenceError("list jobs", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, persistenceError("list jobs", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("list jobs", err)
	}
	return jobs, nil
}

// SetStatus changes the administrative status of a job and returns the updated job.
func (s *Store) SetStatus(ctx context.Context, id int64, status Status) (*Job, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`,
		status, formatTime(time.Now()), id,
	)
	if err != nil {
		return nil, persistenceError("set status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, persistenceError("set status", err)
	}
	if affected == 0 {
		return nil, notFoundError("set status", fmt.Sprintf("job %d", id))
	}
	return s.GetJob(ctx, id)
}
