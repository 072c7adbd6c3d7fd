package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shiptrack/internal/stage"
)

// StageCounts returns the number of jobs at each stage. Every known stage is
// present in the result, including those with zero jobs.
func (s *Store) StageCounts(ctx context.Context) (map[stage.Stage]int, error) {
	stages := stage.All()
	args := make([]any, 0, len(stages))
	counts := make(map[stage.Stage]int, len(stages))
	for _, st := range stages {
		args = append(args, st)
		counts[st] = 0
	}

	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT current_stage, COUNT(1) FROM jobs WHERE current_stage IN (`+makePlaceholders(len(args))+`) GROUP BY current_stage`,
		args...,
	)
	if err != nil {
		return nil, persistenceError("stage counts", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			st    string
			count int
		)
		if err := rows.Scan(&st, &count); err != nil {
			return nil, persistenceError("stage counts", err)
		}
		counts[stage.Stage(st)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("stage counts", err)
	}
	return counts, nil
}

// StatusCounts returns the number of jobs per status.
func (s *Store) StatusCounts(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, persistenceError("status counts", err)
	}
	defer rows.Close()

	counts := make(map[Status]int, len(allStatuses))
	for _, status := range allStatuses {
		counts[status] = 0
	}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, persistenceError("status counts", err)
		}
		counts[Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("status counts", err)
	}
	return counts, nil
}

// CheckHealth returns diagnostic information about the jobs database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{
		Driver: string(s.dialect),
		DBPath: s.path,
	}
	if s.db == nil {
		return health, fmt.Errorf("jobs database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping jobs database: %w", err)
	}
	health.DatabaseReadable = true

	version, err := s.schemaVersion(connCtx)
	if err != nil {
		health.Error = err.Error()
		return health, err
	}
	health.SchemaVersion = version

	if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM jobs").Scan(&health.TotalJobs); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count jobs: %w", err)
	}
	if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM users").Scan(&health.TotalUsers); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count users: %w", err)
	}

	if s.dialect == dialectSQLite {
		var integrityResult string
		if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrityResult); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("integrity check: %w", err)
		}
		health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")
	} else {
		// MySQL has no cheap equivalent; a successful ping and query stand in.
		health.IntegrityCheck = true
	}
	return health, nil
}
