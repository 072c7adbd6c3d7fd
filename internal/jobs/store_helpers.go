package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"shiptrack/internal/services"
	"shiptrack/internal/stage"
)

const (
	jobColumns     = "id, job_no, current_stage, status, created_by, created_at, updated_at"
	recordColumns  = "job_id, stage, data, created_by, updated_by, created_at, updated_at"
	historyColumns = "id, job_id, previous_stage, new_stage, user_id, created_at"
	userColumns    = "id, name, email, role, is_admin, created_at"

	sqliteConstraintUnique = 2067
	mysqlDuplicateEntry    = 1062
)

type rowScanner interface{ Scan(dest ...any) error }

func scanJob(scanner rowScanner) (*Job, error) {
	var (
		job                    Job
		stageStr, statusStr    string
		createdRaw, updatedRaw string
	)
	if err := scanner.Scan(&job.ID, &job.JobNo, &stageStr, &statusStr, &job.CreatedBy, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	job.CurrentStage = stage.Stage(stageStr)
	job.Status = Status(statusStr)
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return &job, nil
}

func scanRecord(scanner rowScanner) (*StageRecord, error) {
	var (
		rec                    StageRecord
		stageStr, data         string
		createdRaw, updatedRaw string
	)
	if err := scanner.Scan(&rec.JobID, &stageStr, &data, &rec.CreatedBy, &rec.UpdatedBy, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	rec.Stage = stage.Stage(stageStr)
	payload, err := NewPayload(rec.Stage)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), payload); err != nil {
		return nil, fmt.Errorf("decode %s record for job %d: %w", rec.Stage, rec.JobID, err)
	}
	rec.Data = payload
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		rec.UpdatedAt = updated
	}
	return &rec, nil
}

func scanHistory(scanner rowScanner) (HistoryEntry, error) {
	var (
		entry          HistoryEntry
		previous, next string
		createdRaw     string
	)
	if err := scanner.Scan(&entry.ID, &entry.JobID, &previous, &next, &entry.UserID, &createdRaw); err != nil {
		return HistoryEntry{}, err
	}
	entry.PreviousStage = stage.Stage(previous)
	entry.NewStage = stage.Stage(next)
	if created, err := parseTimeString(createdRaw); err == nil {
		entry.CreatedAt = created
	}
	return entry, nil
}

// encodeRecordData serializes a payload for the data column. Stage3 containers
// live in their own table and are left out of the JSON.
func encodeRecordData(payload Payload) (string, error) {
	if payload == nil {
		return "{}", nil
	}
	if s3, ok := payload.(*Stage3Data); ok {
		clone := *s3
		clone.Containers = nil
		payload = &clone
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// nullableString maps only an absent field to NULL; "" is a supplied value.
func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func stringPtr(value string, valid bool) *string {
	if !valid {
		return nil
	}
	v := value
	return &v
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteConstraintUnique {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func persistenceError(operation string, err error) error {
	return services.Wrap(services.ErrPersistence, "jobs", operation, "", err)
}

func conflictError(operation, message string) error {
	return services.Wrap(services.ErrConflict, "jobs", operation, message, nil)
}

func notFoundError(operation, message string) error {
	return services.Wrap(services.ErrNotFound, "jobs", operation, message, nil)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
