package preflight

import (
	"context"
	"fmt"
	"strings"

	"shiptrack/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Pinger is satisfied by the job store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunAll executes every applicable preflight check for the given config. db
// may be nil when the store has not been opened yet.
func RunAll(ctx context.Context, cfg *config.Config, db Pinger) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if db != nil {
		results = append(results, CheckDatabase(ctx, cfg.Database.Driver, db))
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}
	return results
}

// FirstFailure returns an error describing the first failed required check.
func FirstFailure(results []Result) error {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return fmt.Errorf("preflight %s: %s", strings.ToLower(r.Name), r.Detail)
		}
	}
	return nil
}
