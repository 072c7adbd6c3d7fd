package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shiptrack/internal/api"
	"shiptrack/internal/client"
	"shiptrack/internal/preflight"
	"shiptrack/internal/serverrun"
)

type statusReport struct {
	Checks []checkReport     `json:"checks"`
	Server *api.ServerStatus `json:"server,omitempty"`
	Error  string            `json:"serverError,omitempty"`
	PID    int               `json:"pidFile,omitempty"`
}

type checkReport struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Optional bool   `json:"optional"`
	Detail   string `json:"detail"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server, database, and preflight status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := statusReport{PID: serverrun.ReadPID(cfg)}
			for _, r := range preflight.RunAll(cmd.Context(), cfg, nil) {
				report.Checks = append(report.Checks, checkReport{Name: r.Name, Passed: r.Passed, Optional: r.Optional, Detail: r.Detail})
			}

			c, err := ctx.apiClient(false)
			if err != nil {
				return err
			}
			status, err := c.Status(cmd.Context())
			if err != nil {
				report.Error = err.Error()
			} else {
				report.Server = status
			}

			if ctx.jsonMode() {
				return writeJSON(cmd, report)
			}
			renderStatus(cmd, report, err)
			return nil
		},
	}
}

func renderStatus(cmd *cobra.Command, report statusReport, serverErr error) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	lines := renderSectionHeader("Server", colorize)
	switch {
	case report.Server != nil:
		detail := fmt.Sprintf("pid %d, up %s", report.Server.PID, report.Server.Uptime)
		lines = append(lines, renderStatusLine("API", statusOK, detail, colorize))
		db := report.Server.Database
		kind := statusOK
		if !db.DatabaseReadable || !db.IntegrityCheck {
			kind = statusError
		}
		lines = append(lines,
			renderStatusLine("Database", kind, fmt.Sprintf("%s schema v%d", db.Driver, db.SchemaVersion), colorize),
			renderStatusLine("Jobs", statusInfo, fmt.Sprintf("%d total, %d users", db.TotalJobs, db.TotalUsers), colorize),
		)
	case errors.Is(serverErr, client.ErrServerUnavailable) && report.PID > 0:
		lines = append(lines, renderStatusLine("API", statusError, fmt.Sprintf("pid file names %d but nothing answers", report.PID), colorize))
	case errors.Is(serverErr, client.ErrServerUnavailable):
		lines = append(lines, renderStatusLine("API", statusWarn, "not running (start with `shiptrack serve`)", colorize))
	default:
		lines = append(lines, renderStatusLine("API", statusError, report.Error, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Preflight", colorize)...)
	for _, check := range report.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
			if check.Optional {
				kind = statusWarn
			}
		}
		lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}

	if report.Server != nil {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Pipeline", colorize)...)
		for _, st := range report.Server.Summary.Stages {
			lines = append(lines, renderStatusLine(st.Label, statusInfo, fmt.Sprintf("%d", st.Count), colorize))
		}
	}
	fmt.Fprintln(out, strings.Join(lines, "\n"))
}
