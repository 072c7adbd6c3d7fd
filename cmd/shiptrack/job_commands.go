package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"shiptrack/internal/api"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Create, inspect, and move jobs",
	}
	jobCmd.AddCommand(newJobCreateCommand(ctx))
	jobCmd.AddCommand(newJobListCommand(ctx))
	jobCmd.AddCommand(newJobShowCommand(ctx))
	jobCmd.AddCommand(newJobHistoryCommand(ctx))
	jobCmd.AddCommand(newJobAdvanceCommand(ctx))
	jobCmd.AddCommand(newJobStatusCommand(ctx))
	return jobCmd
}

func newJobCreateCommand(ctx *commandContext) *cobra.Command {
	var data, file string
	cmd := &cobra.Command{
		Use:   "create <job-no>",
		Short: "Open a new job at stage1",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(data, file)
			if err != nil {
				return err
			}
			c, err := ctx.apiClient(true)
			if err != nil {
				return err
			}
			detail, err := c.CreateJob(cmd.Context(), args[0], payload)
			if err != nil {
				return err
			}
			return ctx.printDetail(cmd, detail, fmt.Sprintf("Created job %s (#%d)", detail.JobNo, detail.ID))
		},
	}
	addPayloadFlags(cmd, &data, &file)
	return cmd
}

func newJobListCommand(ctx *commandContext) *cobra.Command {
	var stageFilter, statusFilter string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.apiClient(true)
			if err != nil {
				return err
			}
			list, err := c.ListJobs(cmd.Context(), stageFilter, statusFilter, limit)
			if err != nil {
				return err
			}
			if ctx.jsonMode() {
				return writeJSON(cmd, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderJobTable(list))
			return nil
		},
	}
	cmd.Flags().StringVar(&stageFilter, "stage", "", "Only jobs at this stage")
	cmd.Flags().StringVar(&statusFilter, "status", "", "Only jobs with this status")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of jobs to show")
	return cmd
}

func newJobShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a job with all stage records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			c, err := ctx.apiClient(true)
			if err != nil {
				return err
			}
			detail, err := c.Job(cmd.Context(), id)
			if err != nil {
				return err
			}
			return ctx.printDetail(cmd, detail, "")
		},
	}
}

func newJobHistoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show the stage history of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			c, err := ctx.apiClient(true)
			if err != nil {
				return err
			}
			history, err := c.History(cmd.Context(), id)
			if err != nil {
				return err
			}
			if ctx.jsonMode() {
				return writeJSON(cmd, history)
			}
			if len(history) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No stage changes recorded")
				return nil
			}
			rows := make([][]string, 0, len(history))
			for _, entry := range history {
				rows = append(rows, []string{
					shortTime(entry.CreatedAt),
					entry.PreviousStage,
					entry.NewStage,
					strconv.FormatInt(entry.UserID, 10),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{textCol("When"), textCol("From"), textCol("To"), numCol("User")}, rows))
			return nil
		},
	}
}

func newJobAdvanceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "advance <id> <target-stage>",
		Short: "Move a job to the next stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			c, err := ctx.apiClient(true)
			if err != nil {
				return err
			}
			detail, err := c.Advance(cmd.Context(), id, strings.TrimSpace(args[1]))
			if err != nil {
				return err
			}
			return ctx.printDetail(cmd, detail, fmt.Sprintf("Job %s is now at %s", detail.JobNo, detail.CurrentStageLabel))
		},
	}
}

func newJobStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <id> <active|on_hold|cancelled>",
		Short: "Change the administrative status of a job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			c, err := ctx.apiClient(true)
			if err != nil {
				return err
			}
			detail, err := c.SetStatus(cmd.Context(), id, strings.TrimSpace(args[1]))
			if err != nil {
				return err
			}
			return ctx.printDetail(cmd, detail, fmt.Sprintf("Job %s status is %s", detail.JobNo, displayLabel(detail.Status)))
		},
	}
}

func (c *commandContext) printDetail(cmd *cobra.Command, detail *api.JobDetail, headline string) error {
	if c.jsonMode() {
		return writeJSON(cmd, detail)
	}
	out := cmd.OutOrStdout()
	if headline != "" {
		fmt.Fprintln(out, headline)
	}
	fmt.Fprintln(out, renderJobTable([]api.Job{detail.Job}))
	for _, rec := range detail.Records {
		fmt.Fprintf(out, "\n%s (%s), updated %s by user %d\n", rec.Label, rec.Stage, shortTime(rec.UpdatedAt), rec.UpdatedBy)
		fmt.Fprintln(out, renderRecordFields(rec.Data))
	}
	return nil
}

func renderJobTable(list []api.Job) string {
	rows := make([][]string, 0, len(list))
	for _, job := range list {
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			job.JobNo,
			job.CurrentStageLabel,
			displayLabel(job.Status),
			shortTime(job.UpdatedAt),
		})
	}
	return renderTable([]column{numCol("ID"), textCol("Job No"), textCol("Stage"), textCol("Status"), textCol("Updated")}, rows)
}

func renderRecordFields(data json.RawMessage) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || len(fields) == 0 {
		return "  (no data)"
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		value := strings.Trim(string(fields[key]), `"`)
		rows = append(rows, []string{displayLabel(key), value})
	}
	return renderTable([]column{textCol("Field"), textCol("Value")}, rows)
}

func addPayloadFlags(cmd *cobra.Command, data, file *string) {
	cmd.Flags().StringVarP(data, "data", "d", "", "Stage payload as inline JSON")
	cmd.Flags().StringVarP(file, "file", "f", "", "Read the stage payload from a JSON file (- for stdin)")
}

func readPayload(data, file string) (json.RawMessage, error) {
	data = strings.TrimSpace(data)
	file = strings.TrimSpace(file)
	switch {
	case data != "" && file != "":
		return nil, fmt.Errorf("use either --data or --file, not both")
	case data != "":
		return json.RawMessage(data), nil
	case file == "-":
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read payload from stdin: %w", err)
		}
		return raw, nil
	case file != "":
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read payload file: %w", err)
		}
		return raw, nil
	}
	return nil, nil
}
