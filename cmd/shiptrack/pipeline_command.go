package main

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"
)

func newPipelineCommand(ctx *commandContext) *cobra.Command {
	pipelineCmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Pipeline overview",
	}
	pipelineCmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Show job counts per stage and status",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.apiClient(true)
			if err != nil {
				return err
			}
			summary, err := c.Summary(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonMode() {
				return writeJSON(cmd, summary)
			}

			rows := make([][]string, 0, len(summary.Stages)+1)
			for _, st := range summary.Stages {
				rows = append(rows, []string{st.Label, strconv.Itoa(st.Count)})
			}
			rows = append(rows, []string{"Total", strconv.Itoa(summary.Total)})
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]column{textCol("Stage"), numCol("Jobs")}, rows))

			statuses := make([]string, 0, len(summary.Statuses))
			for status := range summary.Statuses {
				statuses = append(statuses, status)
			}
			slices.Sort(statuses)
			rows = rows[:0]
			for _, status := range statuses {
				rows = append(rows, []string{displayLabel(status), strconv.Itoa(summary.Statuses[status])})
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable([]column{textCol("Status"), numCol("Jobs")}, rows))
			return nil
		},
	})
	return pipelineCmd
}
