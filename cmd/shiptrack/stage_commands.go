package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"shiptrack/internal/stage"
)

func newStageCommand(ctx *commandContext) *cobra.Command {
	stageCmd := &cobra.Command{
		Use:   "stage",
		Short: "Submit stage data for a job",
	}
	stageCmd.AddCommand(newStageSubmitCommand(ctx))
	return stageCmd
}

func newStageSubmitCommand(ctx *commandContext) *cobra.Command {
	var data, file string
	cmd := &cobra.Command{
		Use:   "submit <id> <stage1|stage2|stage3|stage4>",
		Short: "Create or update the data recorded for a stage",
		Long: "Create or update the data recorded for a stage.\n\n" +
			"Fields omitted from the payload keep their stored values. A stage4\n" +
			"payload carrying acknowledge_date completes the job when it sits at stage4.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			st, ok := stage.Parse(args[1])
			if !ok || !st.HasData() {
				return fmt.Errorf("unknown stage %q", args[1])
			}
			payload, err := readPayload(data, file)
			if err != nil {
				return err
			}
			if len(payload) == 0 {
				return errors.New("a payload is required: pass --data or --file")
			}
			c, err := ctx.apiClient(true)
			if err != nil {
				return err
			}
			detail, err := c.SubmitStage(cmd.Context(), id, string(st), payload)
			if err != nil {
				return err
			}
			return ctx.printDetail(cmd, detail, fmt.Sprintf("Saved %s for job %s", st.Label(), detail.JobNo))
		},
	}
	addPayloadFlags(cmd, &data, &file)
	return cmd
}
