package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	submitFields    fieldFlags
	submitFile      string
	submitNoRestore bool
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a suggestion",
	Long: `Submit sends a suggestion to the relay.

Fields not given on the command line are taken from the saved draft.
When the submission fails the form is kept as a draft so it can be retried.

Example:
  suggest submit --category Feature --priority High -s "Add a rest timer between sets"
  suggest submit --file ./screenshot.png`,
	RunE: runSubmit,
}

func init() {
	submitFields.register(submitCmd)
	submitCmd.Flags().StringVar(&submitFile, "file", "", "screenshot to attach (PNG, JPEG or WebP, max 5MB)")
	submitCmd.Flags().BoolVar(&submitNoRestore, "no-restore", false, "ignore the saved draft")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if !submitNoRestore {
		ctrl.Restore(ctx)
	}
	if err := submitFields.apply(cmd, ctrl); err != nil {
		return err
	}
	if submitFile != "" {
		if err := attachFile(ctrl, submitFile); err != nil {
			return err
		}
	}

	result, err := ctrl.Submit(ctx)
	if err != nil {
		// 保留已填写的内容，下次运行可直接重试
		_ = ctrl.SaveDraft(ctx)
		return errReported
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Submission ID: %s\n", result.SubmissionID)
	return nil
}
