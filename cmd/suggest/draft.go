package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var draftFields fieldFlags

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Manage the local suggestion draft",
}

var draftSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Update and save the draft",
	Long: `Save merges the given fields into the saved draft.

Example:
  suggest draft save --category UI -s "Bigger buttons on the workout screen"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ctrl.Restore(ctx)
		if err := draftFields.apply(cmd, ctrl); err != nil {
			return err
		}
		if counter, tooShort := ctrl.CharCounter(); tooShort {
			fmt.Fprintf(cmd.ErrOrStderr(), "suggestion is short: %s\n", counter)
		}
		if err := ctrl.SaveDraft(ctx); err != nil {
			return errReported
		}
		return nil
	},
}

var draftShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved draft",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !ctrl.Restore(cmd.Context()) {
			fmt.Fprintln(cmd.OutOrStdout(), "No saved draft")
			return nil
		}

		out := cmd.OutOrStdout()
		fmt.Fprint(out, formatFields(ctrl.Fields()))
		counter, _ := ctrl.CharCounter()
		fmt.Fprintf(out, "characters: %s\n", counter)
		if status := ctrl.DraftStatus(); status != "" {
			fmt.Fprintln(out, status)
		}
		return nil
	},
}

var draftClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard the saved draft",
	RunE: func(cmd *cobra.Command, args []string) error {
		return ctrl.Discard(cmd.Context())
	},
}

func init() {
	draftFields.register(draftSaveCmd)

	draftCmd.AddCommand(draftSaveCmd)
	draftCmd.AddCommand(draftShowCmd)
	draftCmd.AddCommand(draftClearCmd)
}
