package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Show the relay's submission limits",
	RunE: func(cmd *cobra.Command, args []string) error {
		limits, err := relay.Limits(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetch limits: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "max file size:   %.1f MB\n", float64(limits.MaxFileSize)/(1024*1024))
		fmt.Fprintf(out, "allowed types:   %s\n", strings.Join(limits.AllowedTypes, ", "))
		fmt.Fprintf(out, "suggestion:      %d to %d characters\n", limits.MinSuggestionLength, limits.MaxTextLength)
		fmt.Fprintf(out, "rate limit:      %d per %s\n", limits.RateLimit, limits.RateWindow)
		return nil
	},
}
