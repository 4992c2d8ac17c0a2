package main

import (
	"fmt"
	"strings"
	"time"

	"ecospectre-be/pkg/scan"

	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show scans stored on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := optionalDate(start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			to, err := optionalDate(end)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}

			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			records, err := client.ListScans(cmd.Context(), from, to)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No scans on the server for this range.")
				return nil
			}
			fmt.Fprintln(out, recordTable(records, false))
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "Earliest scan date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&end, "end", "", "Latest scan date (YYYY-MM-DD or RFC 3339)")
	return cmd
}

func optionalDate(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := scan.ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
