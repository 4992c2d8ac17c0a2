package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		user    string
		pending bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show scans stored on this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := ctx.openQueue()
			if err != nil {
				return err
			}

			records := q.GetAll(cmd.Context(), user)
			if pending {
				filtered := records[:0]
				for _, r := range records {
					if r.Pending {
						filtered = append(filtered, r)
					}
				}
				records = filtered
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No scans stored on this device.")
				return nil
			}
			fmt.Fprintln(out, recordTable(records, true))
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Only show scans owned by this user id")
	cmd.Flags().BoolVar(&pending, "pending", false, "Only show scans not yet synced")
	return cmd
}
