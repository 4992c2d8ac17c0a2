package main

import (
	"fmt"
	"os"

	"ecospectre-be/pkg/syncclient"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Upload every pending scan once",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := ctx.openQueue()
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			drainCfg := ctx.drainerConfig()
			drainer := syncclient.NewDrainer(q, client, drainCfg, ctx.logger())

			total := len(drainer.Pending(cmd.Context()))
			if total == 0 {
				fmt.Fprintln(out, okText("Nothing to sync."))
				return nil
			}

			if out == os.Stdout && isTerminal(os.Stdout) {
				bar := progressbar.NewOptions(total,
					progressbar.OptionSetWriter(out),
					progressbar.OptionEnableColorCodes(true),
					progressbar.OptionShowCount(),
					progressbar.OptionSetWidth(40),
					progressbar.OptionSetDescription("[cyan][bold]Syncing scans...[reset]"),
					progressbar.OptionOnCompletion(func() { fmt.Fprintln(out) }),
				)
				drainCfg.OnProgress = func(done, _ int) { _ = bar.Set(done) }
				drainer = syncclient.NewDrainer(q, client, drainCfg, ctx.logger())
			}

			res := drainer.DrainOnce(cmd.Context())
			fmt.Fprintln(out, drainSummary(res, total))
			if res.Failed > 0 {
				return fmt.Errorf("%d scan(s) could not be synced; they stay queued", res.Failed)
			}
			return nil
		},
	}
}

func drainSummary(res syncclient.DrainResult, total int) string {
	line := fmt.Sprintf("Synced %s of %d pending scan(s)", okText(res.Synced), total)
	if res.Deferred > 0 {
		line += ", " + warnText(fmt.Sprintf("%d held in server memory", res.Deferred))
	}
	if res.Failed > 0 {
		line += ", " + errText(fmt.Sprintf("%d failed", res.Failed))
	}
	if skipped := total - res.Attempted; skipped > 0 {
		line += ", " + warnText(fmt.Sprintf("%d not attempted", skipped))
	}
	return line + "."
}
