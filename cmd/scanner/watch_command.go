package main

import (
	"context"
	"fmt"
	"time"

	"ecospectre-be/pkg/syncclient"

	"github.com/spf13/cobra"
)

const defaultHealthInterval = 10 * time.Second

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var healthEvery time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep syncing pending scans until interrupted",
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
			drainer := syncclient.NewDrainer(q, client, ctx.drainerConfig(), ctx.logger())

			runCtx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			done := make(chan struct{})
			go func() {
				defer close(done)
				drainer.Run(runCtx)
			}()

			fmt.Fprintln(out, faintText("Watching for pending scans. Press Ctrl+C to stop."))
			watchConnectivity(runCtx, client, drainer, healthEvery, func(online bool) {
				if online {
					fmt.Fprintln(out, okText("Server reachable, syncing pending scans."))
				} else {
					fmt.Fprintln(out, warnText("Server unreachable, scans stay queued."))
				}
			})

			cancel()
			<-done
			return nil
		},
	}

	cmd.Flags().DurationVar(&healthEvery, "health-interval", defaultHealthInterval, "How often to probe the server")
	return cmd
}

type healthChecker interface {
	Health(ctx context.Context) (*syncclient.HealthStatus, error)
}

// watchConnectivity probes the server until ctx is done and triggers a drain whenever it comes back.
func watchConnectivity(ctx context.Context, client healthChecker, drainer *syncclient.Drainer, every time.Duration, onChange func(online bool)) {
	if every <= 0 {
		every = defaultHealthInterval
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var known, online bool
	for {
		_, err := client.Health(ctx)
		if ctx.Err() != nil {
			return
		}
		now := err == nil
		if !known || now != online {
			onChange(now)
			if now && known {
				drainer.Trigger()
			}
		}
		known, online = true, now

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
