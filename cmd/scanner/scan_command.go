package main

import (
	"fmt"
	"strings"
	"time"

	"ecospectre-be/pkg/ai/pipeline"
	"ecospectre-be/pkg/scan"
	"ecospectre-be/pkg/syncclient"
	"ecospectre-be/pkg/thumbnail"
	"ecospectre-be/pkg/vision/factory"
	"ecospectre-be/pkg/vision/gemini"

	"github.com/spf13/cobra"
)

const publishFlushTimeout = 10 * time.Second

func newScanCommand(ctx *commandContext) *cobra.Command {
	var (
		decision string
		note     string
		offline  bool
	)

	cmd := &cobra.Command{
		Use:   "scan IMAGE",
		Short: "Analyze a product photo and queue the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := scan.Action(strings.ToLower(strings.TrimSpace(decision)))
			if !action.Valid() {
				return fmt.Errorf("--decision must be %q or %q", scan.ActionConsumed, scan.ActionRejected)
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log := ctx.logger()

			provider, err := factory.NewProvider(cmd.Context(), factory.Config{
				Provider: cfg.Vision.Provider,
				Gemini: gemini.Config{
					ProjectID:       cfg.Vision.Gemini.ProjectID,
					Location:        cfg.Vision.Gemini.Location,
					Model:           cfg.Vision.Gemini.Model,
					CredentialsFile: cfg.Vision.Gemini.CredentialsFile,
				},
				OllamaBaseURL: cfg.Vision.Ollama.BaseURL,
				OllamaModel:   cfg.Vision.Ollama.Model,
			})
			if err != nil {
				return fmt.Errorf("vision provider: %w", err)
			}
			defer provider.Close()

			thumbs := thumbnail.New(cfg.Thumbnail.Dir, cfg.Thumbnail.MaxDimension)
			p := pipeline.NewAnalysisPipeline(provider, provider, thumbs, log)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, faintText("Analyzing "+args[0]+"..."))

			draft, err := p.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			draft.Action = action
			draft.Context.UserNote = strings.TrimSpace(note)
			draft.UserID = ctx.currentUserID()

			q, err := ctx.openQueue()
			if err != nil {
				return err
			}
			rec, err := q.Add(cmd.Context(), *draft)
			if err != nil {
				return fmt.Errorf("save scan: %w", err)
			}

			fmt.Fprintln(out, scanSummary(rec))

			if offline {
				return nil
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			publisher := syncclient.NewPublisher(client, q, log)
			publisher.Publish(rec)
			if !publisher.Wait(publishFlushTimeout) {
				fmt.Fprintln(out, warnText("Still uploading; the scan stays queued and will sync later."))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&decision, "decision", "d", string(scan.ActionConsumed), "What you did with the product: consumed or rejected")
	cmd.Flags().StringVar(&note, "note", "", "Free-form note stored with the scan")
	cmd.Flags().BoolVar(&offline, "offline", false, "Queue only, do not try to upload now")
	return cmd
}

func scanSummary(rec scan.Record) string {
	rows := [][]string{
		{"Score", scoreText(rec.Score.Score)},
		{"Materials", fmt.Sprintf("%.0f", rec.Score.Breakdown.Materials)},
		{"Packaging", fmt.Sprintf("%.0f", rec.Score.Breakdown.Packaging)},
		{"Certifications", fmt.Sprintf("%.0f", rec.Score.Breakdown.Certifications)},
		{"Category baseline", fmt.Sprintf("%.0f", rec.Score.Breakdown.CategoryBaseline)},
		{"Packaging type", rec.Context.PackagingType},
		{"Materials seen", rec.Context.MaterialHints},
		{"Decision", string(rec.Action)},
	}
	for _, f := range rec.Score.TopFactors {
		marker := okText("+")
		if f.Impact == scan.ImpactNegative {
			marker = errText("-")
		}
		rows = append(rows, []string{marker + " " + f.Factor, truncate(f.Explanation, 60)})
	}
	if rec.Score.Suggestion != "" {
		rows = append(rows, []string{"Suggestion", rec.Score.Suggestion})
	}
	if rec.Score.Disposal != "" {
		rows = append(rows, []string{"Disposal", rec.Score.Disposal})
	}
	return boldText("Saved "+rec.ID) + "\n" + renderTable([]string{"Field", "Value"}, rows, nil)
}
