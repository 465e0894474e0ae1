package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robertroyster/lookbook-admin/internal/ingest"
)

var crawlPlanFile string

// crawlCmd starts a crawl from an operator-authored plan file. Results come
// back later through the completion webhook (or a manual ingest).
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Start a crawl job from a plan file",
	Long: `Reads a YAML plan of listing URLs and launches a crawl job.

Example plan:
  source: gmaps
  urls:
    - https://maps.example.com/place/1
    - https://maps.example.com/place/2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if crawlPlanFile == "" {
			return eris.New("--plan is required")
		}

		plan, err := ingest.LoadPlan(crawlPlanFile)
		if err != nil {
			return err
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		info, err := env.Hub.StartJob(cmd.Context(), plan.URLs)
		if err != nil {
			return eris.Wrap(err, "start crawl job")
		}

		zap.L().Info("crawl job started",
			zap.String("job_id", info.JobID),
			zap.String("dataset_id", info.DatasetID),
			zap.String("status", info.Status),
			zap.Int("urls", len(plan.URLs)),
		)
		return nil
	},
}

func init() {
	crawlCmd.Flags().StringVar(&crawlPlanFile, "plan", "", "path to YAML crawl plan")
	rootCmd.AddCommand(crawlCmd)
}
