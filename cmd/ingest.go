package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robertroyster/lookbook-admin/internal/ingest"
)

var (
	ingestJobID     string
	ingestDatasetID string
	ingestSource    string
)

// ingestCmd replays an ingestion manually, for datasets whose webhook was
// missed or for backfills. Safe to re-run: identical payloads dedupe on the
// payload hash.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a completed crawl dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestDatasetID == "" {
			return eris.New("--dataset is required")
		}
		if ingestJobID == "" {
			return eris.New("--job is required")
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		source := ingestSource
		if source == "" {
			source = cfg.Scrapehub.Source
		}

		report, err := env.Ingestor.Run(cmd.Context(), ingest.JobRef{
			Source:    source,
			JobID:     ingestJobID,
			DatasetID: ingestDatasetID,
		})
		if err != nil {
			return eris.Wrap(err, "run ingestion")
		}

		zap.L().Info("ingestion finished",
			zap.Bool("duplicate", report.Duplicate),
			zap.Int("items", report.ItemCount),
			zap.Int("restaurants_created", report.RestaurantsCreated),
			zap.Int("menus_created", report.MenusCreated),
			zap.Int("claims_issued", report.ClaimsIssued),
			zap.Int("errors", len(report.Errors)),
			zap.String("archive_key", report.ArchiveKey),
		)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestJobID, "job", "", "upstream job id")
	ingestCmd.Flags().StringVar(&ingestDatasetID, "dataset", "", "dataset id to fetch")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "source label (default from config)")
	rootCmd.AddCommand(ingestCmd)
}
