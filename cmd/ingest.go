package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yachaerang/pricebatch/pkg/orchestrator"
	"github.com/yachaerang/pricebatch/pkg/server"
)

var errIngestFlags = errors.New("provide either --date or both --from and --to")

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	ingestDate string
	ingestFrom string
	ingestTo   string
)

//nolint:gochecknoglobals // Cobra commands are typically global
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest daily prices for one day or a date range",
	Long: `Fetches daily wholesale prices from KAMIS and stores them. A single
--date runs one day; --from/--to backfills the inclusive range over the
worker pool.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestDate, "date", "", "single day to ingest (YYYY-MM-DD)")
	ingestCmd.Flags().StringVar(&ingestFrom, "from", "", "range start (YYYY-MM-DD)")
	ingestCmd.Flags().StringVar(&ingestTo, "to", "", "range end (YYYY-MM-DD)")
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	return withJobs(cmd, func(jobs *orchestrator.Service) (*orchestrator.JobResult, error) {
		ctx := cmd.Context()

		if ingestDate != "" {
			date, err := time.Parse(time.DateOnly, ingestDate)
			if err != nil {
				return nil, fmt.Errorf("invalid --date: %w", err)
			}

			return jobs.RunSingleDay(ctx, date)
		}

		if ingestFrom == "" || ingestTo == "" {
			return nil, errIngestFlags
		}

		from, err := time.Parse(time.DateOnly, ingestFrom)
		if err != nil {
			return nil, fmt.Errorf("invalid --from: %w", err)
		}

		to, err := time.Parse(time.DateOnly, ingestTo)
		if err != nil {
			return nil, fmt.Errorf("invalid --to: %w", err)
		}

		return jobs.RunDateRange(ctx, from, to)
	})
}

// withJobs builds the pipeline, runs one job and prints its result.
func withJobs(cmd *cobra.Command, run func(*orchestrator.Service) (*orchestrator.JobResult, error)) error {
	config, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(cmd.Context(), logger, config)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("Failed to close connections")
		}
	}()

	if err := srv.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	result, err := run(srv.Jobs())
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(encoded))

	return nil
}
