package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yachaerang/pricebatch/pkg/server"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the price batch service",
	Long: `Runs the long-lived service: cron-scheduled ingestion and rollups,
the HTTP trigger API and the metrics endpoint.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	config, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(cmd.Context(), logger, config)
	if err != nil {
		return err
	}

	return srv.Start(cmd.Context())
}
