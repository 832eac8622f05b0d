package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yachaerang/pricebatch/pkg/orchestrator"
	"github.com/yachaerang/pricebatch/pkg/period"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	rollupYear    int
	rollupWeek    int
	rollupEndYear int
	rollupEndWeek int
	rollupMonth   int
)

//nolint:gochecknoglobals // Cobra commands are typically global
var rollupCmd = &cobra.Command{
	Use:   "rollup",
	Short: "Recompute period aggregates from stored daily prices",
}

//nolint:gochecknoglobals // Cobra commands are typically global
var rollupWeeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Roll up one ISO week, or a week range with --end-year/--end-week",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true

		return withJobs(cmd, func(jobs *orchestrator.Service) (*orchestrator.JobResult, error) {
			if rollupEndYear != 0 || rollupEndWeek != 0 {
				return jobs.RunWeekRange(cmd.Context(),
					period.Week{Year: rollupYear, Week: rollupWeek},
					period.Week{Year: rollupEndYear, Week: rollupEndWeek})
			}

			return jobs.RunWeek(cmd.Context(), rollupYear, rollupWeek)
		})
	},
}

//nolint:gochecknoglobals // Cobra commands are typically global
var rollupMonthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Roll up one calendar month",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true

		return withJobs(cmd, func(jobs *orchestrator.Service) (*orchestrator.JobResult, error) {
			return jobs.RunMonth(cmd.Context(), rollupYear, rollupMonth)
		})
	},
}

//nolint:gochecknoglobals // Cobra commands are typically global
var rollupYearlyCmd = &cobra.Command{
	Use:   "yearly",
	Short: "Roll up one calendar year with price-change analytics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true

		return withJobs(cmd, func(jobs *orchestrator.Service) (*orchestrator.JobResult, error) {
			return jobs.RunYear(cmd.Context(), rollupYear)
		})
	},
}

func init() {
	rootCmd.AddCommand(rollupCmd)
	rollupCmd.AddCommand(rollupWeeklyCmd, rollupMonthlyCmd, rollupYearlyCmd)

	rollupWeeklyCmd.Flags().IntVar(&rollupYear, "year", 0, "ISO week-numbering year")
	rollupWeeklyCmd.Flags().IntVar(&rollupWeek, "week", 0, "ISO week number")
	rollupWeeklyCmd.Flags().IntVar(&rollupEndYear, "end-year", 0, "range end year (optional)")
	rollupWeeklyCmd.Flags().IntVar(&rollupEndWeek, "end-week", 0, "range end week (optional)")

	rollupMonthlyCmd.Flags().IntVar(&rollupYear, "year", 0, "calendar year")
	rollupMonthlyCmd.Flags().IntVar(&rollupMonth, "month", 0, "calendar month (1-12)")

	rollupYearlyCmd.Flags().IntVar(&rollupYear, "year", 0, "calendar year")
}
