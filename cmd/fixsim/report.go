package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/joripage/fixsim/config"
	"github.com/joripage/fixsim/pkg/analytics"
	"github.com/joripage/fixsim/pkg/capture/model"
	postgres_wrapper "github.com/joripage/fixsim/pkg/infra/postgres"
	"github.com/joripage/fixsim/pkg/recordlog"
	"github.com/joripage/fixsim/pkg/repo"
	"github.com/spf13/cobra"
)

var (
	reportCSV    string
	reportSqlite string
	reportFromDB bool
	reportRunID  string
	reportFormat string
	reportPnL    string
	reportList   bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Recompute the analytics report from persisted records",
	Long: `Report reads captured records back and prints the analytics report.

Sources, in order of precedence:
  --csv data_<ts>.csv
  --sqlite journal.db --run-id <id>
  --from-db --run-id <id>   (event DB from config)

Example:
  fixsim report --csv Results/data_20240501_143000.csv --format json`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportCSV, "csv", "", "captured records CSV")
	reportCmd.Flags().StringVar(&reportSqlite, "sqlite", "", "SQLite journal path")
	reportCmd.Flags().BoolVar(&reportFromDB, "from-db", false, "read from the event DB")
	reportCmd.Flags().StringVar(&reportRunID, "run-id", "", "run to report on (journal and event DB)")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "", "text, json or yaml (default from config)")
	reportCmd.Flags().StringVar(&reportPnL, "pnl-mode", "", "reference or realized (default from config)")
	reportCmd.Flags().BoolVar(&reportList, "list", false, "list stored run IDs instead of reporting")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if reportPnL != "" {
		cfg.Analytics.PnLMode = analytics.PnLMode(reportPnL)
	}
	format := cfg.Output.ReportFormat
	if reportFormat != "" {
		format = analytics.Format(reportFormat)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if reportList {
		runs, err := listRuns(ctx, cfg)
		if err != nil {
			return err
		}
		for _, id := range runs {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	}

	records, err := loadRecords(ctx, cfg)
	if err != nil {
		return err
	}
	report, err := analytics.Run(ctx, records, cfg.Analytics)
	if errors.Is(err, analytics.ErrEmptyDataset) {
		fmt.Fprintln(cmd.OutOrStdout(), "no data")
		return nil
	}
	if err != nil {
		return err
	}
	report.RunID = reportRunID
	return report.Write(cmd.OutOrStdout(), format)
}

func loadRecords(ctx context.Context, cfg *config.AppConfig) ([]model.EventRecord, error) {
	switch {
	case reportCSV != "":
		return recordlog.ReadFile(reportCSV)

	case reportSqlite != "" || (!reportFromDB && cfg.Output.SqlitePath != "" && reportRunID != ""):
		path := reportSqlite
		if path == "" {
			path = cfg.Output.SqlitePath
		}
		if reportRunID == "" {
			return nil, fmt.Errorf("--run-id is required with --sqlite")
		}
		j, err := recordlog.OpenJournal(path)
		if err != nil {
			return nil, err
		}
		defer j.Close()
		return j.Load(ctx, reportRunID)

	case reportFromDB:
		if reportRunID == "" {
			return nil, fmt.Errorf("--run-id is required with --from-db")
		}
		r, closeDB, err := openRepo(cfg)
		if err != nil {
			return nil, err
		}
		defer closeDB()
		rows, err := r.EventRecord().ListByRunID(ctx, reportRunID)
		if err != nil {
			return nil, err
		}
		records := make([]model.EventRecord, 0, len(rows))
		for _, row := range rows {
			rec, err := row.Record()
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
		return records, nil
	}
	return nil, fmt.Errorf("one of --csv, --sqlite or --from-db is required")
}

func listRuns(ctx context.Context, cfg *config.AppConfig) ([]string, error) {
	if reportFromDB {
		r, closeDB, err := openRepo(cfg)
		if err != nil {
			return nil, err
		}
		defer closeDB()
		return r.EventRecord().ListRunIDs(ctx)
	}
	path := reportSqlite
	if path == "" {
		path = cfg.Output.SqlitePath
	}
	if path == "" {
		return nil, fmt.Errorf("--sqlite or --from-db is required with --list")
	}
	j, err := recordlog.OpenJournal(path)
	if err != nil {
		return nil, err
	}
	defer j.Close()
	return j.Runs(ctx)
}

func openRepo(cfg *config.AppConfig) (repo.IRepo, func(), error) {
	if cfg.EventDB == nil {
		return nil, nil, fmt.Errorf("event_db is not configured")
	}
	db, err := postgres_wrapper.InitPostgresWithBackoff(cfg.EventDB)
	if err != nil {
		return nil, nil, err
	}
	return repo.NewRepo(db), func() { _ = postgres_wrapper.Close(db) }, nil
}
