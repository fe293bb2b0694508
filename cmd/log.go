package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pitwall/vtms/config"
	"github.com/pitwall/vtms/core/telemetry"
	"github.com/pitwall/vtms/infra/storage"
	"github.com/pitwall/vtms/pkg/export"
)

var (
	logSource string
	logName   string
	logLimit  int
	logFormat string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Telemetry log commands",
}

var logLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List recorded telemetry, newest first",
	RunE:  runLogLs,
}

var logExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded telemetry as CSV or JSON",
	RunE:  runLogExport,
}

func init() {
	logLsCmd.Flags().StringVar(&logSource, "source", "", "filter by source (obd or gps)")
	logLsCmd.Flags().StringVar(&logName, "name", "", "filter by channel name")
	logLsCmd.Flags().IntVar(&logLimit, "limit", 20, "maximum rows")
	logExportCmd.Flags().StringVar(&logSource, "source", "", "filter by source (obd or gps)")
	logExportCmd.Flags().StringVar(&logName, "name", "", "filter by channel name")
	logExportCmd.Flags().IntVar(&logLimit, "limit", 0, "maximum rows, 0 for all")
	logExportCmd.Flags().StringVar(&logFormat, "format", "csv", "output format: csv or json")
	logCmd.AddCommand(logLsCmd)
	logCmd.AddCommand(logExportCmd)
	rootCmd.AddCommand(logCmd)
}

func queryRecords(cfgPath string) ([]telemetry.Record, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if !cfg.Storage.Enabled {
		return nil, fmt.Errorf("telemetry storage is disabled in %s", cfgPath)
	}
	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	recs, err := store.Query(telemetry.Filter{Source: logSource, Name: logName, Limit: logLimit})
	if err != nil {
		return nil, fmt.Errorf("query store: %w", err)
	}
	return recs, nil
}

func runLogLs(cmd *cobra.Command, args []string) error {
	recs, err := queryRecords(cfgPath)
	if err != nil {
		return err
	}
	for _, r := range recs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-4s %-28s %s\n",
			r.Time.Format(time.RFC3339), r.Source, r.Name, r.Value)
	}
	return nil
}

func runLogExport(cmd *cobra.Command, args []string) error {
	recs, err := queryRecords(cfgPath)
	if err != nil {
		return err
	}
	switch strings.ToLower(logFormat) {
	case "csv":
		return export.WriteCSV(cmd.OutOrStdout(), recs)
	case "json":
		return export.WriteJSON(cmd.OutOrStdout(), recs)
	default:
		return fmt.Errorf("unknown format %q, want csv or json", logFormat)
	}
}
