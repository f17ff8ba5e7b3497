package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sla-tracker/internal/bizclock"
	"sla-tracker/internal/catalog"
	"sla-tracker/internal/config"
	"sla-tracker/internal/store"
	"sla-tracker/internal/tracker"
)

var (
	cfgFile      string
	dbPath       string
	timezone     string
	catalogPath  string
	outputFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:           "slactl",
	Short:         "Inspect and manage tracked SLAs",
	Long:          `slactl works against the same SQLite file as the SLA dashboard server: list items, compute elapsed time and record completions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default from SLA_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default from config)")
	rootCmd.PersistentFlags().StringVar(&timezone, "tz", "", "IANA timezone for the business window (default from config)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "SOP catalogue YAML (default embedded)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return strings.EqualFold(outputFormat, "json")
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if timezone != "" {
		cfg.Timezone = timezone
	}
	if catalogPath != "" {
		cfg.CatalogPath = catalogPath
	}
	logrus.SetLevel(cfg.Level())
	return cfg, nil
}

func loadCalendar() (bizclock.Calendar, error) {
	cfg, err := loadConfig()
	if err != nil {
		return bizclock.Calendar{}, err
	}
	return bizclock.LoadCalendar(cfg.Timezone)
}

// openTracker wires the tracker over the configured database. The returned
// func closes it.
func openTracker() (*tracker.Service, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}
	calendar, err := bizclock.LoadCalendar(cfg.Timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("load timezone: %w", err)
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, nil, err
	}
	svc := tracker.NewService(db, cat, calendar, nil)
	return svc, func() { _ = db.Close() }, nil
}

func printJSON(w io.Writer, v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(output))
	return nil
}

func newTable(w io.Writer, headers ...any) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.Header(headers...)
	return table
}
