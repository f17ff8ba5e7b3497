package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sla-tracker/internal/api"
	"sla-tracker/internal/tracker"
)

var statsSOP string

// statsCmd reports compliance buckets
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show on-time and overdue counts per SOP",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVar(&statsSOP, "sop", "", "only this SOP id (default every SOP with SLAs)")
}

func runStats(cmd *cobra.Command, args []string) error {
	svc, closeDB, err := openTracker()
	if err != nil {
		return err
	}
	defer closeDB()

	var all []tracker.Stats
	if statsSOP != "" {
		st, err := svc.Stats(statsSOP)
		if err != nil {
			return err
		}
		all = []tracker.Stats{st}
	} else if all, err = svc.StatsBySOP(); err != nil {
		return err
	}

	dtos := make([]api.StatsDTO, 0, len(all))
	for _, st := range all {
		dtos = append(dtos, api.StatsFromModel(st, svc.Catalog().SOPTitle(st.SOPID)))
	}

	out := cmd.OutOrStdout()
	if IsJSONOutput() {
		return printJSON(out, dtos)
	}
	if len(dtos) == 0 {
		fmt.Fprintln(out, "No SLAs found")
		return nil
	}
	table := newTable(out, "SOP", "Completed overdue", "Completed on time", "Active overdue", "Active on time", "On-time rate")
	for _, d := range dtos {
		table.Append(
			d.SOPTitle,
			fmt.Sprintf("%d", d.CompletedOverdue),
			fmt.Sprintf("%d", d.CompletedOnTime),
			fmt.Sprintf("%d", d.ActiveOverdue),
			fmt.Sprintf("%d", d.ActiveOnTime),
			fmt.Sprintf("%.0f%%", d.OnTimeRate*100),
		)
	}
	return table.Render()
}
