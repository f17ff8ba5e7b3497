package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sla-tracker/internal/api"
	"sla-tracker/internal/tracker"
)

var (
	listSOP    string
	listStatus string
	listQuery  string

	createSOP        string
	createType       string
	createName       string
	createOwner      string
	createAssignment string

	completeComments string
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked SLAs",
	Long:  `List SLAs, active first and newest start first, with their remaining time.`,
	RunE:  runList,
}

// createCmd represents the create command
var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Start tracking a new SLA now",
	RunE:  runCreate,
}

// completeCmd represents the complete command
var completeCmd = &cobra.Command{
	Use:   "complete <sla-id>",
	Short: "Mark an SLA as completed now",
	Args:  cobra.ExactArgs(1),
	RunE:  runComplete,
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(completeCmd)

	listCmd.Flags().StringVar(&listSOP, "sop", "", "only SLAs of this SOP id")
	listCmd.Flags().StringVar(&listStatus, "status", "all", "all, active or completed")
	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "match name, assignment or owner")

	createCmd.Flags().StringVar(&createSOP, "sop", "", "SOP id (required)")
	createCmd.Flags().StringVar(&createType, "type", "", "SLA type id within the SOP (required)")
	createCmd.Flags().StringVar(&createName, "name", "", "display name (required)")
	createCmd.Flags().StringVar(&createOwner, "owner", "", "responsible person")
	createCmd.Flags().StringVar(&createAssignment, "assignment", "", "assignment text")
	_ = createCmd.MarkFlagRequired("sop")
	_ = createCmd.MarkFlagRequired("type")
	_ = createCmd.MarkFlagRequired("name")

	completeCmd.Flags().StringVar(&completeComments, "comments", "", "closing comments")
}

func runList(cmd *cobra.Command, args []string) error {
	filter, err := tracker.ParseFilter(listStatus)
	if err != nil {
		return err
	}
	svc, closeDB, err := openTracker()
	if err != nil {
		return err
	}
	defer closeDB()

	snaps, total, err := svc.List(tracker.ListOptions{SOPID: listSOP, Filter: filter, Query: listQuery})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	loc := svc.Calendar().Location()
	if IsJSONOutput() {
		dtos := make([]api.SLADTO, 0, len(snaps))
		for _, snap := range snaps {
			dtos = append(dtos, api.FromSnapshot(snap, loc))
		}
		return printJSON(out, api.SLAsResponse{Items: dtos, Total: total})
	}

	if len(snaps) == 0 {
		fmt.Fprintln(out, "No SLAs found")
		return nil
	}
	table := newTable(out, "ID", "SOP", "Name", "Type", "Status", "Start", "Due", "Remaining", "Band")
	for _, snap := range snaps {
		table.Append(
			snap.SLA.ID,
			snap.SLA.SOPID,
			snap.SLA.Name,
			snap.TypeName,
			snap.SLA.Status,
			svc.StartLabel(snap),
			svc.DueLabel(snap),
			tracker.RemainingLabel(snap),
			string(snap.Band),
		)
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nTotal SLAs: %d\n", total)
	return nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	svc, closeDB, err := openTracker()
	if err != nil {
		return err
	}
	defer closeDB()

	snap, err := svc.Create(tracker.CreateInput{
		Name:       createName,
		Type:       createType,
		SOPID:      createSOP,
		Assignment: createAssignment,
		Owner:      createOwner,
	})
	if err != nil {
		return err
	}
	return printSnapshot(cmd, svc, snap)
}

func runComplete(cmd *cobra.Command, args []string) error {
	svc, closeDB, err := openTracker()
	if err != nil {
		return err
	}
	defer closeDB()

	snap, err := svc.Complete(args[0], completeComments)
	if err != nil {
		return err
	}
	return printSnapshot(cmd, svc, snap)
}

func printSnapshot(cmd *cobra.Command, svc *tracker.Service, snap tracker.Snapshot) error {
	out := cmd.OutOrStdout()
	if IsJSONOutput() {
		return printJSON(out, api.FromSnapshot(snap, svc.Calendar().Location()))
	}
	table := newTable(out, "Field", "Value")
	table.Append("ID", snap.SLA.ID)
	table.Append("SOP", snap.SOPTitle)
	table.Append("Name", snap.SLA.Name)
	table.Append("Type", snap.TypeName)
	table.Append("Policy", snap.Policy.String())
	table.Append("Status", snap.SLA.Status)
	table.Append("Start", svc.StartLabel(snap))
	table.Append("Due", svc.DueLabel(snap))
	table.Append("Elapsed", snap.Elapsed.String())
	table.Append("Countdown", tracker.CountdownLabel(snap))
	table.Append("Overdue", fmt.Sprintf("%t", snap.Overdue))
	return table.Render()
}
