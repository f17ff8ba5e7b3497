package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strconv"
	"testing"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"

	"sla-tracker/internal/api"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile, dbPath, timezone, catalogPath, outputFormat = "", "", "", "", "table"
	elapsedStart, elapsedEnd, elapsedBusiness = "", "", false
	listSOP, listStatus, listQuery = "", "all", ""
	createSOP, createType, createName, createOwner, createAssignment = "", "", "", "", ""
	completeComments, statsSOP = "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestElapsedCommand(t *testing.T) {
	out, err := run(t, "elapsed", "--tz", "UTC", "--output", "json",
		"--start", "2024-01-05T16:00:00Z", "--end", "2024-01-08T09:00:00Z", "--business")
	require.NoError(t, err)

	var got elapsedResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, int64(2*3600*1000), got.ElapsedMs)
	require.True(t, got.BusinessWindow)
	require.Equal(t, "UTC", got.Timezone)

	out, err = run(t, "elapsed", "--tz", "UTC", "--start", "2024-01-05T16:00", "--end", "2024-01-08T09:00")
	require.NoError(t, err)
	require.Contains(t, out, "65h0m0s")
	require.Contains(t, out, "continuous")

	_, err = run(t, "elapsed", "--tz", "UTC", "--start", "someday")
	require.Error(t, err)
}

func TestElapsedCommandLongSpan(t *testing.T) {
	end := strconv.FormatInt(400*365*24*3600*1000, 10)
	out, err := run(t, "elapsed", "--tz", "UTC", "--output", "json", "--start", "0", "--end", end)
	require.NoError(t, err)

	var got elapsedResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, int64(12614400000000), got.ElapsedMs)
	require.Equal(t, float64(3504000), got.ElapsedHours)

	out, err = run(t, "elapsed", "--tz", "UTC", "--start", "0", "--end", end)
	require.NoError(t, err)
	require.Contains(t, out, "3504000h0m0s")
}

func TestSLACommands(t *testing.T) {
	t.Setenv("SLA_CONFIG", "")
	db := filepath.Join(t.TempDir(), "data", "sla.db")

	out, err := run(t, "create", "--db", db, "--tz", "UTC", "--output", "json",
		"--sop", "2", "--type", "urgencias", "--name", "PO 77", "--owner", "Ana")
	require.NoError(t, err)
	var created api.SLADTO
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	require.Equal(t, "active", created.Status)
	require.Equal(t, "Urgencias", created.TypeName)

	out, err = run(t, "list", "--db", db, "--tz", "UTC")
	require.NoError(t, err)
	require.Contains(t, out, "PO 77")
	require.Contains(t, out, "Total SLAs: 1")

	out, err = run(t, "complete", created.ID, "--db", db, "--tz", "UTC", "--comments", "done", "--output", "json")
	require.NoError(t, err)
	var completed api.SLADTO
	require.NoError(t, json.Unmarshal([]byte(out), &completed))
	require.Equal(t, "completed", completed.Status)
	require.Equal(t, "done", completed.Comments)

	_, err = run(t, "complete", created.ID, "--db", db, "--tz", "UTC")
	require.Error(t, err)

	out, err = run(t, "stats", "--db", db, "--tz", "UTC", "--output", "json")
	require.NoError(t, err)
	var stats []api.StatsDTO
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.Len(t, stats, 1)
	require.Equal(t, 1, stats[0].CompletedOnTime)

	out, err = run(t, "list", "--db", db, "--tz", "UTC", "--status", "active")
	require.NoError(t, err)
	require.Contains(t, out, "No SLAs found")

	_, err = run(t, "create", "--db", db, "--tz", "UTC", "--sop", "2", "--type", "nope", "--name", "x")
	require.Error(t, err)
}
