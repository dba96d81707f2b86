package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestWriteReportFormats(t *testing.T) {
	report := solveReport{SnapshotID: "s1", Capacity: 6, Imbalances: map[string]int{"A": 5}}

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, "", "yaml", report))
	var fromYAML solveReport
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, "s1", fromYAML.SnapshotID)
	assert.Contains(t, buf.String(), "snapshot_id: s1")

	buf.Reset()
	require.NoError(t, writeReport(&buf, "", "json", report))
	var fromJSON map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	assert.Equal(t, float64(6), fromJSON["capacity"])

	assert.Error(t, writeReport(&buf, "", "xml", report))
}

func TestWriteReportToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, writeReport(nil, path, "yaml", benchmarkReport{Instances: 3}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "instances: 3")
}

func TestSolveCommand(t *testing.T) {
	dir := t.TempDir()
	snap := filepath.Join(dir, "snap.json")
	require.NoError(t, os.WriteFile(snap, []byte(`{
  "id": "s1",
  "taken_at": "2024-05-01T08:00:00Z",
  "stations": [
    {"id": "A", "name": "A", "lon": -1.56, "lat": 47.2, "capacity": 20, "bikes_available": 15, "timestamp": "2024-05-01T08:00:00Z"},
    {"id": "B", "name": "B", "lon": -1.55, "lat": 47.2, "capacity": 20, "bikes_available": 7, "timestamp": "2024-05-01T08:00:00Z"},
    {"id": "C", "name": "C", "lon": -1.54, "lat": 47.2, "capacity": 20, "bikes_available": 12, "timestamp": "2024-05-01T08:00:00Z"},
    {"id": "D", "name": "D", "lon": -1.53, "lat": 47.2, "capacity": 20, "bikes_available": 6, "timestamp": "2024-05-01T08:00:00Z"}
  ]
}`), 0o644))
	out := filepath.Join(dir, "route.json")

	rootCmd.SetArgs([]string{"solve", "--snapshot", snap, "--algorithm", "exact", "--capacity", "6",
		"--target", "0.5", "--depot-station", "A", "--format", "json", "--output", out})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var report solveReport
	require.NoError(t, json.Unmarshal(data, &report))
	require.Len(t, report.Routes, 1)
	assert.Equal(t, "exact", report.Routes[0].Algorithm)
	assert.Equal(t, 1.0, report.Routes[0].ResolvedFraction)
	assert.Equal(t, []string{"depot", "A", "B", "C", "D", "depot"}, report.Routes[0].Sequence)
}
