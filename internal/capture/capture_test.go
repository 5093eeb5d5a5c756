package capture

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaunagostinho/komsi-bridge/internal/vehicle"
)

func readCSV(t *testing.T, dir string) [][]string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "komsi_*.csv"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	f, err := os.Open(files[0])
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRecordWritesHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	r := New(Config{Enabled: true, Path: dir}, zerolog.Nop())
	r.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	s := vehicle.New()
	s.Ignition = 1
	s.Speed = 50
	r.Record(vehicle.New().Compare(s, false, nil), false, s)
	r.Record(nil, false, s)
	r.Record(s.Compare(s, true, nil), true, s)
	r.Close()

	rows := readCSV(t, dir)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Len(t, rows[1], len(csvHeader))

	assert.Equal(t, "2026-03-01T12:00:00Z", rows[1][0])
	assert.Equal(t, "false", rows[1][1])
	assert.Equal(t, "2", rows[1][2])
	assert.Equal(t, "41317935300a", rows[1][3])
	assert.Equal(t, "1", rows[1][4])
	assert.Equal(t, "50", rows[1][7])

	assert.Equal(t, "true", rows[2][1])
}

func TestRecordDisabled(t *testing.T) {
	dir := t.TempDir()
	r := New(Config{Enabled: false, Path: dir}, zerolog.Nop())
	r.Record([]byte{65, 49, 10}, false, vehicle.New())

	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.False(t, r.IsEnabled())

	r.SetEnabled(true)
	assert.True(t, r.IsEnabled())
	r.Record([]byte{65, 49, 10}, false, vehicle.New())
	r.SetEnabled(false)
	assert.Len(t, readCSV(t, dir), 2)
}

func TestRecordRotates(t *testing.T) {
	dir := t.TempDir()
	r := New(Config{Enabled: true, Path: dir}, zerolog.Nop())
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return ts }

	r.Record([]byte{65, 49, 10}, false, vehicle.New())
	r.rows = maxRowsPerFile
	ts = ts.Add(time.Second)
	r.Record([]byte{65, 48, 10}, false, vehicle.New())
	r.Close()

	files, err := filepath.Glob(filepath.Join(dir, "komsi_*.csv"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
