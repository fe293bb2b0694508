package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall/vtms/core/telemetry"
)

func sampleRecords(t *testing.T) []telemetry.Record {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, "2024-05-01T12:00:00Z")
	require.NoError(t, err)
	return []telemetry.Record{
		{Source: telemetry.SourceOBD, Name: "rpm", Value: "4200", Time: ts},
		{Source: telemetry.SourceGPS, Name: "position", Value: "45.1,5.7", Time: ts.Add(time.Second)},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRecords(t)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "source,name,value,time", lines[0])
	assert.Contains(t, lines[1], "obd,rpm,4200")
	assert.Contains(t, lines[2], "gps,position")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleRecords(t)))

	var rows []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "rpm", rows[0]["name"])
	assert.Equal(t, "2024-05-01T12:00:00Z", rows[0]["time"])
	assert.Equal(t, "gps", rows[1]["source"])
}
