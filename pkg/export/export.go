package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"time"

	"github.com/pitwall/vtms/core/telemetry"
)

// WriteJSON writes the telemetry records to w in JSON format.
func WriteJSON(w io.Writer, recs []telemetry.Record) error {
	type row struct {
		Source string `json:"source"`
		Name   string `json:"name"`
		Value  string `json:"value"`
		Time   string `json:"time"`
	}
	rows := make([]row, len(recs))
	for i, r := range recs {
		rows[i] = row{Source: r.Source, Name: r.Name, Value: r.Value, Time: r.Time.Format(time.RFC3339Nano)}
	}
	enc := json.NewEncoder(w)
	return enc.Encode(rows)
}

// WriteCSV writes the telemetry records to w in CSV format with a header row.
func WriteCSV(w io.Writer, recs []telemetry.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"source", "name", "value", "time"}); err != nil {
		return err
	}
	for _, r := range recs {
		rec := []string{r.Source, r.Name, r.Value, r.Time.Format(time.RFC3339Nano)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
