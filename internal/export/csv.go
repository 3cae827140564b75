package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/teemow/plannr/internal/events"
)

// CSVHeader is the fixed first row of every CSV export.
var CSVHeader = []string{"Title", "Date", "Type", "Description"}

// EncodeCSV renders list as CSV: the header row followed by one row per
// event. Rows are separated by "\n" and the document has no trailing newline,
// so N events always produce exactly N+1 lines.
func EncodeCSV(list []events.Event) ([]byte, error) {
	if len(list) == 0 {
		return nil, ErrNoEvents
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(CSVHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for i, ev := range list {
		row := []string{ev.Title, ev.DateString(), string(ev.Kind), ev.Description}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
