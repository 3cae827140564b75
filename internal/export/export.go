package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/teemow/plannr/internal/events"
)

// Format selects the output encoding.
type Format string

// Supported formats.
const (
	FormatICS Format = "ics"
	FormatCSV Format = "csv"
)

// Export errors.
var (
	ErrNoEvents          = errors.New("no events to export")
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// ParseFormat maps a user supplied selector such as "ICS" or "csv" to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatICS, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: ics, csv)", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the MIME type of the encoded document.
func (f Format) ContentType() string {
	switch f {
	case FormatICS:
		return "text/calendar; charset=utf-8"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// Filename returns the attachment name used for downloads.
func (f Format) Filename() string {
	return "events." + string(f)
}

// Encode renders list in the given format.
func Encode(list []events.Event, format Format) ([]byte, error) {
	if len(list) == 0 {
		return nil, ErrNoEvents
	}

	switch format {
	case FormatICS:
		return EncodeICS(list)
	case FormatCSV:
		return EncodeCSV(list)
	default:
		return nil, fmt.Errorf("%w: %q (supported: ics, csv)", ErrUnsupportedFormat, string(format))
	}
}
