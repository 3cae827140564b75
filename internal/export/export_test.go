package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/plannr/internal/events"
)

func mustEvent(t *testing.T, title, date, kind, description string) events.Event {
	t.Helper()
	ev, err := events.New(title, date, kind, description)
	require.NoError(t, err)
	return ev
}

func sampleEvents(t *testing.T) []events.Event {
	return []events.Event{
		mustEvent(t, "Midterm Exam", "2025-05-01", "exam", "Covers chapters 1-5"),
		mustEvent(t, "HW1", "2025-04-15", "homework", ""),
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("ics")
	require.NoError(t, err)
	assert.Equal(t, FormatICS, f)

	f, err = ParseFormat("CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = ParseFormat("")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFormatMetadata(t *testing.T) {
	assert.Equal(t, "text/calendar; charset=utf-8", FormatICS.ContentType())
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
	assert.Equal(t, "events.ics", FormatICS.Filename())
	assert.Equal(t, "events.csv", FormatCSV.Filename())
}

func TestEncode_Errors(t *testing.T) {
	_, err := Encode(nil, FormatICS)
	assert.ErrorIs(t, err, ErrNoEvents)

	_, err = Encode([]events.Event{}, FormatCSV)
	assert.ErrorIs(t, err, ErrNoEvents)

	_, err = Encode(sampleEvents(t), Format("pdf"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestEncodeCSV(t *testing.T) {
	out, err := Encode(sampleEvents(t), FormatCSV)
	require.NoError(t, err)

	want := "Title,Date,Type,Description\n" +
		"Midterm Exam,2025-05-01,exam,Covers chapters 1-5\n" +
		"HW1,2025-04-15,homework,"
	assert.Equal(t, want, string(out))
}

func TestEncodeCSV_Quoting(t *testing.T) {
	list := []events.Event{
		mustEvent(t, `Essay, "Draft"`, "2025-03-10", "other", "line one\nline two"),
	}

	out, err := EncodeCSV(list)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, CSVHeader, records[0])
	assert.Equal(t, []string{`Essay, "Draft"`, "2025-03-10", "other", "line one\nline two"}, records[1])
}

func TestEncodeCSV_LineCount(t *testing.T) {
	var list []events.Event
	for _, d := range []string{"2025-01-01", "2025-01-02", "2025-01-03", "2025-01-04"} {
		list = append(list, mustEvent(t, "Quiz", d, "quiz", ""))
	}

	out, err := EncodeCSV(list)
	require.NoError(t, err)
	assert.Len(t, strings.Split(string(out), "\n"), len(list)+1)
}

func TestEncodeICS(t *testing.T) {
	out, err := Encode(sampleEvents(t), FormatICS)
	require.NoError(t, err)

	text := string(out)
	assert.Equal(t, 2, strings.Count(text, "BEGIN:VEVENT"))
	assert.Contains(t, text, "PRODID:"+ProductID)
	assert.Less(t, strings.Index(text, "SUMMARY:Midterm Exam"), strings.Index(text, "SUMMARY:HW1"))

	cal, err := ical.ParseCalendar(bytes.NewReader(out))
	require.NoError(t, err)

	vevents := cal.Events()
	require.Len(t, vevents, 2)

	first := vevents[0]
	assert.Equal(t, "Midterm Exam", first.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "Covers chapters 1-5", first.GetProperty(ical.ComponentPropertyDescription).Value)
	assert.Equal(t, "exam", first.GetProperty(ical.ComponentPropertyCategories).Value)
	assert.Equal(t, "20250501", first.GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20250502", first.GetProperty(ical.ComponentPropertyDtEnd).Value)

	second := vevents[1]
	assert.Equal(t, "HW1", second.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "20250415", second.GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.NotEqual(t, first.Id(), second.Id())
}

func TestEncodeICS_WindowsLineEndings(t *testing.T) {
	ev := mustEvent(t, "Lab Report", "2025-03-10", "lab", "Read ch. 1\r\nSubmit online\rBring goggles")
	out, err := EncodeICS([]events.Event{ev})
	require.NoError(t, err)

	text := string(out)
	assert.NotContains(t, strings.ReplaceAll(text, "\r\n", ""), "\r")
	assert.Contains(t, text, `DESCRIPTION:Read ch. 1\nSubmit online\nBring goggles`)
}

func TestEncodeICS_Deterministic(t *testing.T) {
	a, err := EncodeICS(sampleEvents(t))
	require.NoError(t, err)
	b, err := EncodeICS(sampleEvents(t))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncodeICS_MonthEnd(t *testing.T) {
	out, err := EncodeICS([]events.Event{mustEvent(t, "Final", "2025-12-31", "exam", "")})
	require.NoError(t, err)

	cal, err := ical.ParseCalendar(bytes.NewReader(out))
	require.NoError(t, err)
	require.Len(t, cal.Events(), 1)
	assert.Equal(t, "20260101", cal.Events()[0].GetProperty(ical.ComponentPropertyDtEnd).Value)
}
