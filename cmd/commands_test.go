package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/plannr/internal/export"
)

const eventsJSON = `[
	{"title":"Midterm Exam","date":"2025-05-01","type":"exam","description":"Covers chapters 1-5"},
	{"title":"HW1","date":"2025-04-15","type":"homework","description":""}
]`

func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExportCmd_CSVFromStdin(t *testing.T) {
	out, err := execute(t, newExportCmd(), eventsJSON, "--in", "-", "--format", "csv")
	require.NoError(t, err)
	assert.Equal(t,
		"Title,Date,Type,Description\nMidterm Exam,2025-05-01,exam,Covers chapters 1-5\nHW1,2025-04-15,homework,",
		out)
}

func TestExportCmd_ICSToFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "events.json")
	outPath := filepath.Join(dir, "events.ics")
	require.NoError(t, os.WriteFile(in, []byte(`{"events":`+eventsJSON+`}`), 0o600))

	_, err := execute(t, newExportCmd(), "", "--in", in, "--format", "ics", "--out", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "BEGIN:VCALENDAR"))
	assert.Equal(t, 2, strings.Count(string(data), "BEGIN:VEVENT"))
}

func TestExportCmd_Errors(t *testing.T) {
	_, err := execute(t, newExportCmd(), eventsJSON, "--format", "pdf")
	assert.ErrorIs(t, err, export.ErrUnsupportedFormat)

	_, err = execute(t, newExportCmd(), `[]`, "--format", "ics")
	assert.ErrorIs(t, err, export.ErrNoEvents)

	_, err = execute(t, newExportCmd(), `{}`, "--format", "ics")
	assert.ErrorIs(t, err, export.ErrNoEvents)

	_, err = execute(t, newExportCmd(), `[{"title":"x","date":"2025-02-30","type":"exam"}]`, "--format", "ics")
	assert.Error(t, err)

	_, err = execute(t, newExportCmd(), "", "--in", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestUsersCmd(t *testing.T) {
	t.Setenv("PLANNR_DB_DSN", "file:"+filepath.Join(t.TempDir(), "plannr.db"))
	t.Setenv("PLANNR_LOG_LEVEL", "error")

	out, err := execute(t, newUsersCmd(), "", "create", "ada@example.edu")
	require.NoError(t, err)
	assert.Contains(t, out, "user ada@example.edu created")

	_, err = execute(t, newUsersCmd(), "", "create", "ada@example.edu")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	out, err = execute(t, newUsersCmd(), "", "remove", "ada@example.edu")
	require.NoError(t, err)
	assert.Contains(t, out, "user ada@example.edu removed")

	_, err = execute(t, newUsersCmd(), "", "remove", "ada@example.edu")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMigrateCmd(t *testing.T) {
	t.Setenv("PLANNR_DB_DSN", "file:"+filepath.Join(t.TempDir(), "plannr.db"))
	t.Setenv("PLANNR_LOG_LEVEL", "error")

	out, err := execute(t, newMigrateCmd(), "")
	require.NoError(t, err)
	assert.Equal(t, "database schema at version 1\n", out)
}

func TestVersionCmd(t *testing.T) {
	SetVersion("1.2.3")
	t.Cleanup(func() { SetVersion("dev") })

	out, err := execute(t, newVersionCmd(), "")
	require.NoError(t, err)
	assert.Equal(t, "plannr version 1.2.3\n", out)
}
