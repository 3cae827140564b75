package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/plannr/internal/events"
	"github.com/teemow/plannr/internal/export"
)

func newExportCmd() *cobra.Command {
	var (
		inPath  string
		outPath string
		format  string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an event list as ICS or CSV",
		Long: `Render an event list offline, without signing in.

The input is JSON: either a list of events or an object with an "events"
list, each event being {"title","date","type","description"}. Use "-" to
read from standard input.`,
		Example: `  plannr export --in events.json --format ics --out events.ics
  cat events.json | plannr export --in - --format csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			data, err := readInput(cmd, inPath)
			if err != nil {
				return err
			}
			list, err := decodeEventFile(data)
			if err != nil {
				return err
			}

			out, err := export.Encode(list, f)
			if err != nil {
				return err
			}

			if outPath == "" || outPath == "-" {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			if err := os.WriteFile(outPath, out, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d events to %s\n", len(list), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&inPath, "in", "-", "Input JSON file, or - for standard input")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file (default: standard output)")
	cmd.Flags().StringVar(&format, "format", string(export.FormatICS), "Output format: ics or csv")

	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// decodeEventFile accepts a bare event list or an {"events": [...]} object.
func decodeEventFile(data []byte) ([]events.Event, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return events.DecodeList(data)
	}

	var wrapper struct {
		Events json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	if len(wrapper.Events) == 0 {
		return nil, export.ErrNoEvents
	}
	return events.DecodeList(wrapper.Events)
}
