package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/qbimport/internal/core"
)

type outputFormat string

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

func parseFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case formatText, formatJSON, formatYAML:
		return f, nil
	case "yml":
		return formatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// writeReport renders the final run report.
func writeReport(w io.Writer, r *core.Result, format outputFormat) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeText(w, r)
	}
}

func writeText(w io.Writer, r *core.Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "File:     %s\n", r.FileName)
	fmt.Fprintf(&b, "Run:      %s\n", r.RunID)
	fmt.Fprintf(&b, "Phase:    %s\n", r.Phase)
	fmt.Fprintf(&b, "Rows:     %d (%d imported, %d failed)\n", r.Total, r.Success, r.Failed)

	created := make([]string, 0, len(core.Kinds))
	for _, kind := range core.Kinds {
		created = append(created, fmt.Sprintf("%s=%d", kind, r.Created[kind]))
	}
	fmt.Fprintf(&b, "Created:  %s\n", strings.Join(created, " "))
	fmt.Fprintf(&b, "Duration: %s\n", r.Duration.Round(time.Millisecond))

	for _, warn := range r.Warnings {
		fmt.Fprintf(&b, "Warning:  %s\n", warn)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "Error:    %s\n", r.Error)
	}
	if len(r.Errors) > 0 {
		b.WriteString("Errors:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "  %s\n", e)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// progressPrinter writes one line per processed row.
func progressPrinter(w io.Writer) core.ProgressCallback {
	last := -1
	return func(p core.Progress) {
		if p.Phase != core.PhaseProcessing || p.Processed() == last {
			return
		}
		last = p.Processed()
		fmt.Fprintf(w, "[%3d%%] %d/%d rows (%d failed)\n", p.Percent(), p.Processed(), p.Total, p.Failed)
	}
}
