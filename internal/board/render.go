package board

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q", raw)
	}
}

// Render writes b to w in the given format.
func Render(w io.Writer, b *Board, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(b); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable, "":
		return renderTable(w, b)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func renderTable(w io.Writer, b *Board) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCOMPANY\tLOCATION\tSCORE\tTIER\tSKILLS")
	for _, e := range b.Entries {
		score := "-"
		if e.Scored {
			score = fmt.Sprintf("%d", e.Score)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Job.ID, e.Job.Title, e.Job.Company, e.Job.Location, score, e.Tier, e.SkillsPreview())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if b.ResumeID == "" {
		_, err := fmt.Fprintln(w, "\nNo document submitted yet: scores are pending. Run `clarity upload <file>`.")
		return err
	}
	return nil
}
