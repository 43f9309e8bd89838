package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/tbourn/go-podcast-backend/internal/domain"
)

// render writes v as JSON or YAML, or calls text for the default format.
func render(w io.Writer, format string, v any, text func(io.Writer) error) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		// Round-trip through JSON so YAML keys match the API's field names.
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return text(w)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func writeSummary(w io.Writer, p *domain.PodcastSummary) error {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintf(tw, "Code:\t%s\n", p.Code)
	fmt.Fprintf(tw, "City:\t%s\n", p.CityName)
	fmt.Fprintf(tw, "Status:\t%s\n", p.Status)
	if t := deref(p.Title); t != "" {
		fmt.Fprintf(tw, "Title:\t%s\n", t)
	}
	if u := deref(p.AudioURL); u != "" {
		fmt.Fprintf(tw, "Audio:\t%s\n", u)
	}
	if e := deref(p.ErrorMessage); e != "" {
		fmt.Fprintf(tw, "Error:\t%s\n", e)
	}
	fmt.Fprintf(tw, "Updated:\t%s\n", p.UpdatedAt.Format("2006-01-02 15:04:05"))
	return tw.Flush()
}

func writeRecord(w io.Writer, p *domain.Podcast) error {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintf(tw, "Code:\t%s\n", p.Code)
	fmt.Fprintf(tw, "City:\t%s\n", p.CityName)
	fmt.Fprintf(tw, "Language:\t%s\n", p.Language)
	fmt.Fprintf(tw, "Length:\t%g min\n", p.Length)
	fmt.Fprintf(tw, "Status:\t%s\n", p.Status)
	if t := deref(p.Title); t != "" {
		fmt.Fprintf(tw, "Title:\t%s\n", t)
	}
	if d := deref(p.Description); d != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", d)
	}
	if u := deref(p.AudioURL); u != "" {
		fmt.Fprintf(tw, "Audio:\t%s\n", u)
	}
	if e := deref(p.ErrorMessage); e != "" {
		fmt.Fprintf(tw, "Error:\t%s\n", e)
	}
	for i, ref := range p.References {
		fmt.Fprintf(tw, "Ref %d:\t%s (%s)\n", i+1, ref.Title, ref.URL)
	}
	fmt.Fprintf(tw, "Created:\t%s\n", p.CreatedAt.Format("2006-01-02 15:04:05"))
	return tw.Flush()
}

func writeTable(w io.Writer, items []domain.Podcast) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No podcasts found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tCITY\tLANGUAGE\tLENGTH\tSTATUS\tCREATED")
	for _, p := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%s\t%s\n",
			p.Code, p.CityName, p.Language, p.Length, p.Status, p.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
