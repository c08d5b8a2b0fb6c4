// Package report renders findings for export and summarizes manual edits.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/thywilljoshua/slidecheck/internal/finding"
)

// Column labels, in export order.
const (
	LabelSlide      = "スライド番号"
	LabelCategory   = "カテゴリ"
	LabelBasis      = "根拠"
	LabelIssue      = "指摘事項"
	LabelSuggestion = "改善案"
	LabelCorrection = "修正の種類"
)

// Formats lists the supported export formats.
var Formats = []string{"json", "csv", "md", "text"}

// Renderer writes a list of findings in one export format.
type Renderer interface {
	Render(w io.Writer, findings []finding.Finding) error
	ContentType() string
	Ext() string
}

// NewRenderer returns the renderer for format. The basis column is only
// written when includeBasis is set; JSON output always carries it.
func NewRenderer(format string, includeBasis bool) (Renderer, error) {
	switch format {
	case "json", "":
		return jsonRenderer{}, nil
	case "csv":
		return csvRenderer{includeBasis: includeBasis}, nil
	case "md", "markdown":
		return tableRenderer{includeBasis: includeBasis, markdown: true}, nil
	case "text", "txt":
		return tableRenderer{includeBasis: includeBasis}, nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

func header(includeBasis bool) []string {
	if includeBasis {
		return []string{LabelSlide, LabelCategory, LabelBasis, LabelIssue, LabelSuggestion, LabelCorrection}
	}
	return []string{LabelSlide, LabelCategory, LabelIssue, LabelSuggestion, LabelCorrection}
}

func record(f finding.Finding, includeBasis bool) []string {
	f = f.WithDefaults()
	if includeBasis {
		return []string{strconv.Itoa(f.SlideNumber), string(f.Category), f.Basis, f.Issue, f.Suggestion, string(f.CorrectionType)}
	}
	return []string{strconv.Itoa(f.SlideNumber), string(f.Category), f.Issue, f.Suggestion, string(f.CorrectionType)}
}

type jsonRenderer struct{}

func (jsonRenderer) Render(w io.Writer, findings []finding.Finding) error {
	if findings == nil {
		findings = []finding.Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(findings)
}

func (jsonRenderer) ContentType() string { return "application/json; charset=utf-8" }
func (jsonRenderer) Ext() string         { return "json" }

// csvRenderer writes RFC 4180 CSV with a UTF-8 byte order mark so
// spreadsheet applications detect the encoding of Japanese text.
type csvRenderer struct {
	includeBasis bool
}

func (r csvRenderer) Render(w io.Writer, findings []finding.Finding) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header(r.includeBasis)); err != nil {
		return err
	}
	for _, f := range findings {
		if err := cw.Write(record(f, r.includeBasis)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (csvRenderer) ContentType() string { return "text/csv; charset=utf-8" }
func (csvRenderer) Ext() string         { return "csv" }

type tableRenderer struct {
	includeBasis bool
	markdown     bool
}

func (r tableRenderer) Render(w io.Writer, findings []finding.Finding) error {
	tw := table.NewWriter()
	tw.AppendHeader(toRow(header(r.includeBasis)))
	for _, f := range findings {
		tw.AppendRow(toRow(record(f, r.includeBasis)))
	}

	var out string
	if r.markdown {
		out = tw.RenderMarkdown()
	} else {
		tw.SetStyle(table.StyleLight)
		tw.Style().Format.Header = text.FormatDefault
		wide := []string{LabelIssue, LabelSuggestion, LabelBasis}
		configs := make([]table.ColumnConfig, 0, len(wide))
		for _, name := range wide {
			configs = append(configs, table.ColumnConfig{Name: name, WidthMax: 40, WidthMaxEnforcer: text.WrapSoft})
		}
		tw.SetColumnConfigs(configs)
		out = tw.Render()
	}
	_, err := io.WriteString(w, out+"\n")
	return err
}

func (r tableRenderer) ContentType() string {
	if r.markdown {
		return "text/markdown; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

func (r tableRenderer) Ext() string {
	if r.markdown {
		return "md"
	}
	return "txt"
}

func toRow(cols []string) table.Row {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	return row
}
