package report

import (
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/thywilljoshua/slidecheck/internal/finding"
)

// Change describes one edited field of a finding.
type Change struct {
	Field  string `json:"field"`
	Label  string `json:"label"`
	Before any    `json:"before"`
	After  any    `json:"after"`
	Diff   []Edit `json:"diff,omitempty"`
}

// Edit is one span of a character-level text diff.
type Edit struct {
	Op   string `json:"op"` // equal, insert or delete
	Text string `json:"text"`
}

// Changes lists the fields that differ between two versions of a finding,
// in column order. Text fields carry a semantic diff.
func Changes(before, after finding.Finding) []Change {
	var out []Change
	if before.SlideNumber != after.SlideNumber {
		out = append(out, Change{Field: "slideNumber", Label: LabelSlide, Before: before.SlideNumber, After: after.SlideNumber})
	}
	texts := []struct {
		field, label string
		before, after string
	}{
		{"category", LabelCategory, string(before.Category), string(after.Category)},
		{"basis", LabelBasis, before.Basis, after.Basis},
		{"issue", LabelIssue, before.Issue, after.Issue},
		{"suggestion", LabelSuggestion, before.Suggestion, after.Suggestion},
		{"correctionType", LabelCorrection, string(before.CorrectionType), string(after.CorrectionType)},
	}
	for _, t := range texts {
		if t.before == t.after {
			continue
		}
		out = append(out, Change{Field: t.field, Label: t.label, Before: t.before, After: t.after, Diff: TextDiff(t.before, t.after)})
	}
	return out
}

// TextDiff computes a semantically cleaned character diff.
func TextDiff(before, after string) []Edit {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false))
	out := make([]Edit, 0, len(diffs))
	for _, d := range diffs {
		var op string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = "insert"
		case diffmatchpatch.DiffDelete:
			op = "delete"
		default:
			op = "equal"
		}
		out = append(out, Edit{Op: op, Text: d.Text})
	}
	return out
}
