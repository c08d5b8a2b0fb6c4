package extract

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	rpdf "rsc.io/pdf"
)

// readPDF treats every page of an exported deck as one slide. The page's
// text runs are regrouped into lines by baseline and read left to right.
// Images are not recovered from PDFs.
func readPDF(ra io.ReaderAt, size int64) (doc *Document, err error) {
	// rsc.io/pdf panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("%w: reading PDF: %v", ErrUnsupportedFormat, r)
		}
	}()

	r, err := rpdf.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("%w: opening PDF: %v", ErrUnsupportedFormat, err)
	}
	n := r.NumPage()
	doc = &Document{Slides: make([]Slide, 0, n)}
	for i := 1; i <= n; i++ {
		s := Slide{Number: i}
		p := r.Page(i)
		if !p.V.IsNull() {
			if body := pageText(p.Content().Text); body != "" {
				s.Nodes = append(s.Nodes, Text{Body: body})
			}
		}
		doc.Slides = append(doc.Slides, s)
	}
	return doc, nil
}

func pageText(runs []rpdf.Text) string {
	if len(runs) == 0 {
		return ""
	}
	runs = append([]rpdf.Text(nil), runs...)
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Y != runs[j].Y {
			return runs[i].Y > runs[j].Y
		}
		return runs[i].X < runs[j].X
	})

	var lines []string
	var sb strings.Builder
	lineY := runs[0].Y
	prevEnd := math.Inf(-1)
	for _, t := range runs {
		tol := math.Max(t.FontSize/2, 1)
		if math.Abs(t.Y-lineY) > tol {
			lines = append(lines, sb.String())
			sb.Reset()
			lineY = t.Y
			prevEnd = math.Inf(-1)
		}
		if sb.Len() > 0 && t.X-prevEnd > t.FontSize*0.3 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	lines = append(lines, sb.String())
	return cleanLines(strings.Join(lines, "\n"))
}
