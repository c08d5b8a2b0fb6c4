package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

const (
	presentationPart = "ppt/presentation.xml"
	maxPartSize      = 64 << 20
)

// xmlNode is a namespace-agnostic view of an OOXML element tree. Matching
// is done on local names only.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []xmlNode  `xml:",any"`
	Text     string     `xml:",chardata"`
}

func (n *xmlNode) child(local string) *xmlNode {
	for i := range n.Children {
		if n.Children[i].XMLName.Local == local {
			return &n.Children[i]
		}
	}
	return nil
}

// find descends through the named children in order.
func (n *xmlNode) find(names ...string) *xmlNode {
	cur := n
	for _, p := range names {
		if cur = cur.child(p); cur == nil {
			return nil
		}
	}
	return cur
}

// descendant returns the first element named local in depth-first order.
func (n *xmlNode) descendant(local string) *xmlNode {
	for i := range n.Children {
		c := &n.Children[i]
		if c.XMLName.Local == local {
			return c
		}
		if d := c.descendant(local); d != nil {
			return d
		}
	}
	return nil
}

func (n *xmlNode) attr(local string) string {
	return attrValue(n.Attrs, local)
}

type relationship struct {
	ID         string `xml:"Id,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type relationships struct {
	Items []relationship `xml:"Relationship"`
}

type presentationXML struct {
	SlideIDs []struct {
		Attrs []xml.Attr `xml:",any,attr"`
	} `xml:"sldIdLst>sldId"`
}

type pptxReader struct {
	files map[string]*zip.File
}

func readPPTX(ra io.ReaderAt, size int64) (*Document, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	r := &pptxReader{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		r.files[f.Name] = f
	}
	if _, ok := r.files[presentationPart]; !ok {
		return nil, fmt.Errorf("%w: archive has no %s", ErrUnsupportedFormat, presentationPart)
	}

	parts, err := r.slideParts()
	if err != nil {
		return nil, err
	}
	doc := &Document{Slides: make([]Slide, 0, len(parts))}
	for i, part := range parts {
		nodes, err := r.readSlide(part)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", i+1, err)
		}
		doc.Slides = append(doc.Slides, Slide{Number: i + 1, Nodes: nodes})
	}
	return doc, nil
}

// slideParts resolves the slide id list of the presentation to part names
// in presentation order.
func (r *pptxReader) slideParts() ([]string, error) {
	var pres presentationXML
	if err := r.decode(presentationPart, &pres); err != nil {
		return nil, err
	}
	rels, err := r.rels(presentationPart)
	if err != nil {
		return nil, err
	}
	parts := make([]string, 0, len(pres.SlideIDs))
	for _, s := range pres.SlideIDs {
		// r:id is the only attribute named "id" in the relationships namespace.
		var rid string
		for _, a := range s.Attrs {
			if a.Name.Local == "id" && a.Name.Space != "" {
				rid = a.Value
			}
		}
		target, ok := rels[rid]
		if !ok {
			return nil, fmt.Errorf("slide relationship %q not found", rid)
		}
		parts = append(parts, target)
	}
	return parts, nil
}

// rels loads the relationships of part, keyed by id, with targets resolved
// to archive paths. A part without a relationships file has none.
func (r *pptxReader) rels(part string) (map[string]string, error) {
	name := path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
	out := make(map[string]string)
	if _, ok := r.files[name]; !ok {
		return out, nil
	}
	var doc relationships
	if err := r.decode(name, &doc); err != nil {
		return nil, err
	}
	for _, rel := range doc.Items {
		if rel.TargetMode == "External" {
			continue
		}
		out[rel.ID] = resolveTarget(part, rel.Target)
	}
	return out, nil
}

func resolveTarget(base, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(base), target)
}

func (r *pptxReader) decode(name string, v any) error {
	f, ok := r.files[name]
	if !ok {
		return fmt.Errorf("part %s not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	defer rc.Close()
	if err := xml.NewDecoder(io.LimitReader(rc, maxPartSize)).Decode(v); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

func (r *pptxReader) readSlide(part string) ([]Node, error) {
	var root xmlNode
	if err := r.decode(part, &root); err != nil {
		return nil, err
	}
	rels, err := r.rels(part)
	if err != nil {
		return nil, err
	}
	tree := root.find("cSld", "spTree")
	if tree == nil {
		return nil, nil
	}
	w := shapeWalker{rels: rels}
	w.walk(tree.Children)
	return w.nodes, nil
}

type shapeWalker struct {
	rels  map[string]string
	nodes []Node
}

func (w *shapeWalker) walk(shapes []xmlNode) {
	for i := range shapes {
		s := &shapes[i]
		switch s.XMLName.Local {
		case "sp":
			if body := s.child("txBody"); body != nil {
				w.addText(textBody(body))
			}
		case "pic":
			w.nodes = append(w.nodes, w.image(s))
		case "grpSp":
			w.walk(s.Children)
		case "graphicFrame":
			if tbl := s.descendant("tbl"); tbl != nil {
				w.addText(tableText(tbl))
			}
		case "AlternateContent":
			if choice := s.child("Choice"); choice != nil {
				w.walk(choice.Children)
			}
		}
	}
}

func (w *shapeWalker) addText(raw string) {
	if body := cleanLines(raw); body != "" {
		w.nodes = append(w.nodes, Text{Body: body})
	}
}

func (w *shapeWalker) image(pic *xmlNode) Image {
	img := Image{Name: "image"}
	if nv := pic.find("nvPicPr", "cNvPr"); nv != nil {
		img.Caption = nv.attr("descr")
	}
	if blip := pic.find("blipFill", "blip"); blip != nil {
		if target, ok := w.rels[blip.attr("embed")]; ok {
			if ext := path.Ext(target); ext != "" {
				img.Name = "image" + strings.ToLower(ext)
			}
		}
	}
	return img
}

// textBody flattens a txBody into paragraphs separated by newlines. Line
// breaks inside a paragraph also become newlines.
func textBody(body *xmlNode) string {
	var paras []string
	for i := range body.Children {
		p := &body.Children[i]
		if p.XMLName.Local != "p" {
			continue
		}
		var sb strings.Builder
		for j := range p.Children {
			run := &p.Children[j]
			switch run.XMLName.Local {
			case "r", "fld":
				if t := run.child("t"); t != nil {
					sb.WriteString(t.Text)
				}
			case "br":
				sb.WriteByte('\n')
			}
		}
		paras = append(paras, sb.String())
	}
	return strings.Join(paras, "\n")
}

func tableText(tbl *xmlNode) string {
	var cells []string
	for i := range tbl.Children {
		tr := &tbl.Children[i]
		if tr.XMLName.Local != "tr" {
			continue
		}
		for j := range tr.Children {
			tc := &tr.Children[j]
			if tc.XMLName.Local != "tc" {
				continue
			}
			if body := tc.child("txBody"); body != nil {
				cells = append(cells, textBody(body))
			}
		}
	}
	return strings.Join(cells, "\n")
}

// cleanLines trims every line, drops blank ones and joins the rest with
// newlines. Vertical tabs count as line breaks.
func cleanLines(s string) string {
	s = strings.ReplaceAll(s, "\v", "\n")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
