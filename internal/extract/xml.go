package extract

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Encode writes d as XML, preceded by an XML declaration. With pretty set
// the elements are indented by two spaces.
//
// Text bodies are written as character data tokens so line breaks stay
// literal instead of being escaped.
func (d *Document) Encode(w io.Writer, pretty bool) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	if pretty {
		enc.Indent("", "  ")
	}

	root := xml.StartElement{Name: xml.Name{Local: "Document"}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	for _, s := range d.Slides {
		if err := encodeSlide(enc, s); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	return enc.Flush()
}

func encodeSlide(enc *xml.Encoder, s Slide) error {
	start := xml.StartElement{
		Name: xml.Name{Local: "Slide"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "number"}, Value: strconv.Itoa(s.Number)}},
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, n := range s.Nodes {
		var tokens []xml.Token
		switch n := n.(type) {
		case Text:
			el := xml.StartElement{Name: xml.Name{Local: "Text"}}
			tokens = []xml.Token{el, xml.CharData(n.Body), el.End()}
		case Image:
			el := xml.StartElement{
				Name: xml.Name{Local: "Image"},
				Attr: []xml.Attr{
					{Name: xml.Name{Local: "name"}, Value: n.Name},
					{Name: xml.Name{Local: "caption"}, Value: n.Caption},
				},
			}
			tokens = []xml.Token{el, el.End()}
		default:
			return fmt.Errorf("unknown node type %T", n)
		}
		for _, tok := range tokens {
			if err := enc.EncodeToken(tok); err != nil {
				return err
			}
		}
	}
	return enc.EncodeToken(start.End())
}

// XML returns d serialized as a string.
func (d *Document) XML(pretty bool) (string, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf, pretty); err != nil {
		return "", fmt.Errorf("encoding XML: %w", err)
	}
	return buf.String(), nil
}

// SlideNumbers scans an extracted XML document and returns the number
// attribute of every Slide element in document order.
func SlideNumbers(doc string) ([]int, error) {
	dec := xml.NewDecoder(strings.NewReader(doc))
	var out []int
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("XML parse error: %w", err)
		}
		el, ok := tok.(xml.StartElement)
		if !ok || el.Name.Local != "Slide" {
			continue
		}
		raw := attrValue(el.Attr, "number")
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("slide number %q: %w", raw, err)
		}
		out = append(out, n)
	}
}

func attrValue(attrs []xml.Attr, local string) string {
	for _, a := range attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
