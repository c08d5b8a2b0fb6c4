package extract

// Document is the structured text representation of a slide deck.
type Document struct {
	Slides []Slide
}

// Slide holds the content nodes of one slide in shape order.
type Slide struct {
	Number int
	Nodes  []Node
}

// Node is a content item on a slide: Text or Image.
type Node interface {
	isNode()
}

// Text is the joined, trimmed, non-empty lines of one shape.
type Text struct {
	Body string
}

func (Text) isNode() {}

// Image is a picture shape. Name is "image" plus the media extension, or
// just "image" when the media part cannot be resolved. Caption carries the
// picture's alt text.
type Image struct {
	Name    string
	Caption string
}

func (Image) isNode() {}

// SlideNumbers returns the slide numbers of d in order.
func (d *Document) SlideNumbers() []int {
	out := make([]int, 0, len(d.Slides))
	for _, s := range d.Slides {
		out = append(out, s.Number)
	}
	return out
}
