// Package extract turns slide decks into the XML document fed to the
// review pipeline.
//
// The output has one Slide element per slide in presentation order. Each
// text-bearing shape becomes a Text element and each picture an Image
// element:
//
//	<?xml version="1.0" encoding="UTF-8"?>
//	<Document>
//	  <Slide number="1">
//	    <Text>Title
//	Subtitle</Text>
//	    <Image name="image1.png" caption="chart"></Image>
//	  </Slide>
//	</Document>
//
// Extraction is deterministic: the same file always yields byte-identical
// XML.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrUnsupportedFormat is returned for input that is not a readable
	// pptx or PDF deck.
	ErrUnsupportedFormat = errors.New("unsupported presentation format")
	// ErrLegacyFormat is returned for binary .ppt decks.
	ErrLegacyFormat = errors.New("legacy .ppt presentations are not supported, save the deck as .pptx")
)

var (
	zipMagic = []byte("PK\x03\x04")
	pdfMagic = []byte("%PDF-")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Read sniffs the format of ra and extracts its slides.
func Read(ra io.ReaderAt, size int64) (*Document, error) {
	head := make([]byte, len(oleMagic))
	n, err := ra.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, zipMagic):
		return readPPTX(ra, size)
	case bytes.HasPrefix(head, pdfMagic):
		return readPDF(ra, size)
	case bytes.HasPrefix(head, oleMagic):
		return nil, inspectOLE(ra)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// ReadBytes extracts slides from an in-memory deck.
func ReadBytes(b []byte) (*Document, error) {
	return Read(bytes.NewReader(b), int64(len(b)))
}

// ReadFile extracts slides from the deck at path. A missing file yields an
// error wrapping fs.ErrNotExist.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return Read(f, st.Size())
}

// ConvertFile extracts the deck at path and serializes it as XML.
func ConvertFile(path string, pretty bool) (string, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return "", err
	}
	return doc.XML(pretty)
}

// ConvertBytes extracts an in-memory deck and serializes it as XML.
func ConvertBytes(b []byte, pretty bool) (string, error) {
	doc, err := ReadBytes(b)
	if err != nil {
		return "", err
	}
	return doc.XML(pretty)
}
