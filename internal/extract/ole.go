package extract

import (
	"fmt"
	"io"

	"github.com/richardlehane/mscfb"
)

const legacyStream = "PowerPoint Document"

// inspectOLE classifies a compound file. Binary PowerPoint decks are
// reported as ErrLegacyFormat, anything else as unsupported.
func inspectOLE(ra io.ReaderAt) error {
	doc, err := mscfb.New(ra)
	if err != nil {
		return fmt.Errorf("%w: compound file: %v", ErrUnsupportedFormat, err)
	}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Name == legacyStream {
			return ErrLegacyFormat
		}
	}
	return fmt.Errorf("%w: compound file without a %q stream", ErrUnsupportedFormat, legacyStream)
}
