package finding

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is wrapped by every validation failure returned from Parse.
var ErrInvalid = errors.New("invalid finding")

// Parse decodes the model's findings and validates each entry. The body may
// be a JSON array, a single finding object, or an empty object (no
// findings). slides lists the slide numbers present in the reviewed
// document; a nil slides slice skips the range check.
//
// Validation is all-or-nothing: the first bad entry fails the whole parse.
func Parse(raw string, slides []int) ([]Finding, error) {
	items, err := decodeList[Finding](raw, func(m map[string]json.RawMessage) bool {
		_, hasSlide := m["slideNumber"]
		_, hasIssue := m["issue"]
		return hasSlide && hasIssue
	})
	if err != nil {
		return nil, err
	}

	present := make(map[int]bool, len(slides))
	for _, n := range slides {
		present[n] = true
	}

	out := make([]Finding, 0, len(items))
	for i, f := range items {
		if err := Validate(f); err != nil {
			return nil, fmt.Errorf("finding[%d]: %w", i, err)
		}
		if slides != nil && !present[f.SlideNumber] {
			return nil, fmt.Errorf("finding[%d]: %w: slide %d is not in the document", i, ErrInvalid, f.SlideNumber)
		}
		out = append(out, f.WithDefaults())
	}
	return out, nil
}

// Validate checks a single finding, for both model output and manual edits.
func Validate(f Finding) error {
	if f.SlideNumber < 1 {
		return fmt.Errorf("%w: slideNumber %d must be ≥ 1", ErrInvalid, f.SlideNumber)
	}
	if strings.TrimSpace(string(f.Category)) == "" {
		return fmt.Errorf("%w: category is required", ErrInvalid)
	}
	if strings.TrimSpace(f.Issue) == "" {
		return fmt.Errorf("%w: issue is required", ErrInvalid)
	}
	if !IsValidCorrectionType(f.CorrectionType) {
		return fmt.Errorf("%w: correctionType %q must be %s or %s", ErrInvalid, f.CorrectionType, CorrectionRequired, CorrectionOptional)
	}
	return nil
}

// ParseLegalBases decodes the enrichment pass response.
func ParseLegalBases(raw string) ([]LegalBasis, error) {
	return decodeList[LegalBasis](raw, func(m map[string]json.RawMessage) bool {
		_, ok := m["originalIssue"]
		return ok
	})
}

// decodeList accepts an array of T, a single T-shaped object (recognized by
// isItem), or an empty object.
func decodeList[T any](raw string, isItem func(map[string]json.RawMessage) bool) ([]T, error) {
	body := bytes.TrimSpace([]byte(raw))
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrInvalid)
	}

	switch body[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("JSON parse failed: %w", err)
		}
		return items, nil
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("JSON parse failed: %w", err)
		}
		if len(fields) == 0 {
			return []T{}, nil
		}
		if !isItem(fields) {
			return nil, fmt.Errorf("%w: unexpected object in response", ErrInvalid)
		}
		var item T
		if err := json.Unmarshal(body, &item); err != nil {
			return nil, fmt.Errorf("JSON parse failed: %w", err)
		}
		return []T{item}, nil
	default:
		return nil, fmt.Errorf("%w: response is not a JSON array", ErrInvalid)
	}
}
