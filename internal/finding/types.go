// Package finding defines the compliance findings produced by the review
// pipeline and the parsing rules applied to raw model output.
package finding

// Category classifies a finding. The model is constrained to the three
// values below; manual edits may store any non-empty string.
type Category string

const (
	CategoryTypo       Category = "誤植"
	CategoryExpression Category = "表現"
	CategoryCitation   Category = "出典"
)

// Categories lists the categories the model may return, in prompt order.
var Categories = []Category{CategoryTypo, CategoryExpression, CategoryCitation}

// IsKnownCategory reports whether c is one of the model-facing categories.
func IsKnownCategory(c Category) bool {
	switch c {
	case CategoryTypo, CategoryExpression, CategoryCitation:
		return true
	}
	return false
}

// CorrectionType says how strongly a finding asks for a change.
type CorrectionType string

const (
	CorrectionRequired CorrectionType = "必須"
	CorrectionOptional CorrectionType = "任意"
)

// CorrectionTypes lists the valid correction types.
var CorrectionTypes = []CorrectionType{CorrectionRequired, CorrectionOptional}

// IsValidCorrectionType reports whether t is required, optional, or unset.
func IsValidCorrectionType(t CorrectionType) bool {
	switch t {
	case "", CorrectionRequired, CorrectionOptional:
		return true
	}
	return false
}

// Finding is a single compliance issue identified on one slide.
type Finding struct {
	SlideNumber    int            `json:"slideNumber"`
	Category       Category       `json:"category"`
	Basis          string         `json:"basis"`
	Issue          string         `json:"issue"`
	Suggestion     string         `json:"suggestion"`
	CorrectionType CorrectionType `json:"correctionType,omitempty"`
}

// WithDefaults returns f with an unset correction type filled in as optional.
func (f Finding) WithDefaults() Finding {
	if f.CorrectionType == "" {
		f.CorrectionType = CorrectionOptional
	}
	return f
}

// LegalBasis pairs an expression issue with the statute it may violate.
// An empty LegalBasis means no article applies.
type LegalBasis struct {
	OriginalIssue string `json:"originalIssue"`
	LegalBasis    string `json:"legalBasis"`
}
