package review

import (
	genai "google.golang.org/genai"

	"github.com/thywilljoshua/slidecheck/internal/finding"
)

// InitialSchema constrains the first pass to an array of findings.
func InitialSchema() *genai.Schema {
	categories := make([]string, 0, len(finding.Categories))
	for _, c := range finding.Categories {
		categories = append(categories, string(c))
	}
	corrections := make([]string, 0, len(finding.CorrectionTypes))
	for _, c := range finding.CorrectionTypes {
		corrections = append(corrections, string(c))
	}

	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"slideNumber": {
					Type:        genai.TypeInteger,
					Description: "指摘事項が該当するスライドの番号（1始まり）。",
				},
				"category": {
					Type:        genai.TypeString,
					Enum:        categories,
					Description: "指摘事項のカテゴリ（'誤植', '表現', '出典'のいずれか）。",
				},
				"basis": {
					Type:        genai.TypeString,
					Description: "指摘の根拠となるルール番号。該当なしの場合は空文字列。",
				},
				"issue": {
					Type:        genai.TypeString,
					Description: "ルールに抵触する可能性のある具体的な指摘事項。",
				},
				"suggestion": {
					Type:        genai.TypeString,
					Description: "指摘事項に対する具体的な改善案や書き換えの提案。",
				},
				"correctionType": {
					Type:        genai.TypeString,
					Enum:        corrections,
					Description: "指摘事項の修正の必要度合い。『必須』または『任意』のいずれかを指定。",
				},
			},
			PropertyOrdering: []string{"slideNumber", "category", "basis", "issue", "suggestion", "correctionType"},
			Required:         []string{"slideNumber", "category", "basis", "issue", "suggestion"},
		},
	}
}

// LegalSchema constrains the enrichment pass to issue/citation pairs.
func LegalSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"originalIssue": {
					Type:        genai.TypeString,
					Description: "確認対象となった元の指摘事項のテキスト。",
				},
				"legalBasis": {
					Type:        genai.TypeString,
					Description: "薬機法に抵触する場合、参照資料から該当条文（例: '薬機法 第66条 誇大広告等の禁止'）を引用する。該当しない場合は空文字列を返す。",
				},
			},
			PropertyOrdering: []string{"originalIssue", "legalBasis"},
			Required:         []string{"originalIssue", "legalBasis"},
		},
	}
}
