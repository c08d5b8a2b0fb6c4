package review

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/thywilljoshua/slidecheck/internal/ai"
	"github.com/thywilljoshua/slidecheck/internal/finding"
)

// MockModel is recorded as the model of analyses produced in mock mode.
const MockModel = "mock"

var sampleFindings = []finding.Finding{
	{
		SlideNumber:    1,
		Category:       finding.CategoryTypo,
		Basis:          "1",
		Issue:          "「こんな事をる患者さんがよくいます」という表現は、助詞の使い方に誤りがあるように見受けられます。読者に違和感を与える可能性がございます。",
		Suggestion:     "「こんなことを言う患者さんがよくいます」など、自然な表現へご修正いただけますと幸いです。",
		CorrectionType: finding.CorrectionRequired,
	},
	{
		SlideNumber:    1,
		Category:       finding.CategoryExpression,
		Basis:          "2",
		Issue:          "「オングリザという糖尿病治療剤がありますよ」という表現について、製品名の直接的な記載は薬機法上、広告と見なされる可能性がございます。",
		Suggestion:     "「サキサグリプチン（DPP-4阻害薬）」など一般名でのご記載を推奨いたします。対象読者が医療関係者であることも明示いただけますと安心です。",
		CorrectionType: finding.CorrectionRequired,
	},
	{
		SlideNumber:    1,
		Category:       finding.CategoryCitation,
		Basis:          "7",
		Issue:          "本スライドには出典情報や作成者名の記載が確認できませんでした。",
		Suggestion:     "承認時評価資料、添付文書、学術論文などの出典を明記いただき、加えて作成者名や所属もご記載いただけますと、資料の信頼性が一層高まるかと存じます。",
		CorrectionType: finding.CorrectionOptional,
	},
	{
		SlideNumber:    2,
		Category:       finding.CategoryTypo,
		Basis:          "1",
		Issue:          "「C18He25N3O2・H2O」との表記について、元素記号に誤りがあるようでございます。",
		Suggestion:     "正しくは「C18H25N3O2・H2O」かと存じます。ご確認のうえ、ご修正をお願いいたします。",
		CorrectionType: finding.CorrectionRequired,
	},
	{
		SlideNumber:    2,
		Category:       finding.CategoryExpression,
		Basis:          "3",
		Issue:          "「軽度の肥満であっても 糖尿病が絶対に発症してしまう」という表現は、過度に不安を与える可能性がございます。",
		Suggestion:     "「軽度の肥満でも発症リスクが高まる可能性がある」などの表現に見直し、あわせて根拠となる文献をご提示いただけますと説得力が増すかと存じます。",
		CorrectionType: finding.CorrectionRequired,
	},
	{
		SlideNumber:    2,
		Category:       finding.CategoryExpression,
		Basis:          "4",
		Issue:          "「血糖値が効果的にコントロールされる」という表現は、効果を断定的に印象付ける恐れがございます。",
		Suggestion:     "「血糖コントロールの改善が期待される」や「食事・運動療法と併用することで効果が見込まれる」といった、慎重な表現への修正をお勧めいたします。",
		CorrectionType: finding.CorrectionOptional,
	},
	{
		SlideNumber:    2,
		Category:       finding.CategoryCitation,
		Basis:          "7",
		Issue:          "本スライドにも、出典や作成者の記載が見受けられませんでした。",
		Suggestion:     "添付文書やPMDA資料、査読付き論文など、信頼性の高い出典を明記いただくことで、資料の正確性がより一層高まるものと存じます。",
		CorrectionType: finding.CorrectionOptional,
	},
}

var sampleCitations = map[string]string{
	sampleFindings[1].Issue: "薬機法 第66条 誇大広告等の禁止",
	sampleFindings[5].Issue: "薬機法 第66条 誇大広告等の禁止",
}

var slideAttr = regexp.MustCompile(`<Slide number="(\d+)"`)

// Mock is a generator that answers both passes with fixed sample findings.
// Findings for slides absent from the prompt's document are left out.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (*Mock) Model() string { return MockModel }

func (*Mock) Generate(ctx context.Context, req ai.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch req.Name {
	case PassInitial:
		present := make(map[int]bool)
		for _, m := range slideAttr.FindAllStringSubmatch(req.Prompt, -1) {
			if n, err := strconv.Atoi(m[1]); err == nil {
				present[n] = true
			}
		}
		out := []finding.Finding{}
		for _, f := range sampleFindings {
			if present[f.SlideNumber] {
				out = append(out, f)
			}
		}
		return marshal(out)
	case PassLegal:
		out := []finding.LegalBasis{}
		for _, f := range sampleFindings {
			if f.Category == finding.CategoryExpression {
				out = append(out, finding.LegalBasis{OriginalIssue: f.Issue, LegalBasis: sampleCitations[f.Issue]})
			}
		}
		return marshal(out)
	default:
		return "", fmt.Errorf("mock: unknown request %q", req.Name)
	}
}

func marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
