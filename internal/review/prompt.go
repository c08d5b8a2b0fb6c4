package review

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thywilljoshua/slidecheck/internal/finding"
)

const initialPreamble = `あなたは、医療・製薬・ヘルスケア業界向けのスライド資料を専門とする、経験豊富なコンプライアンス・エディターです。
ユーザーが作成したスライド資料の内容が XML で提供されます。あなたは、クライアントである医師や研究者に対して、敬意を払い、プロフェッショナルな姿勢で改善提案を行います。
以下に示す「チェック対象ルール」に準拠しているか厳しくチェックし、違反している可能性のある項目を指摘してください。
`

const correctionGuide = `# 出力トーンと修正種別のガイドライン
指摘事項は「必須」と「任意」の2種類に分類してください。

## 1. 必須 (correctionType: '必須')
- **定義**: ルールに明確に違反しており、コンプライアンス上、修正が強く求められる項目。
%s- **指摘事項 (issue) のトーン**: 「〜という表現は、ルールXに抵触する可能性があります。」のように、根拠を明確に示します。
- **改善案 (suggestion) のトーン**: 「つきましては、〜へのご修正をお願いいたします。」や「〜といった表現への変更をご検討ください。」のように、丁寧かつ明確に修正を促します。

## 2. 任意 (correctionType: '任意')
- **定義**: 厳密な違反ではないものの、誤解を招く可能性があったり、より良い表現への改善が推奨される項目。
%s- **指摘事項 (issue) のトーン**: 「〜という表現は、読み手に意図しない印象を与える可能性があります。」のように、懸念点を柔らかく伝えます。
- **改善案 (suggestion) のトーン**: 「〜のように変更いただくと、より明確になります。」や「〜という表現はいかがでしょうか。」のように、提案ベースの言い方をします。
`

const initialInstructions = `# その他の指示
- category は「誤植」「表現」「出典」のいずれかとしてください。
- 指摘の根拠(basis)には、該当するルール番号を記載してください。判断できない場合は空文字列としてください。
- 指摘事項がないスライドについては、何も出力しないでください。
- slideNumber は、XML の Slide 要素の number 属性と必ず一致させてください。
- 回答は日本語で行い、JSON以外のテキストは絶対に含めないでください。
`

// InitialPrompt builds the first-pass prompt. rs supplies the per-rule
// correction guideline and may be nil when custom rules text is used.
func InitialPrompt(rulesText string, rs *RuleSet, xml string) string {
	var required, optional string
	if rs != nil {
		if l := rs.labels(finding.CorrectionRequired); len(l) > 0 {
			required = "- **対象ルール**: " + strings.Join(l, "、") + " など、規制や社内規定に直結する項目。\n"
		}
		if l := rs.labels(finding.CorrectionOptional); len(l) > 0 {
			optional = "- **対象ルール**: " + strings.Join(l, "、") + " など、表現のニュアンスや推奨事項に関する項目。\n"
		}
	}

	var sb strings.Builder
	sb.WriteString(initialPreamble)
	sb.WriteString("\n# チェック対象ルール\n")
	sb.WriteString(strings.TrimSpace(rulesText))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, correctionGuide, required, optional)
	sb.WriteString("\n")
	sb.WriteString(initialInstructions)
	sb.WriteString("\n---\n以下がスライド資料の XML です。各 Slide 要素が1枚のスライドに対応します。\n\n")
	sb.WriteString(xml)
	sb.WriteString("\n---\n")
	return sb.String()
}

const legalPreamble = `あなたは、日本の薬機法（医薬品、医療機器等の品質、有効性及び安全性の確保等に関する法律）を専門とする法律家アシスタントです。
以下の「指摘事項リスト」にある各項目が、提供された「薬機法 要点サマリー」のいずれかの条文に抵触する可能性があるか判断してください。
`

const legalInstructions = `# 指示
- 「指摘事項リスト」の各項目について、最も関連性の高い薬機法の条文を「薬機法 要点サマリー」から見つけ出してください。
- 結果をJSON配列で返してください。配列の各要素は、元の指摘事項(originalIssue)と、それに対応する薬機法の根拠条文(legalBasis)のペアです。
- originalIssue には、指摘事項リストのテキストを一字一句変えずにそのまま記載してください。
- 根拠条文は「薬機法 第XX条 YYYY」の形式で記載してください。（例: '薬機法 第66条 誇大広告等の禁止'）
- どの条文にも明確に該当しないと判断した場合は、根拠条文を空文字列（""）にしてください。
- JSON以外のテキストは絶対に含めないでください。
`

// LegalPrompt builds the enrichment prompt for the given issues.
func LegalPrompt(lawSummary string, issues []string) (string, error) {
	var list bytes.Buffer
	enc := json.NewEncoder(&list)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(issues); err != nil {
		return "", fmt.Errorf("encoding issues: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(legalPreamble)
	sb.WriteString("\n# 参照資料：薬機法 要点サマリー\n")
	sb.WriteString(strings.TrimSpace(lawSummary))
	sb.WriteString("\n\n# 指摘事項リスト\n")
	sb.Write(bytes.TrimSpace(list.Bytes()))
	sb.WriteString("\n\n")
	sb.WriteString(legalInstructions)
	return sb.String(), nil
}
