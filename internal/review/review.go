// Package review runs the two-pass compliance review of an extracted deck:
// an initial pass that reports findings against the rules catalog, and an
// optional enrichment pass that attaches 薬機法 citations to expression
// findings.
package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/thywilljoshua/slidecheck/internal/ai"
	"github.com/thywilljoshua/slidecheck/internal/extract"
	"github.com/thywilljoshua/slidecheck/internal/finding"
)

// Request names passed to the generator.
const (
	PassInitial = "initial"
	PassLegal   = "legal"
)

// RulesVersionCustom is recorded when the caller supplied its own rules
// text.
const RulesVersionCustom = "custom"

type Config struct {
	InitialTemperature float32
	LegalTemperature   float32
	LawSummary         string
}

func DefaultConfig() Config {
	return Config{
		InitialTemperature: 0.2,
		LegalTemperature:   0.1,
		LawSummary:         defaultLawSummary,
	}
}

// Options controls a single Analyze call.
type Options struct {
	// Rules replaces the catalog text when non-blank.
	Rules  string
	Enrich bool
}

type Result struct {
	Findings     []finding.Finding
	Model        string
	RulesVersion string
	Enriched     bool
}

type Reviewer struct {
	gen     ai.Generator
	catalog *Catalog
	cfg     Config
	log     *zap.Logger
}

func New(gen ai.Generator, catalog *Catalog, cfg Config, log *zap.Logger) *Reviewer {
	if catalog == nil {
		catalog = NewCatalog(DefaultRuleSet())
	}
	if cfg.LawSummary == "" {
		cfg.LawSummary = defaultLawSummary
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reviewer{gen: gen, catalog: catalog, cfg: cfg, log: log}
}

func (r *Reviewer) Model() string { return r.gen.Model() }

// Analyze reviews an extracted XML document. Any generator or parse
// failure aborts the whole analysis.
func (r *Reviewer) Analyze(ctx context.Context, xml string, opts Options) (*Result, error) {
	start := time.Now()
	slides, err := extract.SlideNumbers(xml)
	if err != nil {
		return nil, fmt.Errorf("reading slide numbers: %w", err)
	}

	res := &Result{Model: r.gen.Model()}
	var rs *RuleSet
	rulesText := strings.TrimSpace(opts.Rules)
	if rulesText == "" {
		rs = r.catalog.Current()
		rulesText = rs.Format()
		res.RulesVersion = rs.Version
	} else {
		res.RulesVersion = RulesVersionCustom
	}

	raw, err := r.gen.Generate(ctx, ai.Request{
		Name:        PassInitial,
		Prompt:      InitialPrompt(rulesText, rs, xml),
		Schema:      InitialSchema(),
		Temperature: r.cfg.InitialTemperature,
	})
	if err != nil {
		return nil, err
	}
	findings, err := finding.Parse(ai.CleanJSON(raw), slides)
	if err != nil {
		return nil, fmt.Errorf("initial analysis: %w", err)
	}

	if opts.Enrich {
		if findings, err = r.Enrich(ctx, findings); err != nil {
			return nil, err
		}
		res.Enriched = true
	}
	res.Findings = findings

	r.log.Info("analysis complete",
		zap.String("model", res.Model),
		zap.String("rules_version", res.RulesVersion),
		zap.Int("slides", len(slides)),
		zap.Int("findings", len(findings)),
		zap.Bool("enriched", res.Enriched),
		zap.Duration("duration", time.Since(start)))
	return res, nil
}

// Enrich runs the legal-basis pass over the expression findings. With no
// expression findings the input is returned without calling the model.
func (r *Reviewer) Enrich(ctx context.Context, findings []finding.Finding) ([]finding.Finding, error) {
	issues := ExpressionIssues(findings)
	if len(issues) == 0 {
		return findings, nil
	}

	prompt, err := LegalPrompt(r.cfg.LawSummary, issues)
	if err != nil {
		return nil, err
	}
	raw, err := r.gen.Generate(ctx, ai.Request{
		Name:        PassLegal,
		Prompt:      prompt,
		Schema:      LegalSchema(),
		Temperature: r.cfg.LegalTemperature,
	})
	if err != nil {
		return nil, err
	}
	bases, err := finding.ParseLegalBases(ai.CleanJSON(raw))
	if err != nil {
		return nil, fmt.Errorf("legal basis: %w", err)
	}
	r.log.Debug("legal basis pass", zap.Int("issues", len(issues)), zap.Int("citations", len(bases)))
	return Merge(findings, bases), nil
}

// ExpressionIssues returns the distinct issues of expression findings in
// first-seen order.
func ExpressionIssues(findings []finding.Finding) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range findings {
		if f.Category != finding.CategoryExpression || seen[f.Issue] {
			continue
		}
		seen[f.Issue] = true
		out = append(out, f.Issue)
	}
	return out
}

// Merge appends citations to the basis of expression findings whose issue
// matches an entry exactly. Empty citations are ignored; for duplicate
// entries the last one wins. Unmatched findings are returned unchanged.
func Merge(findings []finding.Finding, bases []finding.LegalBasis) []finding.Finding {
	citations := make(map[string]string, len(bases))
	for _, b := range bases {
		if b.LegalBasis != "" {
			citations[b.OriginalIssue] = b.LegalBasis
		}
	}

	out := make([]finding.Finding, len(findings))
	for i, f := range findings {
		if c, ok := citations[f.Issue]; ok && f.Category == finding.CategoryExpression {
			f.Basis = AppendBasis(f.Basis, c)
		}
		out[i] = f
	}
	return out
}

// AppendBasis joins a citation onto an existing basis with a newline.
func AppendBasis(basis, citation string) string {
	if basis == "" {
		return citation
	}
	return basis + "\n" + citation
}
