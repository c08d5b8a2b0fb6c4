package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thywilljoshua/slidecheck/internal/extract"
	"github.com/thywilljoshua/slidecheck/internal/report"
	"github.com/thywilljoshua/slidecheck/internal/review"
)

type analyzeOptions struct {
	rulesFile string
	enrich    bool
	format    string
	basis     bool
	render    bool
}

func analyzeCmd(a *app) *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze <deck>",
		Short: "Review a deck and print the findings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			defer a.close()

			renderer, err := report.NewRenderer(opts.format, opts.basis)
			if err != nil {
				return err
			}
			var rules string
			if opts.rulesFile != "" {
				b, err := os.ReadFile(opts.rulesFile)
				if err != nil {
					return fmt.Errorf("reading rules: %w", err)
				}
				rules = string(b)
			}

			xml, err := extract.ConvertFile(args[0], false)
			if err != nil {
				return err
			}
			reviewer, _, err := newReviewer(cmd.Context(), a.cfg, a.log)
			if err != nil {
				return err
			}
			res, err := reviewer.Analyze(cmd.Context(), xml, review.Options{Rules: rules, Enrich: opts.enrich})
			if err != nil {
				return fmt.Errorf("解析に失敗しました: %w", err)
			}
			a.log.Debug("findings", zap.Int("count", len(res.Findings)), zap.String("model", res.Model))

			var buf bytes.Buffer
			if err := renderer.Render(&buf, res.Findings); err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), buf.String(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.rulesFile, "rules", "", "file with custom rules text replacing the built-in catalog")
	cmd.Flags().BoolVar(&opts.enrich, "enrich", false, "run the legal-basis pass on expression findings")
	cmd.Flags().StringVar(&opts.format, "format", "json", "output format: "+strings.Join(report.Formats, "|"))
	cmd.Flags().BoolVar(&opts.basis, "basis", true, "include the basis column in tabular output")
	cmd.Flags().BoolVar(&opts.render, "render", false, "render markdown output for the terminal")
	return cmd
}

func writeReport(w io.Writer, out string, opts analyzeOptions) error {
	if opts.render && (opts.format == "md" || opts.format == "markdown") {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(120),
		)
		if err != nil {
			return fmt.Errorf("creating renderer: %w", err)
		}
		if out, err = r.Render(out); err != nil {
			return fmt.Errorf("rendering report: %w", err)
		}
	}
	_, err := io.WriteString(w, out)
	return err
}
