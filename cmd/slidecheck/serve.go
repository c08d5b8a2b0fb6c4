package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/thywilljoshua/slidecheck/internal/ai"
	"github.com/thywilljoshua/slidecheck/internal/blob"
	"github.com/thywilljoshua/slidecheck/internal/config"
	"github.com/thywilljoshua/slidecheck/internal/review"
	"github.com/thywilljoshua/slidecheck/internal/server"
	"github.com/thywilljoshua/slidecheck/internal/store"
)

func serveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			defer a.close()
			return serve(cmd.Context(), a.cfg, a.log)
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	st, err := store.Open(cfg.Storage.DBPath, log.Named("store"))
	if err != nil {
		return err
	}
	defer st.Close()

	blobs, err := blob.New(filepath.Join(cfg.Storage.Dir, "uploads"))
	if err != nil {
		return err
	}
	reviewer, catalog, err := newReviewer(ctx, cfg, log)
	if err != nil {
		return err
	}

	srv := server.New(st, blobs, reviewer, log.Named("http"), server.Options{
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		CORSOrigins:    cfg.Server.CORSOrigins,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx, cfg.Server.Addr) })
	if cfg.Rules.Path != "" && cfg.Rules.Watch {
		g.Go(func() error { return catalog.Watch(ctx, cfg.Rules.Path, log.Named("rules")) })
	}
	return g.Wait()
}

// newReviewer builds the generator, rules catalog and pipeline from cfg.
func newReviewer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*review.Reviewer, *review.Catalog, error) {
	rs := review.DefaultRuleSet()
	if cfg.Rules.Path != "" {
		var err error
		if rs, err = review.LoadRuleSet(cfg.Rules.Path); err != nil {
			return nil, nil, err
		}
	}
	catalog := review.NewCatalog(rs)

	rcfg := review.DefaultConfig()
	rcfg.InitialTemperature = cfg.AI.InitialTemperature
	rcfg.LegalTemperature = cfg.AI.LegalTemperature
	if cfg.Rules.LawSummaryPath != "" {
		summary, err := review.LoadLawSummary(cfg.Rules.LawSummaryPath)
		if err != nil {
			return nil, nil, err
		}
		rcfg.LawSummary = summary
	}

	var gen ai.Generator
	switch cfg.AI.Provider {
	case config.ProviderMock:
		gen = review.NewMock()
	case config.ProviderGemini:
		g, err := ai.NewGemini(ctx, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout)
		if err != nil {
			return nil, nil, err
		}
		gen = g
	default:
		return nil, nil, fmt.Errorf("unknown ai.provider %q", cfg.AI.Provider)
	}

	log.Info("review pipeline ready",
		zap.String("provider", cfg.AI.Provider),
		zap.String("model", gen.Model()),
		zap.String("rules", rs.Name),
		zap.String("rules_version", rs.Version))
	return review.New(gen, catalog, rcfg, log.Named("review")), catalog, nil
}
