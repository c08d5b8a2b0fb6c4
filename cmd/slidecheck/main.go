// Command slidecheck reviews slide decks against compliance rules and
// serves the review API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/thywilljoshua/slidecheck/internal/config"
	"github.com/thywilljoshua/slidecheck/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

// app carries the state shared by subcommands once configuration is loaded.
type app struct {
	v          *viper.Viper
	configFile string

	cfg *config.Config
	log *zap.Logger
}

func (a *app) load() error {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

func (a *app) close() {
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}
	root := &cobra.Command{
		Use:           "slidecheck",
		Short:         "Review slide decks for compliance issues",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default: ./slidecheck.yaml when present)")
	root.PersistentFlags().String("log-level", "info", "log level: debug|info|warn|error")
	_ = a.v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(serveCmd(a), extractCmd(), analyzeCmd(a), versionCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
