package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kbingest/internal/config"
	"kbingest/internal/console"
	"kbingest/internal/logging"
	"kbingest/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, service.ErrSourceNotFound) {
			return
		}
		console.New(os.Stderr).Error("error: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath, logLevel string
	cmd := &cobra.Command{
		Use:   "kbingest",
		Short: "Build a searchable vector knowledge base from a PDF",
		Long: `kbingest loads a PDF, splits it into overlapping chunks, embeds every chunk
and writes chunks plus vectors to a local vector store.

The embedder credential (GOOGLE_API_KEY by default) is read from the
environment or from a .env file in the working directory.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadEnv("."); err != nil {
				return err
			}
			var cfg *config.AppConfig
			var err error
			if cfgPath == "" {
				cfg, _, err = config.LoadDefault()
			} else {
				cfg, err = config.Load(cfgPath)
			}
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ./config.yaml if present)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	return cmd
}

// run checks the credential, assembles the pipeline from cfg and ingests once.
func run(ctx context.Context, cfg *config.AppConfig, stdout, stderr io.Writer) error {
	if err := cfg.RequireCredential(); err != nil {
		return err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, stderr)
	out := console.New(stdout)

	if err := service.CheckSource(cfg.Input.PDFPath, out); err != nil {
		return err
	}
	p, err := assemble(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.store.Close(); err != nil {
			logger.Warn("close store", "err", err)
		}
	}()
	logger.Debug("pipeline assembled",
		"loader", p.loader.Name(),
		"chunker", cfg.Chunker.Type,
		"embedder", p.embedder.Name(),
		"store", cfg.VectorStore.Type,
	)

	svc := service.NewIngestService(p.loader, p.chunker, p.embedder, p.store, out, logger, service.Options{
		PDFPath:   cfg.Input.PDFPath,
		BatchSize: batchSize(cfg),
		Reset:     cfg.VectorStore.Reset,
	})
	rep, err := svc.Ingest(ctx)
	if err != nil {
		return err
	}
	out.Summary([][2]string{
		{"Pages", strconv.Itoa(rep.Pages)},
		{"Chunks", strconv.Itoa(rep.Chunks)},
		{"Model", rep.Model},
		{"Dimension", strconv.Itoa(rep.Dimension)},
		{"Store", rep.Location},
		{"Elapsed", rep.Elapsed.Round(time.Millisecond).String()},
	})
	return nil
}
