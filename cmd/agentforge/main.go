// Command agentforge runs the query routing server for the construction
// assistant roster.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sitecheck-ai/agentforge/assistant"
	"github.com/sitecheck-ai/agentforge/config"
	"github.com/sitecheck-ai/agentforge/llm"
	"github.com/sitecheck-ai/agentforge/orchestrate"
	"github.com/sitecheck-ai/agentforge/retrieval"
	"github.com/sitecheck-ai/agentforge/routing"
	"github.com/sitecheck-ai/agentforge/server"
)

var (
	version = "0.1.0"
	cfgPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "agentforge",
		Short:   "Query classification and routing server for construction assistants",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	rootCmd.AddCommand(serveCmd(), agentsCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func agentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the configured assistant profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			profiles, err := loadProfiles(cfg)
			if err != nil {
				return err
			}
			for _, p := range profiles {
				fmt.Printf("%-22s %s\n", p.Name, p.Description)
			}
			return nil
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if cfg.Logging.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}

func loadProfiles(cfg *config.Config) ([]assistant.Profile, error) {
	if cfg.AssistantsFile != "" {
		return assistant.LoadFile(cfg.AssistantsFile)
	}
	return assistant.DefaultProfiles(), nil
}

func newClient(cfg *config.Config, log zerolog.Logger, metrics *server.Metrics) (*llm.Client, error) {
	policy := llm.DefaultRetryPolicy()
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		metrics.ProviderRetry()
		log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", delay).Msg("retrying provider call")
	}
	opts := []llm.ClientOption{
		llm.WithDefaultProvider(cfg.Providers.Default),
		llm.WithRetryPolicy(policy),
	}

	type provider struct {
		name string
		conf config.ProviderConfig
	}
	for _, p := range []provider{
		{"anthropic", cfg.Providers.Anthropic},
		{"openai", cfg.Providers.OpenAI},
	} {
		if !p.conf.Enabled {
			continue
		}
		adapter, err := llm.NewGollmAdapter(p.name, p.conf.APIKey, llm.WithModel(p.conf.Model))
		if err != nil {
			return nil, fmt.Errorf("configuring %s provider: %w", p.name, err)
		}
		opts = append(opts, llm.WithAdapter(adapter))
	}
	return llm.NewClient(opts...), nil
}

func serve(cfg *config.Config) error {
	log := newLogger(cfg)

	profiles, err := loadProfiles(cfg)
	if err != nil {
		return err
	}
	registry, err := assistant.NewRegistry(profiles)
	if err != nil {
		return err
	}

	metrics := server.NewMetrics()
	client, err := newClient(cfg, log, metrics)
	if err != nil {
		return err
	}
	defer client.Close()

	classifierOpts := []routing.ClassifierOption{routing.WithClassifierLogger(log)}
	if cfg.Routing.SemanticModel != "" {
		classifierOpts = append(classifierOpts,
			routing.WithSemanticScorer(routing.NewLLMScorer(client, cfg.Routing.SemanticModel)))
	}
	classifier := routing.NewClassifier(classifierOpts...)
	router := &routing.Router{Threshold: cfg.Routing.Threshold}

	orchOpts := []orchestrate.Option{
		orchestrate.WithLogger(log),
		orchestrate.WithObserver(metrics),
		orchestrate.WithPreStreamTimeout(cfg.Server.PreStreamTimeout),
		orchestrate.WithIdleTimeout(cfg.Server.IdleTimeout),
		orchestrate.WithRetrievalLimit(cfg.Retrieval.Limit),
	}
	if cfg.Retrieval.DBPath != "" {
		store, err := retrieval.OpenStore(cfg.Retrieval.DBPath)
		if err != nil {
			return fmt.Errorf("opening snippet store: %w", err)
		}
		defer store.Close()
		orchOpts = append(orchOpts, orchestrate.WithRetriever(store))
	}
	orch := orchestrate.New(registry, classifier, router, client, orchOpts...)

	srv := server.New(orch, registry,
		server.WithServerLogger(log),
		server.WithMetrics(metrics),
		server.WithRateLimit(cfg.Server.RatePerSecond, cfg.Server.RateBurst),
	)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Int("assistants", registry.Snapshot().Len()).Msg("server listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
