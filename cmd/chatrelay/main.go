package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/chatrelay/chatrelay/pkg/bot"
	"github.com/chatrelay/chatrelay/pkg/config"
	"github.com/chatrelay/chatrelay/pkg/providers"
	"github.com/chatrelay/chatrelay/pkg/router"
	"github.com/chatrelay/chatrelay/pkg/session"
	"github.com/chatrelay/chatrelay/pkg/store"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "chatrelay",
	Short: "chatrelay is a Telegram gateway to hosted language models",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger(logLevel)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func initLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	objects, err := store.NewGCSObjectStore(ctx, cfg.Bucket)
	if err != nil {
		return err
	}
	conversations := store.NewConversationStore(objects, cfg.DefaultModel)

	families, speech, err := buildFamilies(ctx, cfg)
	if err != nil {
		return err
	}

	rtr, err := router.New(conversations, families)
	if err != nil {
		return err
	}
	policy := session.NewPolicy(conversations, cfg.StaleAfter)

	b, err := bot.New(bot.Config{
		Token:             cfg.TelegramToken,
		Router:            rtr,
		Policy:            policy,
		Speech:            speech,
		SegmentLimit:      cfg.SegmentLimit,
		DefaultImageModel: config.DefaultImageModel,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("bucket", cfg.Bucket).
		Str("default_model", cfg.DefaultModel).
		Int("families", len(families)).
		Msg("starting gateway")

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return b.Run(ctx) })
	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// buildFamilies constructs an adapter for every family whose allow-list is
// non-empty. Config validation already guaranteed the matching API keys.
func buildFamilies(ctx context.Context, cfg config.Config) ([]router.Family, bot.Speech, error) {
	var families []router.Family
	var speech bot.Speech

	if len(cfg.Models.OpenAI) > 0 {
		adapter := providers.NewOpenAIAdapter(cfg.OpenAIKey)
		families = append(families, router.Family{
			Name:    adapter.Family(),
			Adapter: adapter,
			Models:  cfg.Models.OpenAI,
		})
		speech = bot.Speech{Transcriber: adapter, Synthesizer: adapter}
	}
	if len(cfg.Models.Anthropic) > 0 {
		adapter := providers.NewAnthropicAdapter(cfg.AnthropicKey)
		families = append(families, router.Family{
			Name:    adapter.Family(),
			Adapter: adapter,
			Models:  cfg.Models.Anthropic,
		})
	}
	if len(cfg.Models.Google) > 0 {
		adapter, err := providers.NewGeminiAdapter(ctx, cfg.GoogleKey)
		if err != nil {
			return nil, bot.Speech{}, errors.Wrap(err, "create gemini adapter")
		}
		families = append(families, router.Family{
			Name:    adapter.Family(),
			Adapter: adapter,
			Models:  cfg.Models.Google,
		})
	}
	if len(cfg.Models.XAI) > 0 {
		adapter := providers.NewXAIAdapter(cfg.XAIKey, cfg.XAIBaseURL)
		families = append(families, router.Family{
			Name:    adapter.Family(),
			Adapter: adapter,
			Models:  cfg.Models.XAI,
		})
	}
	return families, speech, nil
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("gateway exited")
	}
}
