package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sat8bit/postgen/config"
	"github.com/sat8bit/postgen/llm"
	"github.com/sat8bit/postgen/logging"
	"github.com/sat8bit/postgen/pipeline"
	"github.com/sat8bit/postgen/post"
	"github.com/sat8bit/postgen/retry"
	"github.com/sat8bit/postgen/source"
	"github.com/sat8bit/postgen/topic"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// --- コマンドライン引数のパース ---
	var (
		configPath = flag.String("config", "", "Path to YAML config file (default: ./"+config.DefaultConfigFile+" if present)")
		topicFlag  = flag.String("topic", "", "Topic to write about (overrides topic list and TOPIC)")
		count      = flag.Int("n", 0, "Number of posts to generate")
		interval   = flag.Duration("interval", -1, "Delay between posts")
		outputDir  = flag.String("out", "", "Output directory for generated posts")
		topicsFile = flag.String("topics", "", "Path to newline-delimited topic list")
		provider   = flag.String("provider", "", "Generation provider: openai or gemini")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *topicFlag != "" {
		cfg.Topic = *topicFlag
	}
	if *count > 0 {
		cfg.Count = *count
	}
	if *interval >= 0 {
		cfg.Interval = *interval
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *topicsFile != "" {
		cfg.TopicsFile = *topicsFile
	}
	if *provider != "" {
		cfg.Provider = *provider
	}

	slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Format, cfg.Logging.Level))

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	generator, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}

	topics, err := topic.Load(cfg.TopicsFile)
	if err != nil {
		return err
	}
	slog.Info("Loaded topic list", "path", cfg.TopicsFile, "topics", topics.Len())

	loc := cfg.Location()
	p := pipeline.New(pipeline.Config{
		Generator: llm.NewResilient(generator, retry.NewCaller(cfg.RetryPolicy())),
		Searcher: source.New(source.Options{
			SerperAPIKey:   cfg.SerperAPIKey,
			SerperEndpoint: cfg.Search.Endpoint,
			SerperTimeout:  cfg.Search.Timeout,
			FeedURL:        cfg.News.FeedURL,
			FeedLimit:      cfg.News.Limit,
		}),
		Topics:             topics,
		Writer:             post.NewWriter(cfg.OutputDir),
		System:             cfg.Generation.SystemPrompt,
		NumSources:         cfg.Search.Num,
		IgnoreSearchErrors: cfg.Search.IgnoreErrors,
		Interval:           cfg.Interval,
		FixedTopic:         cfg.Topic,
		Now:                func() time.Time { return time.Now().In(loc) },
		Rand:               rand.New(rand.NewSource(time.Now().UnixNano())),
	})

	results, err := p.Run(ctx, cfg.Count)
	for _, r := range results {
		if r.Err == nil {
			fmt.Printf("Generated: %s\n", r.Path)
		}
	}
	return err
}

func newGenerator(ctx context.Context, cfg *config.Config) (llm.Generator, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		g, err := llm.NewGemini(ctx, llm.GeminiConfig{
			APIKey:      cfg.GeminiAPIKey,
			BaseURL:     cfg.Generation.BaseURL,
			Model:       cfg.Generation.Model,
			Temperature: cfg.Generation.Temperature,
			Timeout:     cfg.Generation.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return llm.NewOpenAI(llm.OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.Generation.BaseURL,
			Model:       cfg.Generation.Model,
			Temperature: cfg.Generation.Temperature,
			Timeout:     cfg.Generation.Timeout,
		}), nil
	}
}
