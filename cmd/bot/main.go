package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/allenheltondev/bis-rss-feed/internal/config"
	"github.com/allenheltondev/bis-rss-feed/internal/discord"
	"github.com/allenheltondev/bis-rss-feed/internal/feed"
	"github.com/allenheltondev/bis-rss-feed/internal/integrations/bedrock"
	"github.com/allenheltondev/bis-rss-feed/internal/integrations/paramstore"
	"github.com/allenheltondev/bis-rss-feed/internal/memory"
	"github.com/allenheltondev/bis-rss-feed/internal/repository"
	"github.com/allenheltondev/bis-rss-feed/internal/scrape"
	"github.com/allenheltondev/bis-rss-feed/internal/storage"
	"github.com/allenheltondev/bis-rss-feed/internal/usecase"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		slog.Info("no .env file loaded", "err", err)
	}

	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	// ---- AWS SDK config ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Storage tiers ----
	cache, err := storage.NewCache(redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}), cfg.CacheName)
	if err != nil {
		slog.Error("failed to create cache tier", "err", err)
		os.Exit(1)
	}
	blob, err := storage.NewBlob(awss3.NewFromConfig(awsCfg), cfg.BucketName)
	if err != nil {
		slog.Error("failed to create blob tier", "err", err)
		os.Exit(1)
	}
	store, err := storage.New(cache, blob, storage.WithDefaultTTL(time.Duration(cfg.DefaultTTLSecs)*time.Second))
	if err != nil {
		slog.Error("failed to create tiered store", "err", err)
		os.Exit(1)
	}

	// ---- Collaborators ----
	history, err := memory.NewLog(store.Cache())
	if err != nil {
		slog.Error("failed to create conversation log", "err", err)
		os.Exit(1)
	}
	llm, err := bedrock.New(bedrockruntime.NewFromConfig(awsCfg))
	if err != nil {
		slog.Error("failed to create bedrock client", "err", err)
		os.Exit(1)
	}
	params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	registry, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.SubmissionTable)
	if err != nil {
		slog.Error("failed to create submission registry", "err", err)
		os.Exit(1)
	}

	// ---- Feed ----
	synth, err := feed.New(store, cfg.FeedKey, feed.Channel{
		Title:       cfg.FeedTitle,
		Description: cfg.FeedDescription,
		FeedURL:     cfg.FeedURL,
		SiteURL:     cfg.SiteURL,
		Language:    cfg.FeedLanguage,
	})
	if err != nil {
		slog.Error("failed to create feed", "err", err)
		os.Exit(1)
	}
	// A snapshot that exists but does not parse aborts startup; publishing a
	// truncated feed would silently drop history.
	if err := synth.Initialize(ctx); err != nil {
		slog.Error("failed to initialize feed", "err", err)
		os.Exit(1)
	}

	// ---- Pipeline ----
	svc, err := usecase.NewLinkService(params, llm, history, scrape.New(), synth, registry, cfg.ParamPrefix)
	if err != nil {
		slog.Error("failed to create link service", "err", err)
		os.Exit(1)
	}

	bot, err := discord.New(cfg.DiscordToken, svc, cfg.RecentWindow)
	if err != nil {
		slog.Error("failed to create discord bot", "err", err)
		os.Exit(1)
	}

	go serveHealth(cfg.HealthAddr)

	if err := bot.Open(); err != nil {
		slog.Error("failed to connect to discord gateway", "err", err)
		os.Exit(1)
	}
	defer func() { _ = bot.Close() }()
	slog.Info("bot running", "feed_key", cfg.FeedKey, "items", synth.Len())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	slog.Info("shutting down")
}

func serveHealth(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("health endpoint stopped", "err", err)
	}
}
