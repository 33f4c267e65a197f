package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/orangecountyai/clem/internal/ai"
	"github.com/orangecountyai/clem/internal/config"
	"github.com/orangecountyai/clem/internal/db"
	"github.com/orangecountyai/clem/internal/discord"
	"github.com/orangecountyai/clem/internal/gen"
	"github.com/orangecountyai/clem/internal/httpapi"
	"github.com/orangecountyai/clem/internal/route"
	"github.com/orangecountyai/clem/internal/store"
	"github.com/orangecountyai/clem/internal/store/rabbitmq"
	"github.com/orangecountyai/clem/internal/store/redisstore"
)

func main() {
	cfg := config.Load()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			log.Printf("sentry init: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	gdb := db.Connect(cfg.DBDSN)
	repo := store.NewRepo(gdb)

	cache := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer cache.Close()

	// Provider registry (route by AI_PROVIDER + MODEL)
	reg := ai.NewRegistry()
	reg.Register("openrouter", func(model string) (ai.Provider, error) {
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, model), nil
	})
	reg.Register("ollama", func(model string) (ai.Provider, error) {
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, model), nil
	})

	// one provider instance per generator so token caps stay independent
	newProvider := func() ai.Provider {
		p, err := reg.New(cfg.AIProvider, cfg.Model)
		if err != nil {
			log.Fatalf("ai provider: %v", err)
		}
		return p
	}
	gens := gen.Set{
		gen.KindChat:    gen.WithRetry(gen.NewChat(newProvider()), 3, time.Second),
		gen.KindKarma:   gen.WithRetry(gen.NewKarma(newProvider()), 3, time.Second),
		gen.KindWelcome: gen.WithRetry(gen.NewWelcome(newProvider()), 3, time.Second),
		gen.KindSummary: gen.WithRetry(gen.NewSummary(newProvider()), 3, time.Second),
	}

	var queue *rabbitmq.Queue
	if q, err := rabbitmq.Dial(cfg.RabbitURL, cfg.RabbitQueue); err != nil {
		log.Printf("rabbit dial: %v (link summaries disabled)", err)
	} else {
		queue = q
		defer queue.Close()
	}

	router := route.NewRouter("", "", cfg.Model)
	dispatcher := discord.NewDispatcher(router, repo, cache, gens, queue, nil, cfg.ChatContextWindowSize)
	commands := discord.NewCommandHandler(repo, cache, cfg.ModeratorRole)

	bot, err := discord.NewBot(cfg.BotToken, cfg.GuildName, cfg.GeneralChan, dispatcher, commands)
	if err != nil {
		log.Fatalf("bot setup: %v", err)
	}
	if bot != nil {
		dispatcher.SetSender(&discord.SessionSender{Session: bot.Session()})
		if err := bot.Start(); err != nil {
			log.Fatalf("bot start: %v", err)
		}
		defer bot.Stop()
	}

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.NewRouter(repo, cache, cfg),
	}
	go func() {
		log.Printf("ops api listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http serve: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
