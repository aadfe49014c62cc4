// Package main contains the entrypoint for the relay bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/relaybot/internal/bot"
	"github.com/edgard/relaybot/internal/bot/handlers"
	"github.com/edgard/relaybot/internal/bot/tasks"
	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/gemini"
	"github.com/edgard/relaybot/internal/guild"
	"github.com/edgard/relaybot/internal/logger"
	"github.com/edgard/relaybot/internal/media"
	"github.com/edgard/relaybot/internal/memory"
	"github.com/edgard/relaybot/internal/openai"
	"github.com/edgard/relaybot/internal/personality"
	"github.com/edgard/relaybot/internal/quota"
	"github.com/edgard/relaybot/internal/relay"
	"github.com/edgard/relaybot/internal/telegram"
)

// memberRosterLimit caps the known-members list in the prompt.
const memberRosterLimit = 50

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// backends are the AI clients selected by the ai section of the config.
type backends struct {
	completer relay.Completer
	describer relay.Describer
	images    relay.ImageGenerator
}

func newBackends(ctx context.Context, cfg *config.Config, log *slog.Logger) (backends, error) {
	fetcher := media.NewFetcher(&http.Client{Timeout: cfg.AI.Timeout}, media.DefaultMaxBytes)
	oa := openai.New(cfg.OpenAI, cfg.AI.Timeout, fetcher, log)
	b := backends{completer: oa, describer: oa, images: oa}

	if cfg.AI.CompletionProvider == "gemini" || cfg.AI.VisionProvider == "gemini" {
		gc, err := gemini.NewClient(ctx, cfg.Gemini, cfg.AI.Timeout, fetcher, log)
		if err != nil {
			return backends{}, fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		if cfg.AI.CompletionProvider == "gemini" {
			b.completer = gc
		}
		if cfg.AI.VisionProvider == "gemini" {
			b.describer = gc
		}
	}
	return b, nil
}

// run wires every component, runs the bot until ctx is cancelled, and returns
// the process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	clock := clockwork.NewRealClock()

	ledger, err := quota.NewLedger(store, quota.Limits{
		UserDaily:        cfg.Quota.UserDailyLimit,
		GuildDaily:       cfg.Quota.GuildDailyLimit,
		UserLimitReason:  cfg.Messages.UserLimit,
		GuildLimitReason: cfg.Messages.GuildLimit,
	}, clock, cfg.Database.CacheSize, log)
	if err != nil {
		log.Error("Failed to create quota ledger", "error", err)
		return 1
	}
	memories, err := memory.NewFromDatabase(store, cfg.Database.CacheSize, log)
	if err != nil {
		log.Error("Failed to create memory store", "error", err)
		return 1
	}
	guilds, err := guild.NewRegistry(store, cfg.Personality.DefaultID, cfg.Database.CacheSize, log)
	if err != nil {
		log.Error("Failed to create guild registry", "error", err)
		return 1
	}
	personalities := personality.NewLoader(cfg.Personality.Dir, cfg.Personality.Marker)
	if !personalities.Exists(cfg.Personality.DefaultID) {
		log.Error("Default personality not found", "dir", cfg.Personality.Dir, "id", cfg.Personality.DefaultID)
		return 1
	}

	ai, err := newBackends(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize AI backends", "error", err)
		return 1
	}

	// onMessage is assigned before the listener starts.
	var onMessage tgbot.HandlerFunc
	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			onMessage(ctx, b, update)
		}),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	me, err := tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	cfg.Telegram.BotInfo = config.BotInfo{ID: me.ID, Username: me.Username, FirstName: me.FirstName}
	log.Info("Retrieved bot info", "bot_id", me.ID, "bot_username", me.Username)

	sink := telegram.NewSink(tg, store, cfg.Telegram.BotInfo, cfg.Telegram.SendRatePerMinute, log)
	messages := relay.Messages{
		GeneralError: cfg.Messages.GeneralError,
		ImageError:   cfg.Messages.ImageError,
		EmptyReply:   cfg.Messages.EmptyReply,
		Refusal:      cfg.Messages.Refusal,
		Cooldown:     cfg.Messages.Cooldown,
		Queued:       cfg.Messages.Queued,
	}

	assembler := relay.NewAssembler(relay.AssemblerDeps{
		History:       relay.StoreHistory{Store: store},
		Members:       relay.StoreMembers{Store: store, Limit: memberRosterLimit},
		Resolver:      telegram.NewFileResolver(tg, cfg.Telegram.Token),
		Describer:     ai.describer,
		Guilds:        guilds,
		Personalities: personalities,
		Memory:        memories,
		Quota:         ledger,
		Clock:         clock,
		Logger:        log,
	}, relay.AssemblerConfig{
		HistoryLimit:       cfg.Relay.HistoryLimit,
		MaxImages:          cfg.Relay.MaxImages,
		VisionConcurrency:  cfg.Relay.VisionConcurrency,
		DefaultPersonality: cfg.Personality.DefaultID,
	})
	orchestrator := relay.NewOrchestrator(relay.OrchestratorDeps{
		Completer: ai.completer,
		Images:    ai.images,
		Memory:    memories,
		Quota:     ledger,
		Sink:      sink,
		Filter:    relay.NewContentFilter(cfg.Filter.Denylist),
		Messages:  messages,
		Clock:     clock,
		Logger:    log,
	})
	pipeline := relay.NewPipeline(relay.PipelineConfig{
		Cooldown:          cfg.Relay.Cooldown,
		MaxThroughput:     cfg.Relay.MaxThroughput,
		QueueAckThreshold: cfg.Relay.QueueAckThreshold,
	}, assembler, orchestrator, sink, messages, clock, log)

	hDeps := handlers.HandlerDeps{
		Logger:        log,
		Config:        cfg,
		History:       store,
		Memory:        memories,
		Quota:         ledger,
		Guilds:        guilds,
		Personalities: personalities,
		Pipeline:      pipeline,
	}
	onMessage = handlers.NewMessageHandler(hDeps)
	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Quota:  ledger,
	}))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, tg, pipeline, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
