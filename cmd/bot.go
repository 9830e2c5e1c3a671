package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/yingbot/internal/admins"
	"github.com/nextlevelbuilder/yingbot/internal/bus"
	"github.com/nextlevelbuilder/yingbot/internal/channels"
	"github.com/nextlevelbuilder/yingbot/internal/channels/discord"
	"github.com/nextlevelbuilder/yingbot/internal/channels/telegram"
	"github.com/nextlevelbuilder/yingbot/internal/config"
	"github.com/nextlevelbuilder/yingbot/internal/gate"
	"github.com/nextlevelbuilder/yingbot/internal/knowledge"
	"github.com/nextlevelbuilder/yingbot/internal/providers"
	"github.com/nextlevelbuilder/yingbot/internal/quota"
	"github.com/nextlevelbuilder/yingbot/internal/router"
)

func runBot() {
	// Setup structured logging
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	// Secrets frequently live in a local .env next to the binary.
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// FAQ problems are not fatal: the bot runs without the short-circuit.
	faq, err := knowledge.Load(cfg.Knowledge.Path)
	if err != nil {
		slog.Warn("faq table unavailable, starting with an empty one",
			"path", cfg.Knowledge.Path, "error", err)
	} else if cfg.Knowledge.Path != "" {
		slog.Info("faq table loaded", "path", cfg.Knowledge.Path, "entries", faq.Len())
	}

	registry := admins.NewRegistry(cfg.Access.SuperAdmin, cfg.Access.Admins)
	tracker := quota.NewTracker(cfg.Quota.DailyPremiumLimit)
	admissionGate := gate.New(registry, cfg.Access.AllowedGroups, cfg.Access.AddressingPrefix)
	provider := providers.NewOpenAIProvider(cfg.Provider.Name, cfg.Provider.APIKey, cfg.Provider.BaseURL)

	msgBus := bus.New()
	manager := channels.NewManager(msgBus)

	if cfg.Channels.Telegram.Enabled {
		ch, chErr := telegram.New(cfg.Channels.Telegram, msgBus)
		if chErr != nil {
			slog.Error("failed to create telegram channel", "error", chErr)
			os.Exit(1)
		}
		manager.Register(ch)
	}
	if cfg.Channels.Discord.Enabled {
		ch, chErr := discord.New(cfg.Channels.Discord, msgBus)
		if chErr != nil {
			slog.Error("failed to create discord channel", "error", chErr)
			os.Exit(1)
		}
		manager.Register(ch)
	}

	rtr := router.New(router.Options{
		Bus:           msgBus,
		Gate:          admissionGate,
		Knowledge:     faq,
		Quota:         tracker,
		Admins:        registry,
		Provider:      provider,
		Models:        cfg.Models,
		Timeout:       time.Duration(cfg.Router.RequestTimeoutSeconds) * time.Second,
		ReplyOnReject: cfg.Access.ReplyOnReject,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := manager.StartAll(ctx); err != nil {
		slog.Error("failed to start channels", "error", err)
		os.Exit(1)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return rtr.Run(groupCtx) })
	group.Go(func() error { return faq.Watch(groupCtx) })

	slog.Info("yingbot running", "version", Version,
		"daily_premium_limit", cfg.Quota.DailyPremiumLimit,
		"premium_model", cfg.Models.Premium,
		"standard_model", cfg.Models.Standard)

	if err := group.Wait(); err != nil {
		slog.Error("runtime error", "error", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := manager.StopAll(stopCtx); err != nil {
		slog.Error("error stopping channels", "error", err)
	}
}
