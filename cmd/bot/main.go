// Package main is the entry point for the AppealBot Go application.
// It initializes all systems and starts the Discord bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PancyStudios/AppealBotGo/internal/appeal"
	"github.com/PancyStudios/AppealBotGo/internal/events"
	"github.com/PancyStudios/AppealBotGo/pkg/config"
	"github.com/PancyStudios/AppealBotGo/pkg/database"
	"github.com/PancyStudios/AppealBotGo/pkg/discord"
	"github.com/PancyStudios/AppealBotGo/pkg/errors"
	"github.com/PancyStudios/AppealBotGo/pkg/identity"
	"github.com/PancyStudios/AppealBotGo/pkg/logger"
	"github.com/PancyStudios/AppealBotGo/pkg/models"
	"github.com/PancyStudios/AppealBotGo/pkg/mqtt"
	"github.com/PancyStudios/AppealBotGo/pkg/sanctions"
	"github.com/PancyStudios/AppealBotGo/pkg/web"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.Init(cfg.LogsDir, cfg.ErrorWebhook, cfg.LogsWebhook)
	defer log.Close()

	logger.System("Запуск AppealBot Go...", "Main")
	logger.Info(fmt.Sprintf("Рабочая директория: %s | Версия: %s", getCurrentDir(), config.Version), "Main")

	// Initialize error handler
	var discordClient *discord.ExtendedClient
	errors.Init(cfg.ErrorWebhook, func() {
		if discordClient != nil {
			_ = discordClient.Stop()
		}
	})
	defer errors.Get().Stop()

	// Sanction store
	engine, err := sanctions.ParseEngine(cfg.DatabaseEngine)
	if err != nil {
		logger.Critical(err.Error(), "Main")
		os.Exit(1)
	}
	openCtx, cancelOpen := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := sanctions.Open(openCtx, engine, cfg.DatabaseURL)
	cancelOpen()
	if err != nil {
		logger.Critical(fmt.Sprintf("Ошибка подключения к базе наказаний: %v", err), "Main")
		os.Exit(1)
	}
	defer store.Close()
	logger.Success(fmt.Sprintf("База наказаний подключена (%s)", store.Engine()), "Main")

	// Identity service
	resolver, identityProbe, cleanup, err := newIdentity(cfg)
	if err != nil {
		logger.Critical(err.Error(), "Main")
		os.Exit(1)
	}
	defer cleanup()

	// Initialize Discord client
	discordClient, err = discord.Init(cfg.BotToken)
	if err != nil {
		logger.Critical(fmt.Sprintf("Ошибка создания Discord клиента: %v", err), "Main")
		os.Exit(1)
	}

	flow := appeal.NewFlow(cfg.Appeal, appeal.Deps{
		Platform:  appeal.SessionPlatform{Session: discordClient.Session},
		Sanctions: store,
		Identity:  resolver,
		Roster:    discordClient.Roster,
		Waiter:    discordClient.Waiter,
	})
	defer flow.Stop()

	appeal.Register(discordClient, flow)
	events.RegisterAll(discordClient, cfg.Appeal.GuildID)

	// Initialize web server
	webServer, err := web.Init(cfg.LogsWebServerHook, cfg.AllowedHosts)
	if err != nil {
		logger.Critical(err.Error(), "Main")
		os.Exit(1)
	}
	web.SetupAPIRoutes(webServer,
		web.StatusProbe{Name: "discord", Check: discordClient.GetStatus},
		web.StatusProbe{Name: "sanctions", Check: storeStatus(store)},
		identityProbe,
	)
	webServer.StartAsync(cfg.Port)

	// Start the bot
	if err := discordClient.Start(); err != nil {
		logger.Critical(fmt.Sprintf("Ошибка запуска Discord клиента: %v", err), "Main")
		os.Exit(1)
	}
	defer func() {
		if err := discordClient.Stop(); err != nil {
			logger.Warn(fmt.Sprintf("Ошибка остановки Discord клиента: %v", err), "Main")
		}
	}()

	logger.Success("AppealBot Go успешно запущен!", "Main")

	// Wait for interrupt signal
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	logger.System("Остановка AppealBot Go...", "Main")
}

// newIdentity builds the configured identity backend and its status probe
func newIdentity(cfg *config.Config) (identity.Resolver, web.StatusProbe, func(), error) {
	probe := web.StatusProbe{Name: "identity"}

	switch cfg.IdentityBackend {
	case config.IdentityHTTP:
		probe.Check = func() (string, bool) { return "🟢 | HTTP " + cfg.PlayerAPIURL, true }
		return identity.NewHTTPResolver(cfg.PlayerAPIURL, cfg.PlayerAPIToken, cfg.IdentityTimeout), probe, func() {}, nil

	case config.IdentityMQTT:
		clientID := "appealbot"
		if !cfg.IsProd() {
			clientID = "appealbot_canary"
		}
		mc := mqtt.Init(cfg.MQTTHost, cfg.MQTTPort, cfg.MQTTUser, cfg.MQTTPassword, clientID)
		probe.Check = mc.GetStatus
		return identity.NewMQTTResolver(mc, cfg.MQTTIdentityTopic, cfg.IdentityTimeout), probe, mc.Destroy, nil

	case config.IdentityMongo:
		db, err := database.Init(cfg.MongoDBURL, cfg.DBName)
		if err != nil {
			// Connect keeps retrying in the background
			logger.Error(fmt.Sprintf("Ошибка подключения к MongoDB: %v", err), "Main")
		}
		accounts := database.NewDataManager[models.LinkedAccount](identity.LinkedAccountsCollection, db)
		accounts.PrimeCache()
		probe.Check = db.GetStatus
		cleanup := func() {
			if err := db.Disconnect(); err != nil {
				logger.Warn(fmt.Sprintf("Ошибка отключения MongoDB: %v", err), "Main")
			}
		}
		return identity.NewMongoResolver(accounts), probe, cleanup, nil
	}

	return nil, probe, nil, fmt.Errorf("unknown identity backend %q", cfg.IdentityBackend)
}

func storeStatus(store *sanctions.Store) func() (string, bool) {
	return func() (string, bool) {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			return "🔴 | " + err.Error(), false
		}
		return fmt.Sprintf("🟢 | %s", store.Engine()), true
	}
}

// getCurrentDir returns the current working directory
func getCurrentDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "unknown"
	}
	return dir
}
