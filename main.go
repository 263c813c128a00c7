package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/anthropics/feishu-promo-bot/feishu"
	"github.com/anthropics/feishu-promo-bot/internal/biz/domain"
	"github.com/anthropics/feishu-promo-bot/internal/biz/repo"
	"github.com/anthropics/feishu-promo-bot/internal/biz/usecase"
	"github.com/anthropics/feishu-promo-bot/internal/conf"
	"github.com/anthropics/feishu-promo-bot/internal/data"
	"github.com/anthropics/feishu-promo-bot/internal/server"
	"github.com/anthropics/feishu-promo-bot/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Transport client and outbound repository
	feishuClient := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret)
	messageRepo := data.NewFeishuRepo(feishuClient)

	// Persistent state store
	store, err := data.NewStateRepo(cfg.Store.DBPath)
	if err != nil {
		log.Fatalf("Failed to open state store: %v", err)
	}
	defer store.Close()

	// In-memory state, restored from the store
	state := domain.NewBotState(cfg.Bot.Name)
	registry := domain.NewRegistry()
	queue := domain.NewQueue(domain.DefaultQueueCapacity)
	restoreState(store, state, registry, queue)

	// Formatter, interpreter and sweep runner
	formatter := service.NewFormatter(messageRepo, state, cfg.Bot.PromoLink, cfg.Bot.PromoImagePath, cfg.SendTimeout)
	commandUC := usecase.NewCommandUsecase(registry, queue, state, formatter, store, cfg.Admin.OpenID)
	sweeper := service.NewSweepRunner(queue, formatter, store, cfg.SweepInterval)

	srv := server.NewFeishuServer(feishuClient, commandUC, sweeper, cfg.Debug)

	var web *server.WebServer
	if cfg.Web.Enabled {
		web = server.NewWebServer(cfg.Web.Addr, state, registry, queue)
		web.Start()
	}

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		if web != nil {
			web.Stop()
		}
		srv.Stop()
		store.Close()
		os.Exit(0)
	}()

	fmt.Printf("Starting %s...\n", state.DisplayName())
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// restoreState loads persisted settings, recipients and pending
// scheduled messages into the in-memory state.
func restoreState(store repo.StateRepo, state *domain.BotState, registry *domain.Registry, queue *domain.Queue) {
	ctx := context.Background()

	settings, err := store.LoadSettings(ctx)
	if err != nil {
		fmt.Printf("[Store] Failed to load settings: %v\n", err)
	} else {
		if name, ok := settings[repo.SettingDisplayName]; ok && name != "" {
			state.SetDisplayName(name)
		}
		if key, ok := settings[repo.SettingAPIKey]; ok {
			state.SetAPIKey(key)
		}
	}

	recipients, err := store.LoadRecipients(ctx)
	if err != nil {
		fmt.Printf("[Store] Failed to load recipients: %v\n", err)
	} else {
		for _, id := range recipients {
			registry.Add(id)
		}
	}

	pending, err := store.LoadPending(ctx)
	if err != nil {
		fmt.Printf("[Store] Failed to load scheduled messages: %v\n", err)
	} else if len(pending) > 0 {
		queue.Restore(pending)
		fmt.Printf("[Store] Restored %d pending scheduled messages\n", len(pending))
	}
}
