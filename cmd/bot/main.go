package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"discord-statuskeeper/internal/config"
	"discord-statuskeeper/internal/reconciler"
	"discord-statuskeeper/internal/server"
	discordService "discord-statuskeeper/internal/services/discord"
	"discord-statuskeeper/internal/store"
)

func main() {
	log.Println("🚀 Starting Discord status keeper...")

	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found.")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Initialize status store and reconciler
	statusStore := store.New(cfg.Status.Path)
	rec := reconciler.New(reconciler.Config{
		Store:    statusStore,
		Interval: cfg.ReconcileInterval(),
	})

	// Initialize Discord bot; the reconciler initializes once the gateway
	// reports ready.
	bot, err := discordService.NewBot(discordService.BotConfig{
		Token:   cfg.Discord.Token,
		GuildID: cfg.Discord.GuildID,
	}, rec, rec.Initialize)
	if err != nil {
		log.Fatalf("❌ Failed to create bot: %v", err)
	}
	rec.SetPresence(bot)

	// Start bot
	if err := bot.Start(); err != nil {
		log.Fatalf("❌ Failed to start bot: %v", err)
	}
	defer bot.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec.Start(ctx)
	defer rec.Stop()

	// Start HTTP/WebSocket control surface
	if cfg.App.APIToken == "" {
		log.Println("⚠️ API_TOKEN is not set; HTTP/WebSocket control routes are disabled")
	}
	srv := server.New(server.Config{
		Addr:      cfg.ListenAddr(),
		AuthToken: cfg.App.APIToken,
		Service:   rec,
		BotStatus: bot.ConnectionStatus,
		StartedAt: time.Now(),
	})
	srv.Start()

	log.Println("✅ Status keeper is now online!")

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ HTTP server shutdown error: %v", err)
	}

	log.Println("👋 Shutdown complete")
}
