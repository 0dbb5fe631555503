package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/wenwu/saas-platform/botdeploy-service/internal/client"
	"github.com/wenwu/saas-platform/botdeploy-service/internal/config"
	"github.com/wenwu/saas-platform/botdeploy-service/internal/db"
	"github.com/wenwu/saas-platform/botdeploy-service/internal/http"
	"github.com/wenwu/saas-platform/botdeploy-service/internal/logwatch"
	"github.com/wenwu/saas-platform/botdeploy-service/internal/repository"
	"github.com/wenwu/saas-platform/botdeploy-service/internal/service"
)

func main() {
	log.Println("Starting Bot Deploy Service...")

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize database
	pool, err := db.NewPool(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Initialize repositories
	botRepo := repository.NewBotRepository(pool)
	trialRepo := repository.NewTrialRepository(pool)
	keyRepo := repository.NewDeployKeyRepository(pool)
	logRepo := repository.NewActionLogRepository(pool)

	// Initialize clients
	platformClient := client.NewPlatformClient(cfg.Platform.APIURL, cfg.Platform.APIKey)
	chatClient := client.NewChatClient(cfg.Chat.GatewayURL, cfg.Chat.BotToken, cfg.Chat.OperatorChatID)

	// Initialize the deployment engine. Registry and scheduler are
	// per-engine instances, not globals.
	poller := service.NewBuildPoller(platformClient, cfg.Deploy.BuildPollInterval, cfg.Deploy.BuildTimeout)
	registry := service.NewConnectionRegistry(cfg.Deploy.ConnectTimeout)
	scheduler := service.NewLifecycleScheduler(platformClient, botRepo, chatClient, logRepo)

	deployService := service.NewDeployService(
		cfg,
		platformClient,
		chatClient,
		botRepo,
		trialRepo,
		keyRepo,
		logRepo,
		poller,
		registry,
		scheduler,
	)

	// Restart trigger: watches our own supervised output stream for
	// session invalidation patterns
	if cfg.Restart.Enabled {
		watcher := logwatch.NewWatcher(chatClient, cfg.Restart.AlertCooldown, true, cfg.Restart.ExitDelay)
		go func() {
			if err := watcher.Run(context.Background(), os.Stdin); err != nil {
				log.Printf("[main] Log watcher stopped: %v", err)
			}
		}()
	}

	// Initialize HTTP server
	handler := http.NewHandler(deployService, keyRepo, botRepo, logRepo)
	server := http.NewServer(cfg, handler)

	// Start server in goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Printf("Server starting on %s", addr)
		if err := server.Run(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	log.Println("Server exited")
}
