// cmd/worker/main.go
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"shopcms-backend/pkg/container"
	"shopcms-backend/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	envErr := godotenv.Load()
	logger.Init(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
	if envErr != nil {
		logger.Debug("No .env file found, using system environment variables")
	}

	c, err := container.NewContainer()
	if err != nil {
		logger.Fatal("[Container] Failed to initialize", err)
	}
	defer c.Cleanup()

	cfg := loadConfig(c.Config)

	// Health checks trước khi nhận task
	probe, err := startServices(cfg)
	if err != nil {
		logger.Fatal("[Startup] Health check failed", err)
	}
	defer probe.Close()

	handlers := initializeHandlers(c)
	srv := setupAsynqServer(cfg, handlers)
	scheduler := setupScheduler(cfg)

	waitForShutdown(srv, scheduler)
}

func waitForShutdown(srv *asynqServer, scheduler *asynqScheduler) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("[Shutdown] Gracefully stopping...", nil)
	scheduler.Shutdown()
	srv.Shutdown()
	logger.Info("[Shutdown] Stopped", nil)
}
