package main

import (
	"context"
	systemLog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"college-erp/internal/app"
	"college-erp/internal/config"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	application, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}

	go func() {
		if err := application.Run(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		systemLog.Fatal("Server forced to shutdown:", err)
	}

	systemLog.Println("Server exited gracefully")
}
