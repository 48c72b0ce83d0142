package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"linguaquest/internal/config"
	"linguaquest/internal/syncd"
)

func main() {
	cfg := config.Load()

	agent, err := syncd.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize sync agent: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	if err := agent.Run(ctx); err != nil {
		log.Fatalf("Sync agent failed: %v", err)
	}
}
