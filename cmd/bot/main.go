package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	sys, err := initializeSystem()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	if err := sys.bot.Start(ctx); err != nil {
		sys.log.Error("bot failed to start", "error", err)
		os.Exit(1)
	}

	<-sigc
	sys.log.Info("shutting down")
	cancel()
	shutdown(context.Background(), sys)
}
