package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirbread/termegle/internal/config"
	"github.com/sirbread/termegle/internal/logging"
	"github.com/sirbread/termegle/internal/server"
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logOut := logging.Setup(cfg.LogFile, cfg.LogMaxSizeMB)
	if closer, ok := logOut.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	logger := log.New(log.Writer(), "", log.Flags())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("failed to create server: %v", err)
	}

	if err := srv.Run(ctx); err != nil {
		logger.Fatalf("server error: %v", err)
	}
}
