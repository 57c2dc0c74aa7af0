package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AwabarTickets/internal/config"
	"AwabarTickets/internal/db"
	"AwabarTickets/internal/prex"
	"AwabarTickets/internal/store"
	"AwabarTickets/internal/worker"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	signer, err := prex.NewLocalSigner(cfg.Prex.PrivateKey)
	if err != nil {
		log.Fatalf("signer init failed: %v", err)
	}
	wallet := prex.NewClient(cfg.Prex.APIBase, cfg.Prex.APIKey, cfg.Prex.PolicyID, cfg.Prex.ChainID, signer)

	w := &worker.Worker{
		Store:       store.New(pool),
		Wallet:      wallet,
		Interval:    time.Duration(cfg.Worker.IntervalSeconds) * time.Second,
		Backoff:     time.Duration(cfg.Worker.BackoffSeconds) * time.Second,
		MaxAttempts: cfg.Worker.MaxAttempts,
		BatchSize:   cfg.Worker.BatchSize,
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		cancel()
	}()

	log.Printf("worker started (signer=%s interval=%ds)", signer.Address(), cfg.Worker.IntervalSeconds)
	w.Run(ctx)
}
