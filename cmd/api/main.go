package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AwabarTickets/internal/config"
	"AwabarTickets/internal/db"
	"AwabarTickets/internal/disburse"
	internalhttp "AwabarTickets/internal/http"
	"AwabarTickets/internal/prex"
	"AwabarTickets/internal/services"
	"AwabarTickets/internal/smaregi"
	"AwabarTickets/internal/square"
	"AwabarTickets/internal/store"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	st := store.New(pool)
	squareClient := square.NewClient(cfg.Square.APIBase, cfg.Square.AccessToken)

	signer, err := prex.NewLocalSigner(cfg.Prex.PrivateKey)
	if err != nil {
		log.Fatalf("signer init failed: %v", err)
	}
	log.Printf("custodial signer address: %s", signer.Address())
	wallet := prex.NewClient(cfg.Prex.APIBase, cfg.Prex.APIKey, cfg.Prex.PolicyID, cfg.Prex.ChainID, signer)

	posClient := smaregi.NewClient(
		cfg.Smaregi.APIBase,
		cfg.Smaregi.AuthURL,
		cfg.Smaregi.ClientID,
		cfg.Smaregi.ClientSecret,
		cfg.Smaregi.ContractID,
	)

	h := &internalhttp.Handler{
		Checkout: &services.CheckoutService{
			Square:     squareClient,
			LocationID: cfg.Square.LocationID,
			BaseURL:    cfg.Checkout.BaseURL,
			Currency:   cfg.Checkout.Currency,
		},
		Status: &services.StatusService{
			Orders:     squareClient,
			LocationID: cfg.Square.LocationID,
		},
		POS: &services.POSService{
			Orders:     squareClient,
			POS:        posClient,
			StoreID:    cfg.Smaregi.StoreID,
			TerminalID: cfg.Smaregi.TerminalID,
		},
		Webhook: &internalhttp.WebhookHandler{
			Verifier: square.Verifier{
				SignatureKey:    cfg.Square.WebhookSignatureKey,
				NotificationURL: cfg.Square.NotificationURL,
			},
			Processor: &disburse.Processor{
				Ledger:       st,
				Orders:       squareClient,
				Wallet:       wallet,
				TokenAddress: cfg.Prex.TokenAddress,
				RetryDelay:   time.Duration(cfg.Worker.BackoffSeconds) * time.Second,
			},
		},
		Feed: &internalhttp.OrderFeed{Store: st},
	}
	srv := internalhttp.NewServer(h)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router,
	}

	go func() {
		log.Printf("api listening on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}
