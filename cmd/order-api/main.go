package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ashendes/order-api/internal/api"
	"github.com/ashendes/order-api/internal/auth"
	"github.com/ashendes/order-api/internal/config"
	"github.com/ashendes/order-api/internal/engine"
	"github.com/ashendes/order-api/internal/lifecycle"
	"github.com/ashendes/order-api/internal/notify"
	"github.com/ashendes/order-api/internal/stock"
	"github.com/ashendes/order-api/internal/storage"
)

func init() {
	// Initialize logger
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
}

func main() {
	cfg := config.Load()

	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatal("Failed to open store: ", err)
	}
	defer store.Close()

	ctx := context.Background()
	if cfg.SeedCatalog {
		if err := store.SeedCatalog(ctx); err != nil {
			log.Fatal("Failed to seed catalog: ", err)
		}
		log.Info("Catalog seeded with sample items")
	}

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.NotifyServiceURL != "" {
		notifier = notify.NewSMSNotifier(cfg.NotifyServiceURL)
	}

	var verifier auth.Verifier
	if cfg.AuthServiceURL != "" {
		verifier = auth.NewRemoteVerifier(cfg.AuthServiceURL)
	} else {
		verifier = auth.NewStaticVerifier(cfg.APIToken)
	}

	validator := stock.NewValidator(store)
	manager := lifecycle.NewManager(store, notifier)
	commitEngine := engine.NewEngine(store, validator, manager)

	server := api.NewServer(store, commitEngine, manager, verifier)
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.Router(),
	}

	log.WithFields(log.Fields{
		"addr":       cfg.Addr,
		"db_path":    cfg.DBPath,
		"auth_url":   cfg.AuthServiceURL,
		"notify_url": cfg.NotifyServiceURL,
	}).Info("Order API starting")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down")
		return srv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		log.Error("Server exited: ", err)
		os.Exit(1)
	}
}
