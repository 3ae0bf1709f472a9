package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/safwentrabelsi/delegate-notifier/analyzer"
	"github.com/safwentrabelsi/delegate-notifier/api"
	"github.com/safwentrabelsi/delegate-notifier/config"
	"github.com/safwentrabelsi/delegate-notifier/dispatcher"
	"github.com/safwentrabelsi/delegate-notifier/metrics"
	"github.com/safwentrabelsi/delegate-notifier/node"
	"github.com/safwentrabelsi/delegate-notifier/processor"
	"github.com/safwentrabelsi/delegate-notifier/router"
	"github.com/safwentrabelsi/delegate-notifier/store"
	"github.com/safwentrabelsi/delegate-notifier/types"
	"github.com/safwentrabelsi/delegate-notifier/utils"
	log "github.com/sirupsen/logrus"
)

const eventQueueSize = 100

func main() {
	configFile, err := config.ConfigFileFromEnv()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	logLevel, err := log.ParseLevel(cfg.Log.GetLevel())
	if err != nil {
		log.Fatal("Invalid log level in the config: ", err)
	}
	log.SetLevel(logLevel)

	if !cfg.Notifier.IsEnabled() {
		log.Info("Notifier is disabled in the config, exiting")
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// both stay nil interfaces when the delivery log is disabled
	var deliveryLog dispatcher.DeliveryLog
	var deliveryStore store.Storer
	if cfg.DB != nil {
		pgStore, err := store.NewPostgresStore(cfg.DB)
		if err != nil {
			log.Fatalf("Failed to initialize Postgres store: %v", err)
		}
		deliveryLog = pgStore
		deliveryStore = pgStore
	}

	if err := metrics.Init(); err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	nodeClient := node.NewClient(cfg.Node)
	eventRouter := router.NewRouter(
		router.BuildIndex(cfg.Notifier.GetExplorerTx(), cfg.Notifier.GetWebhooks()),
		analyzer.NewAnalyzer(nodeClient),
		dispatcher.NewDispatcher(cfg.Notifier, deliveryLog),
	)

	go utils.OnSignal(ctx, syscall.SIGHUP, func() {
		reloaded, err := config.ReadConfig(configFile)
		if err != nil {
			log.Errorf("Keeping current subscriptions, reload failed: %v", err)
			return
		}
		eventRouter.Reload(router.BuildIndex(reloaded.Notifier.GetExplorerTx(), reloaded.Notifier.GetWebhooks()))
	})

	events := make(chan *types.Event, eventQueueSize)
	eventProcessor := processor.NewProcessor(eventRouter, events)
	processorDone := make(chan struct{})
	go func() {
		defer close(processorDone)
		eventProcessor.Run(ctx)
	}()

	errs := make(chan error, 1)
	server := api.NewAPIServer(cfg.Server, deliveryStore, events)
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		if err := server.Run(ctx); err != nil {
			errs <- err
		}
	}()

	utils.HandleErrors(ctx, cancel, errs)
	<-serverDone
	<-processorDone
	log.Info("Shutdown completed")
}
