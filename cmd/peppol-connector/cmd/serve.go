package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/peppol-connector/internal/config"
	"github.com/rezonia/peppol-connector/internal/events"
	"github.com/rezonia/peppol-connector/internal/lifecycle"
	"github.com/rezonia/peppol-connector/internal/network"
	"github.com/rezonia/peppol-connector/internal/server"
)

var (
	serverAddr   string
	serverDebug  bool
	storeKind    string
	readTimeout  time.Duration
	writeTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server with a document registry.

The API provides endpoints for:
  - POST /api/v1/render                        - Render JSON to UBL
  - POST /api/v1/validate?profile=             - Validate JSON or UBL
  - POST /api/v1/xrechnung/extend?routing_id=  - Apply the XRechnung profile
  - GET  /api/v1/routing-ids/:id               - Parse a Leitweg-ID
  - GET  /api/v1/participants/:p/sml           - SML/BDXL names
  - POST /api/v1/documents                     - Register a document
  - POST /api/v1/documents/:id/{validate,xml,submit,refresh,transition}
  - GET  /api/v1/stats                         - Counts by status and type
  - GET  /health                               - Health check

Documents are submitted to an in-process gateway. Registry backend and
status fan-out are configured through PEPPOL_* variables.

Examples:
  # Start server on default port
  peppol-connector serve

  # Persist the registry in SQLite
  peppol-connector serve --store sqlite

  # Start in debug mode
  peppol-connector serve --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", "", "Server listen address (env: PEPPOL_ADDRESS)")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode (env: PEPPOL_DEBUG)")
	serveCmd.Flags().StringVar(&storeKind, "store", "", "Registry backend: memory, sqlite or redis (env: PEPPOL_STORE)")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 30*time.Second, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 2*time.Minute, "HTTP write timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serverAddr != "" {
		cfg.Address = serverAddr
	}
	if serverDebug {
		cfg.Debug = true
	}
	if storeKind != "" {
		cfg.Store = storeKind
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	log, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	validate, err := lifecycle.ValidatorFor(cfg.Profile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := cfg.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	manager := lifecycle.NewManager(store,
		lifecycle.WithTransmitter(network.NewMemoryGateway()),
		lifecycle.WithValidator(validate),
		lifecycle.WithLogger(log),
		lifecycle.WithCallTimeout(cfg.CallTimeout),
	)
	manager.Subscribe(lifecycle.Listener(events.LogSubscriber(log)))

	if cfg.NATSURL != "" {
		publisher, err := events.ConnectNATS(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return err
		}
		defer publisher.Close()
		manager.Subscribe(publisher.Notify)
		log.WithField("url", cfg.NATSURL).Info("publishing status changes to NATS")
	}

	srv := server.NewServer(&server.Config{
		Address:      cfg.Address,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		Debug:        cfg.Debug,
		Profile:      cfg.Profile,
		SMLZone:      cfg.SMLZone,
	}, manager, log)

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		fmt.Println("\nShutting down server...")
		store.Close()
		os.Exit(0)
	}()

	log.WithFields(map[string]interface{}{
		"address": cfg.Address,
		"store":   cfg.Store,
		"profile": cfg.Profile,
	}).Info("starting server")

	return srv.Run()
}
