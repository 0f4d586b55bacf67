package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eternisai/push-bridge/internal/api"
	"github.com/eternisai/push-bridge/internal/bridge"
	"github.com/eternisai/push-bridge/internal/clock"
	"github.com/eternisai/push-bridge/internal/config"
	"github.com/eternisai/push-bridge/internal/console"
	"github.com/eternisai/push-bridge/internal/firebase"
	"github.com/eternisai/push-bridge/internal/logger"
	"github.com/eternisai/push-bridge/internal/notifications"
	"github.com/eternisai/push-bridge/internal/storage/pg"
	"github.com/eternisai/push-bridge/internal/tokens"
	"github.com/eternisai/push-bridge/internal/ui"
	"github.com/eternisai/push-bridge/internal/webfcm"
	"github.com/eternisai/push-bridge/internal/wsrpc"
	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/rs/cors"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig

	log := logger.New(logger.FromConfig(cfg.LogLevel, cfg.LogFormat))
	slog.SetDefault(log.Logger)

	log.Info("setting gin mode", slog.String("mode", cfg.GinMode))
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Firebase is optional: without it test pushes are disabled and the
	// Firestore token store is unavailable.
	var firebaseClient *firebase.Client
	if cfg.FirebaseProjectID != "" {
		fc, err := firebase.NewClient(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredJSON)
		if err != nil {
			log.Error("failed to initialize firebase", slog.String("error", err.Error()))
		} else {
			firebaseClient = fc
			defer fc.Close()
		}
	}

	push := newPushSender(ctx, cfg, firebaseClient, log)

	store, closeStore := newTokenStore(ctx, cfg, firebaseClient, log)
	defer closeStore()

	// Web messaging client.
	webEndpoint := wsrpc.NewEndpoint("web", log)
	webClient := webfcm.NewClient(webEndpoint, cfg.FirebaseVAPIDKey, cfg.FirebaseWeb, log)

	// Native bridge transport.
	var (
		caller         bridge.Caller
		signals        bridge.SignalSource
		nativeEndpoint *wsrpc.Endpoint
	)
	switch cfg.BridgeTransport {
	case config.BridgeTransportNATS:
		nc, err := nats.Connect(cfg.NatsURL,
			nats.Name("push-bridge"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second))
		if err != nil {
			log.Error("failed to connect to NATS", slog.String("url", cfg.NatsURL), slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer nc.Drain()
		log.Info("native bridge over NATS", slog.String("url", cfg.NatsURL))
		caller = bridge.NewNATSCaller(nc)
		signals = bridge.NewNATSSignals(nc, log)
	default:
		nativeEndpoint = wsrpc.NewEndpoint("native", log)
		caller = bridge.NewWSCaller(nativeEndpoint)
		signals = bridge.NewWSSignals(nativeEndpoint, log)
	}

	hub := ui.NewHub(log)

	manager := console.NewManager(console.Deps{
		Bridge:        bridge.NewFacade(caller, webClient, cfg.BridgeCallTimeout, log),
		Signals:       signals,
		Web:           webClient,
		Navigator:     hub,
		Tokens:        store,
		Push:          push,
		Clock:         clock.Real{},
		Logger:        log,
		ToastTimeout:  cfg.ToastTimeout,
		DeepLinkDelay: cfg.DeepLinkDelay,
		ProbeTimeout:  cfg.BridgeProbeTimeout,
		LogCapacity:   cfg.EventLogCapacity,
		OnChange:      hub.Notify,
	})
	defer manager.Close()

	go hub.Run(ctx, manager)
	manager.Load(ctx, console.Options{})

	if nativeEndpoint != nil {
		nativeEndpoint.OnReady(func(p *wsrpc.Peer) {
			if manager.Redetect(ctx) {
				log.Info("native host connected, session reloaded",
					slog.String("peer_id", p.ID()))
			}
		})
	}

	handler := api.NewHandler(manager, hub, webClient.WorkerConfig, log)
	sockets := api.Sockets{Web: webEndpoint, UI: hub}
	if nativeEndpoint != nil {
		sockets.Native = nativeEndpoint
	}
	router := api.SetupRouter(handler, sockets, log)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	})

	port := ":" + cfg.Port
	srv := &http.Server{
		Addr:    port,
		Handler: corsHandler.Handler(router),
	}

	go func() {
		log.Info("🔁 console listening", slog.String("addr", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("🛑 shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ServerShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	log.Info("✅ server exited")
}

func newPushSender(ctx context.Context, cfg *config.Config, fc *firebase.Client, log *logger.Logger) *notifications.Sender {
	opts := notifications.SenderOptions{
		Enabled:   cfg.PushNotificationsEnabled,
		DryRun:    cfg.PushDryRun,
		ProjectID: cfg.FirebaseProjectID,
		CredJSON:  cfg.FirebaseCredJSON,
	}
	if fc == nil {
		return notifications.NewSender(nil, log, opts)
	}

	client, err := fc.Messaging(ctx)
	if err != nil {
		log.Error("failed to initialize FCM, test pushes disabled", slog.String("error", err.Error()))
		return notifications.NewSender(nil, log, opts)
	}
	log.Info("test pushes enabled", slog.Bool("dry_run", cfg.PushDryRun))
	return notifications.NewSender(client, log, opts)
}

func newTokenStore(ctx context.Context, cfg *config.Config, fc *firebase.Client, log *logger.Logger) (tokens.Store, func()) {
	noop := func() {}

	switch cfg.TokenStore {
	case config.TokenStorePostgres:
		db, err := pg.InitDatabase(ctx, cfg.DatabaseURL, pg.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxIdleTime: time.Duration(cfg.DBConnMaxIdleTime) * time.Minute,
			ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetime) * time.Minute,
		}, log)
		if err != nil {
			log.Error("failed to initialize database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return tokens.NewPostgresStore(db.DB, log), func() { db.Close() }

	case config.TokenStoreFirestore:
		if fc == nil {
			log.Error("firestore token store needs firebase")
			os.Exit(1)
		}
		client, err := fc.Firestore(ctx)
		if err != nil {
			log.Error("failed to initialize firestore", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return tokens.NewFirestoreStore(client, log), noop

	case config.TokenStoreREST:
		return tokens.NewRESTStore(cfg.TokenRESTURL, cfg.TokenRESTAPIKey, cfg.TokenRESTTimeout, log), noop
	}

	log.Info("token submission disabled")
	return nil, noop
}
