package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ripplegate/ripplegate/config"
	"github.com/ripplegate/ripplegate/internal/handlers"
	"github.com/ripplegate/ripplegate/internal/ledger"
	"github.com/ripplegate/ripplegate/internal/lock"
	"github.com/ripplegate/ripplegate/internal/middleware"
	"github.com/ripplegate/ripplegate/internal/notify"
	"github.com/ripplegate/ripplegate/internal/purchase"
	"github.com/ripplegate/ripplegate/internal/store"
)

const shutdownTimeout = 15 * time.Second

// Start wires every dependency and serves until ctx is cancelled.
func Start(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := config.InitDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	st := store.New(db)

	gateway, err := ledger.NewGateway(ledger.Config{
		Endpoint:        cfg.LedgerRPCURL,
		PlatformAddress: cfg.LedgerPlatformAddress,
		PlatformSeed:    cfg.LedgerPlatformSeed,
		PollInterval:    cfg.LedgerPollInterval,
		SettleTimeout:   cfg.LedgerSettleTimeout,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize ledger gateway: %w", err)
	}

	var locker lock.Locker = lock.NewLocal()
	rdb, err := config.InitRedis(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
		locker = lock.NewRedis(rdb, cfg.LockTTL)
	}

	var publisher notify.Publisher = notify.Discard{}
	if cfg.PubNubPublishKey != "" && cfg.PubNubSubscribeKey != "" {
		publisher = notify.NewPubNub(notify.PubNubConfig{
			PublishKey:   cfg.PubNubPublishKey,
			SubscribeKey: cfg.PubNubSubscribeKey,
			SecretKey:    cfg.PubNubSecretKey,
		})
	}

	tickets := purchase.NewService(st, gateway,
		purchase.WithLocker(locker),
		purchase.WithNotifier(notify.New(publisher)),
		purchase.WithLedgerTimeout(cfg.LedgerTimeout),
		purchase.WithLogger(logger.With("module", "purchase", "layer", "service")),
	)

	h := handlers.New(st, tickets, gateway, handlers.AuthConfig{
		Secret:       cfg.JWTSecret,
		TokenTTL:     cfg.TokenTTL,
		SecureCookie: cfg.IsProduction(),
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.CORS(cfg.CORSOrigins))
	setupRoutes(r, h, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"module", "server",
			"operation", "listen",
			"addr", srv.Addr,
			"ledger", cfg.LedgerRPCURL,
			"distributed_lock", rdb != nil,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	// In-flight purchases hold ledger calls; give them time to settle.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("server shutting down", "module", "server", "operation", "shutdown")
	return srv.Shutdown(shutdownCtx)
}

func setupRoutes(r *gin.Engine, h *handlers.Handler, cfg *config.Config) {
	r.GET("/health", h.Health)
	if cfg.EnableMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	auth := middleware.JWTAuthMiddleware(cfg.JWTSecret)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.GET("/me", auth, h.Me)
	}

	events := r.Group("/events")
	{
		events.GET("", h.ListEvents)
		events.POST("", auth, h.CreateEvent)
	}

	tickets := r.Group("/tickets")
	{
		tickets.POST("/buy", h.BuyTicket)
		tickets.GET("/user/:userId", h.ListUserTickets)
		tickets.GET("/verify/:ticketId", h.VerifyTicket)
		tickets.GET("/nfts/:walletAddress", h.ListWalletNFTs)
		tickets.GET("/activity", h.RecentActivity)
		tickets.GET("/pending", auth, h.ListPendingTickets)
		tickets.GET("/:ticketId/qr", auth, h.GenerateTicketQR)
		tickets.POST("/validate", auth, h.ValidateTicket)
	}
}
