package bootstrap

import (
	"context"
	"log"

	"ecospectre-be/internal/config"
	"ecospectre-be/internal/controller"
	"ecospectre-be/internal/handler"
	"ecospectre-be/internal/pkg/logger"
	"ecospectre-be/internal/pkg/serverutils"
	"ecospectre-be/internal/repository/memory"
	"ecospectre-be/internal/repository/unitofwork"
	"ecospectre-be/internal/service"
	"ecospectre-be/internal/websocket"

	pktNats "ecospectre-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	ScanController   controller.IScanController
	AuthController   controller.IAuthController
	UserController   controller.IUserController
	HealthController controller.IHealthController

	// Background Services (Exposed for main.go to run)
	ReconcileService service.IReconcileService
	FeedService      *service.FeedService

	// WebSockets
	ScanFeedHandler *handler.ScanFeedHandler
	WebSocketHub    *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

// Infra carries the externally owned connections. Nil NATS or Redis clients degrade gracefully.
type Infra struct {
	DB         unitofwork.DBSource
	NatsPub    *pktNats.Publisher
	NatsSub    *pktNats.Subscriber
	Redis      *redis.Client
	Logger     logger.ILogger
	FeedLogger logger.ILogger
}

// NewContainer connects to NATS and Redis itself; failures are logged and the feature is disabled.
func NewContainer(db unitofwork.DBSource, cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		natsSub = nil
	}

	var rdb *redis.Client
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb = redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		_ = rdb.Close()
		rdb = nil
	}

	return NewContainerWithInfra(Infra{
		DB:         db,
		NatsPub:    natsPub,
		NatsSub:    natsSub,
		Redis:      rdb,
		Logger:     sysLogger,
		FeedLogger: logger.NewIsolatedLogger("logs/scan_feed.log"),
	}, cfg)
}

// NewContainerWithInfra wires services on top of already established infrastructure.
func NewContainerWithInfra(infra Infra, cfg *config.Config) *Container {
	sysLogger := infra.Logger
	if sysLogger == nil {
		sysLogger = logger.NewNopLogger()
	}
	feedLogger := infra.FeedLogger
	if feedLogger == nil {
		feedLogger = sysLogger
	}

	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(infra.DB)
	transientRepo := memory.NewScanRepository(cfg.Scans.TransientCapacity)

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)

	var idempotency service.IdempotencyStore
	if infra.Redis != nil {
		idempotency = service.NewRedisIdempotencyStore(infra.Redis, cfg.Scans.IdempotencyTTL, sysLogger)
	} else {
		idempotency = service.NewCacheIdempotencyStore(cfg.Scans.IdempotencyTTL)
	}

	// 3. WebSocket Hub
	hubCtx, stopHub := context.WithCancel(context.Background())
	wsHub := websocket.NewHub(infra.Redis, feedLogger)
	go wsHub.Run(hubCtx)

	// Events flow through NATS when connected; otherwise the hub is fed directly.
	var directFeed service.ScanFeed = wsHub
	var feedService *service.FeedService
	if infra.NatsSub != nil && infra.NatsPub != nil {
		directFeed = nil
		feedService = service.NewFeedService(infra.NatsSub, wsHub, feedLogger)
	}

	// 4. Services
	scanService := service.NewScanService(
		uowFactory,
		transientRepo,
		idempotency,
		infra.NatsPub,
		directFeed,
		pubSub,
		sysLogger,
		cfg.Scans.ListLimit,
	)
	authService := service.NewAuthService(uowFactory, infra.NatsPub, serverutils.SignToken, sysLogger)
	userService := service.NewUserService(uowFactory, infra.NatsPub, sysLogger)

	var reconcileService service.IReconcileService
	if cfg.Scans.ReconcileTransient {
		reconcileService = service.NewReconcileService(pubSub, uowFactory, transientRepo, sysLogger)
	}

	c := &Container{
		ScanController:   controller.NewScanController(scanService),
		AuthController:   controller.NewAuthController(authService),
		UserController:   controller.NewUserController(userService),
		HealthController: controller.NewHealthController(scanService),

		ReconcileService: reconcileService,
		FeedService:      feedService,

		ScanFeedHandler: handler.NewScanFeedHandler(wsHub, feedLogger),
		WebSocketHub:    wsHub,

		Logger: sysLogger,
	}
	c.closers = append(c.closers,
		stopHub,
		func() { _ = pubSub.Close() },
		infra.NatsSub.Close,
		infra.NatsPub.Close,
	)
	if infra.Redis != nil {
		c.closers = append(c.closers, func() { _ = infra.Redis.Close() })
	}
	return c
}

// Close releases background resources in reverse start order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
