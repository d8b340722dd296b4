package main

import (
	"context"
	"errors"
	"log"
	"time"
	_ "time/tzdata"

	"storefront-support/config"
	"storefront-support/internal/availability"
	"storefront-support/internal/clients"
	"storefront-support/internal/domain"
	"storefront-support/internal/escalation"
	"storefront-support/internal/events"
	"storefront-support/internal/handler"
	"storefront-support/internal/intent"
	"storefront-support/internal/metrics"
	"storefront-support/internal/redis"
	"storefront-support/internal/repository"
	"storefront-support/internal/responder"
	"storefront-support/internal/server"
	"storefront-support/internal/services"
	"storefront-support/internal/storage"
	"storefront-support/internal/websocket"
	"storefront-support/pkg/database"
	"storefront-support/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const (
	lockExpiry        = 15 * time.Second
	lockWaitMargin    = 10 * time.Second
	presenceSweep     = time.Minute
	presenceStaleness = 3 * time.Minute
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l := logger.New(cfg.AppEnv)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		l.Logger.Fatal("database", zap.Error(err))
	}
	defer database.Close()
	if err := repository.InitSchema(db); err != nil {
		l.Logger.Fatal("schema", zap.Error(err))
	}

	rdb := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := redis.Ping(ctx, rdb); err != nil {
		l.Logger.Fatal("redis", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	conversations := repository.NewConversationRepository(db)
	messages := repository.NewMessageRepository(db)

	publisher := redis.NewPublisher(rdb)
	bus := events.NewBus(publisher, nil)
	queue := redis.NewQueue(rdb)
	agents := redis.NewAgentPresence(rdb, publisher)
	replyTimeout := cfg.LLMTimeout + cfg.UpstreamTimeout
	// Waiters must outlast a holder running a full automated reply.
	locker := redis.NewLocker(rdb, lockExpiry, replyTimeout+lockWaitMargin)
	cache := redis.NewCacheStore(rdb)
	limiter := redis.NewRateLimiter(rdb, redis.RateLimitConfig{
		MessageLimit:  cfg.MessageRateLimit,
		MessageWindow: cfg.MessageRateWindow,
	})

	calendar, err := availability.LoadCalendar(cfg.WorkingHoursFile)
	if err != nil {
		l.Logger.Fatal("working hours", zap.Error(err))
	}
	checker := availability.NewChecker(calendar, time.Now)

	orders := clients.NewCachedOrderLookup(clients.NewOrderClient(cfg.OrderServiceURL, cfg.UpstreamTimeout), cache, cfg.LookupCacheTTL)
	catalog := clients.NewCachedCatalog(clients.NewCatalogClient(cfg.CatalogServiceURL, cfg.UpstreamTimeout), cache, cfg.LookupCacheTTL)
	generator := clients.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, cfg.LLMTimeout)
	resp := responder.New(orders, catalog, generator, cfg.StorefrontURL, cfg.HistoryWindow,
		responder.WithFailureHook(func(upstream string, err error) {
			m.UpstreamFailure(upstream)
		}),
	)

	manager := escalation.NewManager(conversations, queue, agents, locker, checker, escalation.Config{
		MaxQueueLength: cfg.MaxQueueLength,
		AutoAssign:     cfg.AutoAssign,
	}, m)
	manager.NotifyQueueChanges(bus)

	authService := services.NewAuthService(cfg)
	sessions := services.NewSessionService(conversations, messages, intent.NewKeywordClassifier(), resp, manager, locker, bus, m, services.SessionConfig{
		HistoryWindow:   cfg.HistoryWindow,
		DefaultLanguage: domain.NormalizeLanguage(cfg.DefaultLanguage),
		ReplyTimeout:    replyTimeout,
	})
	agentService := services.NewAgentService(conversations, messages, manager, agents, locker, bus, m, cfg.AgentCapacity, nil)
	availabilityService := services.NewAvailabilityService(checker, conversations)

	handlers := &server.Handlers{
		Conversation: handler.NewConversationHandler(sessions),
		Message:      handler.NewMessageHandler(sessions),
		Availability: handler.NewAvailabilityHandler(availabilityService),
		Agent:        handler.NewAgentHandler(agentService),
	}

	if cfg.S3Bucket != "" {
		store, err := storage.NewClient(ctx, storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PublicBase: cfg.S3PublicBase,
		})
		if err != nil {
			l.Logger.Fatal("object storage", zap.Error(err))
		}
		uploads := services.NewUploadService(store, conversations, sessions, cfg.UploadMaxBytes())
		handlers.Upload = handler.NewUploadHandler(uploads, cfg.UploadMaxBytes())
	} else {
		l.Infof("S3_BUCKET not set, uploads disabled")
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)
	bridge := websocket.NewRedisBridge(redis.NewSubscriber(rdb), hub)
	go runBridge(ctx, bridge, l)
	stream := websocket.NewHandler(websocket.NewConversationAuthorizer(conversations), hub, cfg.CORSAllowedOrigins, l)
	stream.OnAgentPong(agents.Heartbeat)
	handlers.Stream = stream

	go sweepPresence(ctx, agents, l)

	srv := server.New(cfg, l)
	srv.SetupRoutes(handlers, server.Dependencies{
		Auth:           authService,
		MessageLimiter: limiter,
		Gatherer:       registry,
		HealthChecks: map[string]func(context.Context) error{
			"database": database.HealthCheck,
			"redis": func(ctx context.Context) error {
				return redis.Ping(ctx, rdb)
			},
		},
	})

	if err := srv.Start(); err != nil {
		l.Errorf("server stopped with error: %v", err)
	}
}

// runBridge keeps the pub/sub relay alive across redis reconnects.
func runBridge(ctx context.Context, bridge *websocket.RedisBridge, l *logger.Logger) {
	for {
		err := bridge.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Warnf("event relay stopped: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// sweepPresence takes agents offline when their console stops sending heartbeats.
func sweepPresence(ctx context.Context, agents *redis.AgentPresence, l *logger.Logger) {
	ticker := time.NewTicker(presenceSweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := agents.CleanupStale(ctx, presenceStaleness)
			if err != nil {
				l.Warnf("presence sweep failed: %v", err)
				continue
			}
			if n > 0 {
				l.Infof("presence sweep took %d agents offline", n)
			}
		}
	}
}
