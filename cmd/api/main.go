package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"hivley/config"
	"hivley/internal/events"
	"hivley/internal/handler"
	"hivley/internal/middleware"
	"hivley/internal/proxy"
	"hivley/internal/redis"
	"hivley/internal/repository"
	"hivley/internal/server"
	"hivley/internal/services"
	"hivley/internal/storage"
	"hivley/internal/websocket"
	"hivley/pkg/database"
	"hivley/pkg/logger"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "hivley",
		Short:        "Hivley messaging API",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply schema migrations before serving")
	return cmd
}

func serve(ctx context.Context, migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	mode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		mode = logger.ProductionMode
	}
	log := logger.NewWithOptions(mode, logger.Options{File: cfg.LogFile})
	defer log.Sync()

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if migrate {
		if err := repository.InitSchema(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	var wg sync.WaitGroup
	bgCtx, cancelBackground := context.WithCancel(ctx)
	defer func() {
		cancelBackground()
		wg.Wait()
	}()

	hub := websocket.NewHub()
	var (
		bus     events.Bus = hub
		cache   services.ProfileCacheStore
		limiter middleware.Limiter
	)
	if cfg.RedisEnabled {
		rdb := redis.NewClient(redis.Config{Host: cfg.RedisHost, Port: cfg.RedisPort, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := redis.Ping(ctx, rdb); err != nil {
			return fmt.Errorf("redis: %w", err)
		}

		bus = events.NewRedisBus(redis.NewPublisher(rdb))
		cache = redis.NewCacheStore(rdb, redis.DefaultCacheConfig())
		limits := redis.DefaultRateLimitConfig()
		limits.MessageLimit = cfg.MessageRateLimit
		limits.AuthLimit = cfg.AuthRateLimit
		limiter = redis.NewRateLimiter(rdb, limits)

		bridge := websocket.NewRedisBridge(redis.NewSubscriber(rdb), hub, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bridge.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Errorf("realtime bridge stopped: %v", err)
			}
		}()
		log.Infof("realtime fan-out through redis at %s:%s", cfg.RedisHost, cfg.RedisPort)
	}

	var blobs storage.BlobStore = storage.Unavailable{}
	if cfg.S3Enabled() {
		s3Client, err := storage.NewClient(ctx, storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PublicBase: cfg.S3PublicBase,
		})
		if err != nil {
			return fmt.Errorf("s3: %w", err)
		}
		if err := s3Client.HealthCheck(ctx); err != nil {
			log.Warnf("s3 bucket %s not reachable yet: %v", cfg.S3Bucket, err)
		}
		blobs = s3Client
	} else {
		log.Warnf("S3 is not configured; attachments will be rejected")
	}

	userRepo := repository.NewUserRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	presenceRepo := repository.NewPresenceRepository(db)

	publisher := services.NewEventPublisher(bus, log)
	access := proxy.NewAccessControl(convRepo)
	maxUpload := cfg.MaxUploadMB << 20

	authService := services.NewAuthService(userRepo, cfg)
	userService := services.NewUserService(userRepo, cache, log)
	conversationService := services.NewConversationService(db, convRepo, msgRepo, userService, access, publisher)
	messageService := services.NewMessageService(db, msgRepo, convRepo, access, blobs, publisher, log, maxUpload)
	statusService := services.NewStatusService(db, msgRepo, conversationService, access, publisher)
	presenceService := services.NewPresenceService(presenceRepo, convRepo, publisher, cfg.PresenceHeartbeat)

	sweeper := services.NewPresenceSweeper(presenceRepo, presenceService, log, cfg.PresenceSweepInterval, cfg.PresenceOfflineAfter)
	sweeper.Start()
	defer sweeper.Stop()

	srv := server.New(cfg, log)
	srv.SetupRoutes(&server.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Profile:      handler.NewProfileHandler(userService),
		Conversation: handler.NewConversationHandler(conversationService, statusService),
		Message:      handler.NewMessageHandler(messageService, maxUpload),
		Status:       handler.NewStatusHandler(statusService),
		Presence:     handler.NewPresenceHandler(presenceService),
		Realtime:     websocket.NewHandler(authService, hub, websocket.NewChannelAuthorizer(convRepo), presenceService, log),
	}, server.Dependencies{DB: db, Tokens: authService, Limiter: limiter})

	return srv.Run(ctx)
}
