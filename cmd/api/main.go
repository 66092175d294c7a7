package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"bridgeit/internal/adapter/api"
	"bridgeit/internal/adapter/api/handler"
	apimiddleware "bridgeit/internal/adapter/api/middleware"
	"bridgeit/internal/adapter/api/router"
	"bridgeit/internal/adapter/repository"
	domainrepo "bridgeit/internal/domain/repository"
	"bridgeit/internal/infrastructure/cache"
	"bridgeit/internal/infrastructure/firebase"
	"bridgeit/internal/infrastructure/ratelimit"
	"bridgeit/internal/infrastructure/storage"
	"bridgeit/internal/infrastructure/websocket"
	"bridgeit/internal/usecase"
	"bridgeit/pkg/config"
	"bridgeit/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		chatRepo    domainrepo.ConversationRepository
		profileRepo domainrepo.ProfileRepository
		verifier    apimiddleware.TokenVerifier
		avatars     usecase.AvatarURLResolver
	)

	switch cfg.StoreDriver {
	case "memory":
		if !cfg.IsDevelopment() {
			log.Fatalf("STORE_DRIVER=memory is only allowed with ENVIRONMENT=development")
		}
		logger.Warn("Using in-memory store and development tokens")
		chatRepo = repository.NewMemoryChatRepository()
		profileRepo = repository.NewMemoryProfileRepository()
		verifier = firebase.DevTokenVerifier{}

	case "firestore":
		var opts []option.ClientOption
		opt, err := firebase.CredentialsOption(cfg)
		if err != nil {
			log.Fatalf("Failed to load credentials: %v", err)
		}
		if opt != nil {
			opts = append(opts, opt)
		}

		firebaseApp, err := firebase.NewApp(ctx, cfg, opts...)
		if err != nil {
			log.Fatalf("%v", err)
		}

		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase Auth: %v", err)
		}
		verifier = firebase.NewFirebaseAuthClient(authClient)

		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
		if err != nil {
			log.Fatalf("Failed to create Firestore client: %v", err)
		}
		defer firestoreClient.Close()

		chatRepo = repository.NewFirestoreChatRepository(firestoreClient, cfg.ConversationCollection)
		profileRepo = repository.NewFirestoreProfileRepository(firestoreClient, cfg.JobSeekerCollection, cfg.EmployerCollection)

		if cfg.StorageBucket != "" {
			storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, time.Duration(cfg.AvatarURLTTL)*time.Minute, opts...)
			if err != nil {
				log.Fatalf("Failed to initialize Cloud Storage: %v", err)
			}
			defer storageClient.Close()
			avatars = storageClient
		}

	default:
		log.Fatalf("Unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	var identityCache usecase.IdentityCache = cache.NewMemoryIdentityCache()
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("Failed to initialize Redis: %v", err)
		}
		defer rdb.Close()
		identityCache = cache.NewRedisIdentityCache(rdb, time.Duration(cfg.IdentityCacheTTL)*time.Minute)
		logger.Info("Sharing identity cache through Redis at %s", cfg.RedisAddr)
	}

	location, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		logger.Warn("Unknown DEFAULT_TIMEZONE %q, using UTC", cfg.DefaultTimezone)
		location = time.UTC
	}

	rateLimiter := ratelimit.NewRateLimiter(ratelimit.DefaultLimits(cfg.SendMessagePerMinute, cfg.CreateConversationPerHour))
	rateLimiter.StartCleanupRoutine(30*time.Minute, ctx.Done())

	profileResolver := usecase.NewProfileResolver(profileRepo, identityCache, avatars)
	chatUseCase := usecase.NewChatUseCase(
		profileResolver,
		usecase.NewChatDirectory(chatRepo, profileResolver),
		usecase.NewChatThread(chatRepo, profileResolver, rateLimiter),
		usecase.NewUnreadTracker(chatRepo),
		location,
	)

	wsManager := websocket.NewManager(chatUseCase)
	wsManager.Start(ctx)

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(verifier)

	router.Setup(e, router.Handlers{
		Chat:      handler.NewChatHandler(chatUseCase),
		Profile:   handler.NewProfileHandler(chatUseCase),
		WebSocket: handler.NewWebSocketHandler(wsManager, authMiddleware),
		Health:    handler.NewHealthHandler(wsManager, cfg.StoreDriver),
	}, authMiddleware)

	go func() {
		logger.Info("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil {
			logger.Info("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown Error: %v", err)
	}
}
