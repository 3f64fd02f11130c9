package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"google.golang.org/api/option"

	"github.com/bppowerplay/portal/internal/cache"
	"github.com/bppowerplay/portal/internal/config"
	"github.com/bppowerplay/portal/internal/handler"
	"github.com/bppowerplay/portal/internal/middleware"
	"github.com/bppowerplay/portal/internal/repository"
	"github.com/bppowerplay/portal/internal/service"
	"github.com/bppowerplay/portal/internal/ws"
	"github.com/bppowerplay/portal/pkg/auth"
	"github.com/bppowerplay/portal/pkg/identity"
	"github.com/bppowerplay/portal/pkg/mailer"
)

// @title           BP PowerPlay Portal Gateway
// @version         1.0
// @description     Edge gateway for the PowerPlay course portal: single-active-device sessions and offline content caching.

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()
	log.Printf("🚀 Starting PowerPlay Portal Gateway [env=%s]", cfg.App.Env)

	ctx := context.Background()

	// ==================== Redis (local session persistence) ====================
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	log.Println("✅ Connected to Redis")

	// ==================== Firebase (identity provider) ====================
	provider, err := identity.NewFirebase(ctx, identity.Config{
		CredentialsFile: cfg.Firebase.CredentialsFile,
		ProjectID:       cfg.Firebase.ProjectID,
		WebAPIKey:       cfg.Firebase.WebAPIKey,
	})
	if err != nil {
		log.Fatalf("❌ Failed to initialize identity provider: %v", err)
	}

	// ==================== Firestore (device-ownership store) ====================
	fsClient, err := firestore.NewClient(ctx, cfg.Firebase.ProjectID,
		option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	if err != nil {
		log.Fatalf("❌ Failed to connect to Firestore: %v", err)
	}
	defer fsClient.Close()
	log.Println("✅ Connected to Firestore")

	// ==================== Email (SMTP / Mailpit) ====================
	mailClient := mailer.New(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
	})
	log.Printf("📧 SMTP configured: %s:%s", cfg.SMTP.Host, cfg.SMTP.Port)

	// ==================== Initialize Layers ====================
	tokens := auth.NewTokenManager(cfg.Session.Secret, cfg.Session.Duration)

	sessionRepo := repository.NewSessionRepository(rdb)
	deviceRepo := repository.NewDeviceRepository(fsClient)

	// Page event hub (with Redis Pub/Sub for horizontal scaling)
	hub := ws.NewHub(rdb)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	// Session/Device Guard
	guard := service.NewGuard(provider, deviceRepo, sessionRepo, tokens, hub, mailClient, service.Config{
		SessionDuration: cfg.Session.Duration,
		VerifyInterval:  cfg.Session.VerifyInterval,
		WarningWindow:   cfg.Session.WarningWindow,
	})

	// Resume a persisted session, if any. State comes from the local store,
	// not from a network call.
	startCtx, startCancel := context.WithTimeout(ctx, 20*time.Second)
	if status, err := guard.CheckSession(startCtx); err != nil {
		log.Printf("⚠️  Session check on startup failed: %v", err)
	} else {
		log.Printf("🔐 Session state: %s", status.State)
	}
	startCancel()

	// ==================== Offline Cache Controller ====================
	cacheStore, err := cache.NewMinIOStore(cache.MinIOConfig{
		Endpoint:  cfg.MinIO.Endpoint,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Prefix:    cfg.Cache.BucketPrefix,
		UseSSL:    cfg.MinIO.UseSSL,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to MinIO: %v", err)
	}
	log.Println("✅ Connected to MinIO")

	controller, err := cache.NewController(cacheStore, hub, cache.ControllerConfig{
		Generation: cache.GenerationName(cfg.Cache.BucketPrefix, cfg.Cache.Version),
		OriginURL:  cfg.Origin.BaseURL,
		Manifest:   cfg.Cache.Manifest,
		FreshPath:  cfg.Cache.FreshPath,
	})
	if err != nil {
		log.Fatalf("❌ Failed to create cache controller: %v", err)
	}

	// Install + activate in the background; a failed install leaves requests
	// on their network paths until the next start.
	go func() {
		runCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := controller.Run(runCtx); err != nil {
			log.Printf("⚠️  Cache controller install failed: %v", err)
		}
	}()

	// Handlers
	authHandler := handler.NewAuthHandler(guard)
	wsHandler := handler.NewWSHandler(hub, controller, tokens)
	proxyHandler := handler.NewProxyHandler(controller)

	// ==================== Gin Router ====================
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Swagger configuration
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	url := ginSwagger.URL("/docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, url))

	// Global middleware
	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "powerplay-gateway",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// ==================== API Routes ====================
	api := router.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.GET("/session", authHandler.GetSession)
		}

		protected := api.Group("")
		protected.Use(middleware.SessionMiddleware(tokens, sessionRepo))
		{
			protected.POST("/auth/logout", authHandler.Logout)
		}
	}

	// Page event channel (auth via optional query parameter)
	router.GET("/ws", wsHandler.HandleWebSocket)

	// Everything else is portal content going through the cache controller
	router.NoRoute(proxyHandler.Handle)

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	log.Printf("🌐 Portal gateway running on http://0.0.0.0:%s", cfg.App.Port)
	log.Printf("📋 API docs: http://0.0.0.0:%s/swagger/index.html", cfg.App.Port)
	log.Printf("🔌 Page events: ws://0.0.0.0:%s/ws?token=<session token>", cfg.App.Port)
	log.Printf("📦 Cache generation: %s", controller.Generation())

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down gateway...")

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	guard.Stop()
	hubCancel()
	log.Println("✅ Gateway exited gracefully")
}
