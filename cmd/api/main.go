package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/parleychat/parley-backend/internal/config"
	"github.com/parleychat/parley-backend/internal/handler"
	"github.com/parleychat/parley-backend/internal/middleware"
	"github.com/parleychat/parley-backend/internal/migration"
	"github.com/parleychat/parley-backend/internal/repository"
	"github.com/parleychat/parley-backend/internal/routes"
	"github.com/parleychat/parley-backend/internal/service"
	"github.com/parleychat/parley-backend/internal/ws"
	pkgcache "github.com/parleychat/parley-backend/pkg/cache"
	"github.com/parleychat/parley-backend/pkg/jwt"
	pkglogger "github.com/parleychat/parley-backend/pkg/logger"
	pkgredis "github.com/parleychat/parley-backend/pkg/redis"
	pkgstorage "github.com/parleychat/parley-backend/pkg/storage"
)

// @title           Parley Backend API
// @version         1.0
// @description     Real-time chat backend
//
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func getConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pkglogger.Init(cfg.App.Env)
	logg := pkglogger.Get()
	logg.Info().Str("env", cfg.App.Env).Int("port", cfg.App.Port).Msg("starting")

	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := migration.Run(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		middleware.SetDBConnectionsActive(float64(sqlDB.Stats().OpenConnections))
	}

	// Redis is optional: without it the instance runs standalone with
	// no list cache and no cross-instance fan-out.
	redisClient, err := pkgredis.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
	)
	if err != nil {
		logg.Warn().Err(err).Msg("Redis unavailable, continuing without it")
		redisClient = nil
	}

	var cacheService pkgcache.Service
	if redisClient != nil {
		cacheService = pkgcache.NewService(redisClient)
	}

	var s3Client *pkgstorage.S3Client
	if cfg.Storage.Enabled && cfg.Storage.Bucket != "" {
		s3Client, err = pkgstorage.NewS3Client(pkgstorage.S3Config{
			Endpoint:        cfg.Storage.Endpoint,
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			Bucket:          cfg.Storage.Bucket,
			BasePath:        cfg.Storage.BasePath,
			ForcePathStyle:  cfg.Storage.ForcePathStyle,
		})
		if err != nil {
			logg.Warn().Err(err).Msg("S3 storage init failed, continuing without it")
			s3Client = nil
		}
	}

	hub := ws.NewHub(redisClient)
	go hub.Run()

	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	convRepo := repository.NewConversationRepository(db)
	memberRepo := repository.NewMembershipRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	blockRepo := repository.NewBlockRepository(db)

	// Services
	var media service.MediaResolver
	if s3Client != nil {
		media = s3Client
	}
	policy := service.NewAccessPolicy(memberRepo, blockRepo)
	chatService := service.NewChatService(convRepo, msgRepo, memberRepo, userRepo, policy, hub, cacheService, media)
	convService := service.NewConversationService(convRepo, msgRepo, memberRepo, userRepo, policy, hub, cacheService, media)
	blockService := service.NewBlockService(blockRepo, userRepo)
	userService := service.NewUserService(userRepo, cacheService, media)

	// Handlers
	conversationHandler := handler.NewConversationHandler(convService, chatService)
	blockHandler := handler.NewBlockHandler(blockService)
	userHandler := handler.NewUserHandler(userService)
	mediaHandler := handler.NewMediaHandler(s3Client)
	wsHandler := handler.NewWSHandler(hub, chatService, cfg.CORS.AllowOrigins)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	allowOrigins := cfg.CORS.AllowOrigins
	if allowOrigins == "" {
		allowOrigins = "http://localhost:3000"
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     splitAndTrim(allowOrigins),
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Remaining"},
		MaxAge:           86400,
	}))

	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())
	if redisClient != nil && !cfg.IsDevelopment() {
		router.Use(middleware.RateLimit(redisClient, middleware.DefaultRateLimitConfig()))
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "parley-backend",
			"time":    time.Now().Unix(),
		})
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.Setup(router, conversationHandler, blockHandler, userHandler, mediaHandler, wsHandler, userService, jwtManager)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		logg.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info().Msg("shutting down")
	hub.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logg.Error().Err(err).Msg("forced shutdown")
	}
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	mysqlCfg, err := mysqldriver.ParseDSN(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("invalid DSN: %w", err)
	}
	if mysqlCfg.Params == nil {
		mysqlCfg.Params = map[string]string{}
	}

	gormCfg := &gorm.Config{
		// Unique-index violations must surface as gorm.ErrDuplicatedKey
		// for idempotent message creation.
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}
	db, err := gorm.Open(mysql.Open(mysqlCfg.FormatDSN()), gormCfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
