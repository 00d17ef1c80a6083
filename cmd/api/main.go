package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/timeout"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shailjagaurzz/jan-kavach/internal/evidence"
	"github.com/shailjagaurzz/jan-kavach/internal/fraud"
	"github.com/shailjagaurzz/jan-kavach/internal/ledger"
	"github.com/shailjagaurzz/jan-kavach/pkg/common"
	"github.com/shailjagaurzz/jan-kavach/pkg/config"
	"github.com/shailjagaurzz/jan-kavach/pkg/database"
	"github.com/shailjagaurzz/jan-kavach/pkg/health"
	"github.com/shailjagaurzz/jan-kavach/pkg/logger"
	"github.com/shailjagaurzz/jan-kavach/pkg/middleware"
	"github.com/shailjagaurzz/jan-kavach/pkg/ratelimit"
	"github.com/shailjagaurzz/jan-kavach/pkg/redis"
	"github.com/shailjagaurzz/jan-kavach/pkg/secrets"
	"github.com/shailjagaurzz/jan-kavach/pkg/storage"
	"go.uber.org/zap"
)

const (
	serviceName    = "jan-kavach-api"
	serviceVersion = "1.0.0"
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	if err := applySecretOverrides(context.Background(), cfg); err != nil {
		logger.Fatal("Failed to resolve secrets", zap.Error(err))
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			Release:          serviceName + "@" + serviceVersion,
			TracesSampleRate: cfg.Sentry.SampleRate,
		}); err != nil {
			logger.Warn("Sentry initialization failed", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	if err := database.RunMigrations(&cfg.Database); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	pool, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer database.Close(pool)
	logger.Info("Connected to PostgreSQL")

	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis")

	ctx := context.Background()

	objectStore, err := storage.NewS3Storage(ctx, storage.S3Config{
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		BaseURL:   cfg.Storage.BaseURL,
	})
	if err != nil {
		logger.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	chain, err := ledger.New(
		ledger.WithDifficulty(cfg.Ledger.Difficulty),
		ledger.WithMaxSealAttempts(cfg.Ledger.MaxSealAttempts),
	)
	if err != nil {
		logger.Fatal("Failed to seal genesis block", zap.Error(err))
	}
	logger.Info("Evidence ledger initialized",
		zap.Int("difficulty", cfg.Ledger.Difficulty),
		zap.String("genesis_hash", chain.Stats().GenesisHash))

	fraudRepo := fraud.NewRepository(pool)
	fraudService, err := fraud.NewService(ctx, fraudRepo,
		fraud.WithReputationCache(fraud.NewRedisReputationCache(redisClient)))
	if err != nil {
		logger.Fatal("Failed to load fraud patterns", zap.Error(err))
	}
	fraudHandler := fraud.NewHandler(fraudService)

	evidenceRepo := evidence.NewRepository(pool)
	evidenceService := evidence.NewService(evidenceRepo, chain, objectStore)
	evidenceHandler := evidence.NewHandler(evidenceService)

	limiter := ratelimit.NewLimiter(redisClient.Client, cfg.RateLimit)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Metrics(serviceName))
	if cfg.Sentry.DSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.Server.CORSOrigins, ",")
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Correlation-ID"}
	router.Use(cors.New(corsConfig))

	healthChecks := map[string]func() error{
		"database": health.PoolChecker(pool),
		"redis":    health.RedisChecker(redisClient.Client),
		"ledger":   health.ChainChecker(chain.Validate),
	}

	router.GET("/healthz", common.HealthCheck(serviceName, serviceVersion))
	router.GET("/health/live", common.HealthCheck(serviceName, serviceVersion))
	router.GET("/health/ready", common.HealthCheckWithDeps(serviceName, serviceVersion, healthChecks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	api.Use(ratelimit.Middleware(limiter))
	{
		fraudRoutes := api.Group("/fraud")
		fraudRoutes.Use(timeout.New(
			timeout.WithTimeout(5*time.Second),
			timeout.WithHandler(func(c *gin.Context) { c.Next() }),
			timeout.WithResponse(func(c *gin.Context) {
				c.JSON(http.StatusRequestTimeout, gin.H{"error": "request timed out"})
			}),
		))
		{
			fraudRoutes.POST("/detect", fraudHandler.Detect)
			fraudRoutes.POST("/report", fraudHandler.Report)
			fraudRoutes.POST("/trusted", fraudHandler.AddTrusted)
			fraudRoutes.GET("/logs", fraudHandler.ListLogs)
			fraudRoutes.PATCH("/logs/:id/response", middleware.ValidateRequest(&fraud.ResponseRequest{}), fraudHandler.UpdateLogResponse)
		}

		evidenceRoutes := api.Group("/evidence")
		{
			evidenceRoutes.POST("", evidenceHandler.Upload)
			evidenceRoutes.GET("", evidenceHandler.List)
			evidenceRoutes.GET("/:id/verify", evidenceHandler.Verify)
			evidenceRoutes.GET("/:id/download", evidenceHandler.Download)
			evidenceRoutes.GET("/:id/url", evidenceHandler.PresignedDownload)
		}

		chainRoutes := api.Group("/chain")
		{
			chainRoutes.GET("/stats", evidenceHandler.ChainStats)
			chainRoutes.GET("/verify", evidenceHandler.VerifyChain)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AdminMiddleware())
		{
			admin.GET("/fraud/stats", fraudHandler.Stats)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("API server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Forced server shutdown", zap.Error(err))
	}
	logger.Info("Server stopped")
}

// applySecretOverrides swaps env-provided credentials for values resolved
// from the configured secrets backend. A missing provider leaves the
// plain env configuration untouched.
func applySecretOverrides(ctx context.Context, cfg *config.Config) error {
	if cfg.Secrets.Provider == "" {
		return nil
	}

	mgr, err := secrets.NewManager(secrets.Config{
		Provider: secrets.ProviderType(cfg.Secrets.Provider),
		Vault: secrets.VaultConfig{
			Address:   cfg.Secrets.VaultAddress,
			Token:     cfg.Secrets.VaultToken,
			Namespace: cfg.Secrets.VaultNamespace,
			MountPath: cfg.Secrets.VaultMount,
		},
		AWS: secrets.AWSConfig{Region: cfg.Secrets.AWSRegion},
		GCP: secrets.GCPConfig{
			ProjectID:       cfg.Secrets.GCPProjectID,
			CredentialsFile: cfg.Secrets.GCPCredentialsFile,
		},
		Kubernetes: secrets.KubernetesConfig{BasePath: cfg.Secrets.KubernetesBasePath},
	})
	if err != nil {
		return err
	}
	defer mgr.Close()

	overrides := []struct {
		name   string
		kind   secrets.SecretType
		ref    string
		target *string
	}{
		{"database_password", secrets.SecretDatabase, cfg.Secrets.DatabasePasswordRef, &cfg.Database.Password},
		{"jwt_secret", secrets.SecretJWTKeys, cfg.Secrets.JWTSecretRef, &cfg.JWT.Secret},
		{"redis_password", secrets.SecretRedis, cfg.Secrets.RedisPasswordRef, &cfg.Redis.Password},
		{"storage_secret_key", secrets.SecretStorage, cfg.Secrets.StorageSecretKeyRef, &cfg.Storage.SecretKey},
		{"sentry_dsn", secrets.SecretSentry, cfg.Secrets.SentryDSNRef, &cfg.Sentry.DSN},
	}
	for _, o := range overrides {
		if o.ref == "" {
			continue
		}
		ref, err := secrets.ParseReference(o.name, o.kind, o.ref)
		if err != nil {
			return err
		}
		value, err := mgr.GetString(ctx, ref)
		if err != nil {
			return err
		}
		*o.target = value
		logger.Info("Resolved secret override", zap.String("secret", o.name))
	}
	return nil
}
