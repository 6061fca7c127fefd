package routes

import (
	"context"
	"fmt"
	"os"
	"time"

	_ "quotes_service/docs" // generated by swag init
	"quotes_service/internal/adapter/http/handlers"
	"quotes_service/internal/adapter/http/middleware"
	"quotes_service/internal/adapter/persistence/repository"
	"quotes_service/internal/infrastructure/config"
	"quotes_service/internal/infrastructure/database"
	"quotes_service/internal/infrastructure/logger"
	"quotes_service/internal/infrastructure/pdf"
	"quotes_service/internal/usecase"
	"quotes_service/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const startupTimeout = 30 * time.Second

// Run will start the server
func Run() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	deps, err := buildDependencies(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("failed to initialize storage", "storage", cfg.StorageDriver, "sequence", cfg.SequenceDriver, "error", err)
	}
	defer deps.Close()

	router := NewRouter(cfg, log, deps.repo, deps.seq)

	log.Info("starting quotes service", "port", cfg.HTTPPort, "storage", cfg.StorageDriver, "sequence", cfg.SequenceDriver)
	if err := router.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatal("failed to startup the application", "error", err)
	}
}

// NewRouter wires the HTTP surface over an already built repository and allocator.
func NewRouter(cfg config.Config, log *logger.Logger, repo interfaces.IQuoteRepository, seq interfaces.ISequenceAllocator) *gin.Engine {
	if cfg.LogMode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Recovery(log))

	// Swagger documentation endpoint
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	quoteUseCase := usecase.NewQuoteUseCase(repo, seq,
		usecase.WithLogger(log.With("component", "quote_usecase")),
		usecase.WithAllocationRetry(cfg.AllocationMaxAttempts, cfg.AllocationInitialInterval),
	)
	quoteHandler := handlers.NewQuoteHandler(quoteUseCase, pdf.NewQuoteRenderer())
	auth := middleware.NewAuthMiddleware(log, middleware.AuthConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	})

	// Rotas publicas
	v1 := router.Group("/v1")
	addPingRoutes(v1)

	secured := v1.Group("", auth.RequireAuth())
	addQuoteRoutes(secured, quoteHandler)
	return router
}

type dependencies struct {
	repo    interfaces.IQuoteRepository
	seq     interfaces.ISequenceAllocator
	closers []func()
}

func (d *dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// buildDependencies connects the configured drivers and seeds the allocator from the
// highest number already stored, so a fresh counter never reissues an existing number.
func buildDependencies(ctx context.Context, cfg config.Config, log *logger.Logger) (*dependencies, error) {
	deps := &dependencies{}
	var (
		ddb *dynamodb.Client
		pg  *database.PostgresDB
	)
	dynamo := func() (*dynamodb.Client, error) {
		if ddb != nil {
			return ddb, nil
		}
		client, err := database.ConnectDynamoDB(ctx)
		if err != nil {
			return nil, err
		}
		if os.Getenv("DYNAMODB_ENDPOINT") != "" {
			if err := database.EnsureQuoteTables(ctx, client,
				getenvDefault("QUOTES_TABLE", "quotes"),
				getenvDefault("COUNTERS_TABLE", "quote_counters"),
			); err != nil {
				return nil, fmt.Errorf("ensure dynamodb tables: %w", err)
			}
		}
		ddb = client
		return ddb, nil
	}
	postgres := func() (*database.PostgresDB, error) {
		if pg != nil {
			return pg, nil
		}
		db, err := database.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, db.Close)
		if err := repository.ApplyPostgresSchema(ctx, db.Pool); err != nil {
			deps.Close()
			return nil, fmt.Errorf("apply postgres schema: %w", err)
		}
		pg = db
		return pg, nil
	}

	switch cfg.StorageDriver {
	case config.DriverMemory:
		deps.repo = repository.NewQuoteMemoryRepository()
	case config.DriverDynamoDB:
		client, err := dynamo()
		if err != nil {
			return nil, err
		}
		deps.repo = repository.NewQuoteDynamoRepository(client, cfg.MutateMaxAttempts)
	case config.DriverPostgres:
		db, err := postgres()
		if err != nil {
			return nil, err
		}
		deps.repo = repository.NewQuotePostgresRepository(db.Pool)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	switch cfg.SequenceDriver {
	case config.DriverMemory:
		deps.seq = repository.NewSequenceMemoryAllocator()
	case config.DriverDynamoDB:
		client, err := dynamo()
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.seq = repository.NewSequenceDynamoAllocator(client)
	case config.DriverPostgres:
		db, err := postgres()
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.seq = repository.NewSequencePostgresAllocator(db.Pool)
	case config.DriverRedis:
		client, err := database.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		deps.closers = append(deps.closers, func() { _ = client.Close() })
		deps.seq = repository.NewSequenceRedisAllocator(client, cfg.RedisSequenceKey)
	default:
		deps.Close()
		return nil, fmt.Errorf("unsupported sequence driver %q", cfg.SequenceDriver)
	}

	if err := seedAllocator(ctx, deps.repo, deps.seq, log); err != nil {
		deps.Close()
		return nil, err
	}
	return deps, nil
}

func seedAllocator(ctx context.Context, repo interfaces.IQuoteRepository, seq interfaces.ISequenceAllocator, log *logger.Logger) error {
	highest, err := repo.FindMaxSequence(ctx)
	if err != nil {
		return fmt.Errorf("find highest quote number: %w", err)
	}
	if err := seq.Seed(ctx, highest); err != nil {
		return fmt.Errorf("seed quote sequence: %w", err)
	}
	log.Info("quote sequence seeded", "floor", highest)
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
