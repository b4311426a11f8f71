package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Chebah-Amine/bid-marketplace/internal/config"
	"github.com/Chebah-Amine/bid-marketplace/internal/database/db_client"
	"github.com/Chebah-Amine/bid-marketplace/internal/http/http_server"
	"github.com/Chebah-Amine/bid-marketplace/internal/redis/redis_client"
	"github.com/Chebah-Amine/bid-marketplace/internal/services/account"
	"github.com/Chebah-Amine/bid-marketplace/internal/services/market"
	"github.com/Chebah-Amine/bid-marketplace/internal/session"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis (sessions and flash messages)
	redisClient, err := redis_client.NewRedisClient(cfg.RedisSessionsHost, int(cfg.RedisSessionsPort))
	if err != nil {
		Log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()
	Log.Debug("Redis client created successfully")

	// 4. Postgres db client + schema
	pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()

	if err := db_client.EnsureSchema(ctx, pgDb); err != nil {
		Log.Fatal("pg-schema", zap.Error(err))
	}

	// 5. Services
	sessionTTL := time.Duration(cfg.SessionTTLHours) * time.Hour
	sessions := session.NewStore(redisClient, sessionTTL)
	marketService := market.NewMarketService(pgDb)
	accountService := account.NewAccountService(pgDb, cfg.BcryptCost)

	// 6. HTTP server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, marketService, accountService, sessions, sessionTTL)
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
