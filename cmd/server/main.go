package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/langchou/tripbook/internal/api/handlers"
	"github.com/langchou/tripbook/internal/api/homeassistant"
	"github.com/langchou/tripbook/internal/config"
	"github.com/langchou/tripbook/internal/cost"
	"github.com/langchou/tripbook/internal/datasource"
	"github.com/langchou/tripbook/internal/livestatus"
	"github.com/langchou/tripbook/internal/models"
	"github.com/langchou/tripbook/internal/repository"
	"github.com/langchou/tripbook/internal/service"
	"github.com/langchou/tripbook/pkg/ws"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting Tripbook",
		zap.String("port", cfg.ServerPort),
		zap.String("vehicle", cfg.VehicleName),
		zap.Bool("demo_mode", cfg.DemoMode),
		zap.Bool("configured", cfg.IsConfigured()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 连接数据库
	db, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database migrated successfully")

	tripRepo := repository.NewTripRepository(db)

	// 数据来源：启动时一次性选择，运行期间不切换
	var haClient *homeassistant.Client
	var conn handlers.ConnectionTester
	if !cfg.DemoMode && cfg.IsConfigured() {
		haClient = homeassistant.NewClient(cfg.HAURL, cfg.HAToken, cfg.HAConnectTimeout, cfg.HARequestTimeout)
		conn = haClient
		logger.Info("Using Home Assistant", zap.String("url", haClient.BaseURL()))
	}
	source := datasource.New(cfg.DemoMode, haClient, cfg.HABatteryEntity, cfg.HAOdometerEntity)
	logger.Info("Vehicle data source selected", zap.String("source", source.Name()))

	// WebSocket Hub
	wsHub := ws.NewHub(logger.Named("ws"))
	go wsHub.Run()
	defer wsHub.Stop()

	// 实时状态发布目标
	sinks := livestatus.Multi{livestatus.NewHubSink(wsHub)}
	if cfg.RedisAddr != "" {
		redisClient, err := livestatus.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("Redis unavailable, live status will only be pushed over websocket", zap.Error(err))
		} else {
			defer redisClient.Close()
			sinks = append(sinks, livestatus.NewRedisSink(redisClient, livestatus.DefaultKey))
			logger.Info("Publishing live status to redis", zap.String("addr", cfg.RedisAddr))
		}
	}

	var poller *service.DebugPoller
	if cfg.DebugLogging {
		poller = service.NewDebugPoller(logger.Named("debug_poller"), source, cfg.DebugPollInterval)
	}

	tripService := service.NewTripService(
		logger.Named("trip"),
		tripRepo,
		source,
		cost.Rates{Winter: cfg.CostPerPercentWinter, Summer: cfg.CostPerPercentSummer},
		service.Options{
			Configured:         cfg.IsConfigured(),
			DebugLogging:       cfg.DebugLogging,
			BatteryCapacityKwh: cfg.BatteryCapacityKwh,
		},
		sinks,
		poller,
	)

	if err := tripService.Restore(ctx); err != nil {
		logger.Fatal("Failed to restore trip state", zap.Error(err))
	}

	// 新连接先收到当前状态
	wsHub.SetInitDataProvider(func() interface{} {
		qctx, qcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer qcancel()
		active, err := tripService.ActiveTrip(qctx)
		if err != nil {
			logger.Warn("Failed to load active trip for websocket init", zap.Error(err))
		}
		return models.NewLiveStatus(active, tripService.Configured(), time.Now())
	})

	handler := handlers.NewHandler(
		logger.Named("http"),
		tripService,
		conn,
		wsHub,
		handlers.Options{
			VehicleName:        cfg.VehicleName,
			BatteryCapacityKwh: cfg.BatteryCapacityKwh,
			DemoMode:           cfg.DemoMode,
		},
	)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 进行中的行程保留在数据库中，下次启动时恢复
	tripService.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// initLogger 初始化日志
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}

// corsMiddleware CORS 中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
