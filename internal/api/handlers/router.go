package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/langchou/tripbook/internal/cost"
	"github.com/langchou/tripbook/internal/models"
	"github.com/langchou/tripbook/internal/state"
	"github.com/langchou/tripbook/pkg/ws"
)

// TripService 行程服务
type TripService interface {
	StartTrip(ctx context.Context) (*models.Trip, error)
	StartTripManually(ctx context.Context, batteryPercent float64) (*models.Trip, error)
	EndTrip(ctx context.Context) (*models.Trip, error)
	EndTripManually(ctx context.Context, batteryPercent float64) (*models.Trip, error)
	CreateManualTrip(ctx context.Context, fields models.TripFields) (*models.Trip, error)
	UpdateTrip(ctx context.Context, id uuid.UUID, fields models.TripFields) (*models.Trip, error)
	DeleteTrip(ctx context.Context, id uuid.UUID) error
	ActiveTrip(ctx context.Context) (*models.Trip, error)
	GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error)
	CompletedTrips(ctx context.Context) ([]*models.Trip, error)
	TripsInMonth(ctx context.Context, year int, month time.Month) ([]*models.Trip, error)
	MonthlySummary(ctx context.Context, year int, month time.Month) (cost.Summary, []*models.Trip, error)
	Rates() cost.Rates
	State() *state.TripState
	Configured() bool
	DebugLog() []models.DebugSample
}

// ConnectionTester 检查数据来源连接
type ConnectionTester interface {
	TestConnection(ctx context.Context) error
}

// Options 处理器选项
type Options struct {
	VehicleName        string
	BatteryCapacityKwh float64
	DemoMode           bool
}

// Handler HTTP 处理器
type Handler struct {
	logger   *zap.Logger
	trips    TripService
	conn     ConnectionTester // 演示模式或未配置时为 nil
	wsHub    *ws.Hub
	opts     Options
	upgrader websocket.Upgrader
	now      func() time.Time
}

// NewHandler 创建处理器
func NewHandler(
	logger *zap.Logger,
	trips TripService,
	conn ConnectionTester,
	wsHub *ws.Hub,
	opts Options,
) *Handler {
	if opts.BatteryCapacityKwh <= 0 {
		opts.BatteryCapacityKwh = models.DefaultBatteryCapacityKwh
	}
	return &Handler{
		logger: logger,
		trips:  trips,
		conn:   conn,
		wsHub:  wsHub,
		opts:   opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 开发环境允许所有来源
			},
		},
		now: time.Now,
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		// 行程生命周期
		api.POST("/trips/start", h.StartTrip)
		api.POST("/trips/start/manual", h.StartTripManually)
		api.POST("/trips/end", h.EndTrip)
		api.POST("/trips/end/manual", h.EndTripManually)
		api.GET("/trips/active", h.GetActiveTrip)

		// 行程记录
		api.GET("/trips", h.ListTrips)
		api.POST("/trips", h.CreateTrip)
		api.GET("/trips/:id", h.GetTrip)
		api.PUT("/trips/:id", h.UpdateTrip)
		api.DELETE("/trips/:id", h.DeleteTrip)

		// 月度
		api.GET("/months/:month/trips", h.ListMonthTrips)
		api.GET("/months/:month/summary", h.GetMonthSummary)
		api.GET("/months/:month/export.csv", h.ExportMonthCSV)
		api.GET("/months/:month/report", h.GetMonthReport)

		// 调试
		api.GET("/debug/log", h.GetDebugLog)
		api.GET("/debug/log.csv", h.ExportDebugLog)

		api.GET("/connection", h.TestConnection)
		api.GET("/status", h.GetStatus)
	}

	// WebSocket
	if h.wsHub != nil {
		r.GET("/ws", h.HandleWebSocket)
	}

	// 健康检查
	r.GET("/health", h.HealthCheck)
}

// HandleWebSocket WebSocket 处理
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	client.Register()

	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	clients := 0
	if h.wsHub != nil {
		clients = h.wsHub.ClientCount()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ws_clients": clients,
	})
}
