package router

import (
	"context"
	"encoding/json"
	"time"

	"queuedesk/internal/config"
	"queuedesk/internal/dto"
	"queuedesk/internal/handler"
	"queuedesk/internal/middleware"
	"queuedesk/internal/realtime"
	"queuedesk/internal/repository"
	"queuedesk/internal/service"
	"queuedesk/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine plus the
// reset service, which the composition root also hands to the scheduler.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, hub *realtime.Hub) (*gin.Engine, service.ResetService) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	loc := cfg.Location()

	// ── Repositories ─────────────────────────────────────────────────────────
	queueRepo := repository.NewQueueRepository(db)
	txnRepo := repository.NewTransactionRepository(db)
	archiveRepo := repository.NewArchiveRepository(db)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	queueSvc := service.NewQueueService(queueRepo, hub, dispatcher, loc)
	settlementSvc := service.NewSettlementService(txnRepo, queueRepo, hub)
	resetSvc := service.NewResetService(archiveRepo, queueRepo, hub, cfg.ResetPolicy)

	// Subscribers get the full active queue as their first frame; deltas only
	// make sense against a known baseline.
	hub.SetSnapshotter(realtime.TopicQueue, func(ctx context.Context) (json.RawMessage, error) {
		snap, err := queueSvc.ListActiveQueue(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(snap)
	})
	hub.SetSnapshotter(realtime.TopicTransactions, func(ctx context.Context) (json.RawMessage, error) {
		open, err := settlementSvc.ListOpenTransactions(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string][]dto.TransactionResponse{"transactions": open})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	queueH := handler.NewQueueHandler(queueSvc)
	txnH := handler.NewTransactionsHandler(settlementSvc)
	archiveH := handler.NewArchiveHandler(resetSvc, loc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, hub))

	// Realtime observers (display boards) authenticate out of band; the
	// socket only ever pushes what the public board already shows.
	r.GET("/ws", handler.WebSocket(hub))

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: staff, supervisor, admin — declared per-endpoint
		anyStaff := middleware.RequireRole(middleware.RoleStaff, middleware.RoleSupervisor, middleware.RoleAdmin)
		supervisorUp := middleware.RequireRole(middleware.RoleSupervisor, middleware.RoleAdmin)
		adminOnly := middleware.RequireRole(middleware.RoleAdmin)

		queue := v1.Group("/queue")
		{
			queue.POST("", anyStaff, queueH.Register)
			queue.GET("", anyStaff, queueH.ListActive)
			queue.POST("/reorder", supervisorUp, queueH.Reorder)
			queue.GET("/:id", anyStaff, queueH.Get)
			queue.POST("/:id/call", anyStaff, queueH.Call)
			queue.POST("/:id/processing", anyStaff, queueH.MarkProcessing)
			queue.POST("/:id/complete", anyStaff, queueH.Complete)
			queue.POST("/:id/cancel", anyStaff, queueH.Cancel)
		}

		txns := v1.Group("/transactions")
		{
			txns.POST("", anyStaff, txnH.Create)
			txns.GET("/:id", anyStaff, txnH.Get)
			txns.POST("/:id/settlements", anyStaff, txnH.CreateSettlement)
			txns.GET("/:id/settlements", anyStaff, txnH.ListSettlements)
		}

		v1.GET("/archive/:date", supervisorUp, archiveH.GetDailyArchive)
		v1.GET("/reset/logs", supervisorUp, archiveH.ListResetLogs)
		v1.POST("/reset/run", adminOnly, archiveH.RunReset)
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r, resetSvc
}
