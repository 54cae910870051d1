package handler

import (
	"context"
	"net/http"
	"time"

	"queuedesk/internal/realtime"
	"queuedesk/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity; never exposes credentials or internals.
// The notification DLQ depth is included so a stuck delivery collaborator
// shows up on the dashboard before anyone greps redis.
func Health(db *gorm.DB, rdb *redis.Client, hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		dlqDepth := int64(-1)
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		} else if n, err := worker.DLQLength(ctx, rdb, worker.QueueNotifications); err == nil {
			dlqDepth = n
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":                status == http.StatusOK,
			"db":                dbStatus,
			"redis":             redisStatus,
			"ws_clients":        hub.ClientCount(),
			"notifications_dlq": dlqDepth,
		})
	}
}
