package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messenger-client/internal/observability"
	"messenger-client/internal/session"
	"messenger-client/internal/telemetry"
)

// NewOpsRouter builds the local operational HTTP surface: health, metrics
// and a state snapshot for headless deployments of the client engine.
func NewOpsRouter(coord *session.Coordinator, emitter *telemetry.SyncEmitter, debugEnabled bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("messenger-client"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/debug/state", func(c *gin.Context) {
		state := gin.H{
			"conn_state":  coord.ConnState(),
			"active_chat": coord.ActiveChatID(),
			"chats":       len(coord.Chats()),
			"users":       len(coord.Users()),
			"typing":      coord.Typing(),
		}
		if sess, ok := coord.Session(); ok {
			state["username"] = sess.User.Username
			if active := coord.ActiveChatID(); active != "" {
				for _, chat := range coord.Chats() {
					if chat.ID == active {
						state["active_chat_name"] = chat.DisplayNameFor(sess.User.Username)
						break
					}
				}
			}
		}
		c.JSON(http.StatusOK, state)
	})

	registerDebugRoutes(router, emitter, debugEnabled)

	return router
}

// registerDebugRoutes wires debug-only endpoints.
func registerDebugRoutes(router *gin.Engine, emitter *telemetry.SyncEmitter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/sync-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sync emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "test", "sync event test", "")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
