package api

import (
	"net/http"

	"github.com/eternisai/push-bridge/internal/logger"
	"github.com/eternisai/push-bridge/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Sockets are the WebSocket endpoints mounted next to the REST routes. Nil
// entries are not mounted (the native bridge is not served when it runs over
// NATS).
type Sockets struct {
	Native http.Handler
	Web    http.Handler
	UI     http.Handler
}

// SetupRouter builds the gin engine.
func SetupRouter(h *Handler, sockets Sockets, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.RequestLoggingMiddleware(log))

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/firebase-config", h.FirebaseConfig)

	if sockets.Native != nil {
		router.GET("/bridge/native", gin.WrapH(sockets.Native))
	}
	if sockets.Web != nil {
		router.GET("/bridge/web", gin.WrapH(sockets.Web))
	}
	if sockets.UI != nil {
		router.GET("/ws/ui", gin.WrapH(sockets.UI))
	}

	api := router.Group("/api/v1")
	{
		api.GET("/state", h.GetState)
		api.POST("/session", h.LoadSession)
		api.DELETE("/log", h.ClearLog())
		api.DELETE("/toast", h.CloseToast())
		api.POST("/confirmations/:id", h.AnswerConfirmation)

		actions := api.Group("/actions")
		{
			actions.POST("/enable-web-push", h.EnableWebPush())
			actions.POST("/native-token", h.GetNativeToken())
			actions.POST("/change-locale", h.ChangeLocale)
			actions.POST("/logout", h.Logout)
			actions.POST("/web-logout", h.WebLogout)
			actions.POST("/send-log", h.SendLog)
			actions.POST("/simulate", h.Simulate())
			actions.POST("/open-url", h.OpenURL)
			actions.POST("/copy-token", h.CopyToken)
			actions.POST("/submit-token", h.SubmitToken())
			actions.POST("/test-push", h.SendTestPush())
		}
	}

	return router
}
