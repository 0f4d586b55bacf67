// Package api is the console's HTTP surface.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/eternisai/push-bridge/internal/bridge"
	"github.com/eternisai/push-bridge/internal/console"
	apierrors "github.com/eternisai/push-bridge/internal/errors"
	"github.com/eternisai/push-bridge/internal/logger"
	"github.com/eternisai/push-bridge/internal/tokens"
	"github.com/eternisai/push-bridge/internal/ui"
	"github.com/gin-gonic/gin"
)

// Handler serves the session's state and actions.
type Handler struct {
	manager      *console.Manager
	hub          *ui.Hub
	workerConfig func() map[string]string
	logger       *logger.Logger
}

// NewHandler creates a handler. workerConfig may be nil.
func NewHandler(manager *console.Manager, hub *ui.Hub, workerConfig func() map[string]string, logger *logger.Logger) *Handler {
	return &Handler{
		manager:      manager,
		hub:          hub,
		workerConfig: workerConfig,
		logger:       logger,
	}
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// session returns the live session or aborts with 503.
func (h *Handler) session(c *gin.Context) (*console.Console, bool) {
	s := h.manager.Current()
	if s == nil {
		apierrors.AbortWithUnavailable(c, "no session loaded", nil)
		return nil, false
	}
	return s, true
}

// GetState handles GET /api/v1/state
func (h *Handler) GetState(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// LoadSession handles POST /api/v1/session. It replaces the current session,
// like reloading the page. ?versioninfo=mobileapp forces native mode.
func (h *Handler) LoadSession(c *gin.Context) {
	opts := console.OptionsFromQuery(c.Request.URL.Query())

	h.logger.WithContext(c.Request.Context()).WithComponent("api").Info("loading session",
		slog.Bool("force_native", opts.ForceNative))

	s := h.manager.Load(c.Request.Context(), opts)
	c.JSON(http.StatusCreated, s.Snapshot())
}

// action runs fn against the live session and answers with the resulting
// state.
func (h *Handler) action(name string, fn func(ctx context.Context, s *console.Console) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := h.session(c)
		if !ok {
			return
		}
		if err := fn(c.Request.Context(), s); err != nil {
			h.abortWithError(c, name, err)
			return
		}
		c.JSON(http.StatusOK, s.Snapshot())
	}
}

// abortWithError maps an action's refusal to a status code.
func (h *Handler) abortWithError(c *gin.Context, action string, err error) {
	log := h.logger.WithContext(c.Request.Context()).WithComponent("api")
	details := map[string]interface{}{"action": action}

	switch {
	case errors.Is(err, console.ErrWrongMode):
		apierrors.AbortWithConflict(c, err.Error(), details)
	case errors.Is(err, console.ErrNotConfirmed), errors.Is(err, console.ErrInvalidInput):
		apierrors.AbortWithBadRequest(c, err.Error(), details)
	case errors.Is(err, console.ErrNoToken):
		apierrors.AbortWithBadRequest(c, "No token available. Please get FCM token first.", details)
	case errors.Is(err, tokens.ErrNoStore), errors.Is(err, console.ErrPushUnavailable), errors.Is(err, console.ErrClosed):
		apierrors.AbortWithUnavailable(c, err.Error(), details)
	default:
		log.Error("action failed",
			slog.String("action", action),
			slog.String("error", err.Error()))
		apierrors.AbortWithInternal(c, "action failed", details)
	}
}

// EnableWebPush handles POST /api/v1/actions/enable-web-push
func (h *Handler) EnableWebPush() gin.HandlerFunc {
	return h.action("enable-web-push", func(ctx context.Context, s *console.Console) error {
		return s.EnableWebPush(ctx)
	})
}

// GetNativeToken handles POST /api/v1/actions/native-token
func (h *Handler) GetNativeToken() gin.HandlerFunc {
	return h.action("native-token", func(ctx context.Context, s *console.Console) error {
		return s.GetNativeToken(ctx)
	})
}

// ChangeLocale handles POST /api/v1/actions/change-locale
func (h *Handler) ChangeLocale(c *gin.Context) {
	var req ChangeLocaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.AbortWithBadRequest(c, err.Error(), nil)
		return
	}
	h.action("change-locale", func(ctx context.Context, s *console.Console) error {
		return s.ChangeLocale(ctx, req.Lang)
	})(c)
}

// Logout handles POST /api/v1/actions/logout
func (h *Handler) Logout(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.AbortWithBadRequest(c, err.Error(), nil)
		return
	}
	h.action("logout", func(ctx context.Context, s *console.Console) error {
		return s.Logout(ctx, req.Confirm)
	})(c)
}

// WebLogout handles POST /api/v1/actions/web-logout
func (h *Handler) WebLogout(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.AbortWithBadRequest(c, err.Error(), nil)
		return
	}
	h.action("web-logout", func(ctx context.Context, s *console.Console) error {
		return s.WebLogout(req.Confirm)
	})(c)
}

// SendLog handles POST /api/v1/actions/send-log
func (h *Handler) SendLog(c *gin.Context) {
	var req SendLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.AbortWithBadRequest(c, err.Error(), nil)
		return
	}
	h.action("send-log", func(ctx context.Context, s *console.Console) error {
		return s.SendLog(ctx, req.Message, bridge.LogLevel(req.Level))
	})(c)
}

// Simulate handles POST /api/v1/actions/simulate
func (h *Handler) Simulate() gin.HandlerFunc {
	return h.action("simulate", func(ctx context.Context, s *console.Console) error {
		return s.Simulate(ctx)
	})
}

// OpenURL handles POST /api/v1/actions/open-url
func (h *Handler) OpenURL(c *gin.Context) {
	var req OpenURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.AbortWithBadRequest(c, err.Error(), nil)
		return
	}
	h.action("open-url", func(ctx context.Context, s *console.Console) error {
		return s.OpenURL(ctx, req.URL, req.Internal)
	})(c)
}

// CopyToken handles POST /api/v1/actions/copy-token
func (h *Handler) CopyToken(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	token, err := s.CopyToken()
	if err != nil {
		h.abortWithError(c, "copy-token", err)
		return
	}
	c.JSON(http.StatusOK, CopyTokenResponse{Token: token})
}

// SubmitToken handles POST /api/v1/actions/submit-token
func (h *Handler) SubmitToken() gin.HandlerFunc {
	return h.action("submit-token", func(ctx context.Context, s *console.Console) error {
		return s.SubmitToken(ctx)
	})
}

// SendTestPush handles POST /api/v1/actions/test-push
func (h *Handler) SendTestPush() gin.HandlerFunc {
	return h.action("test-push", func(ctx context.Context, s *console.Console) error {
		return s.SendTestPush(ctx)
	})
}

// ClearLog handles DELETE /api/v1/log
func (h *Handler) ClearLog() gin.HandlerFunc {
	return h.action("clear-log", func(ctx context.Context, s *console.Console) error {
		s.ClearLog()
		return nil
	})
}

// CloseToast handles DELETE /api/v1/toast
func (h *Handler) CloseToast() gin.HandlerFunc {
	return h.action("close-toast", func(ctx context.Context, s *console.Console) error {
		s.CloseToast()
		return nil
	})
}

// AnswerConfirmation handles POST /api/v1/confirmations/:id
func (h *Handler) AnswerConfirmation(c *gin.Context) {
	var req ConfirmationAnswer
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.AbortWithBadRequest(c, err.Error(), nil)
		return
	}
	if err := h.hub.Resolve(c.Param("id"), req.Accepted); err != nil {
		apierrors.AbortWithNotFound(c, err.Error(), map[string]interface{}{"id": c.Param("id")})
		return
	}
	c.Status(http.StatusNoContent)
}

// FirebaseConfig handles GET /firebase-config. The background worker fetches
// it when it starts before the page has handed the config over.
func (h *Handler) FirebaseConfig(c *gin.Context) {
	cfg := map[string]string{}
	if h.workerConfig != nil {
		cfg = h.workerConfig()
	}
	c.JSON(http.StatusOK, cfg)
}
