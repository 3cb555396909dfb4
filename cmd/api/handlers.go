package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/capture"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/controller"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/database"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/logging"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/middleware"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// historyLister is the read side of the download history
type historyLister interface {
	List(ctx context.Context, filter database.HistoryFilter) ([]*models.DownloadRecord, error)
}

type healthCheck struct {
	name string
	ping func(ctx context.Context) error
}

// API exposes the controller over HTTP
type API struct {
	ctrl    *controller.Controller
	surface *capture.Surface
	history historyLister
	hub     *viewHub
	checks  []healthCheck
	logger  *logging.Logger
}

func setupRouter(api *API, jwtSecret string, limiter *middleware.RateLimiter, logger *logging.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(logger))
	router.SetHTMLTemplate(captureTemplates)

	router.GET("/health", api.healthCheck)

	protected := []gin.HandlerFunc{middleware.JWTAuth(jwtSecret)}
	if limiter != nil {
		protected = append(protected, middleware.RateLimit(limiter))
	}

	// Capture form
	login := router.Group("/capture", protected...)
	{
		login.GET("", api.captureForm)
		login.POST("", api.submitCapture)
	}

	v1 := router.Group("/api/v1", protected...)
	{
		// State
		v1.GET("/view", api.getView)
		v1.GET("/events", api.streamViews)
		v1.GET("/ws", api.streamViewsWS)
		v1.DELETE("/notification", api.dismissNotification)

		// Input and preview
		v1.POST("/input", api.setInput)
		v1.POST("/input/refresh", api.refreshInput)
		v1.PUT("/quality", api.selectQuality)

		// Time range
		v1.PUT("/range/:field", api.setRange)
		v1.POST("/range/:field/keys", api.editRange)

		// Session
		v1.PUT("/destination", api.setDestination)
		v1.POST("/download", api.startDownload)
		v1.POST("/dependency/install", api.installDependency)
		v1.POST("/dependency/check", api.checkDependency)

		// Credentials
		v1.GET("/credentials", api.getCredentials)
		v1.PUT("/credentials", api.saveCredentials)
		v1.POST("/credentials/capture", api.beginCapture)
		v1.DELETE("/credentials/capture", api.closeCapture)

		// History
		v1.GET("/history", api.listHistory)
	}

	return router
}

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	for _, check := range api.checks {
		if err := check.ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"component": check.name,
				"error":     err.Error(),
			})
			return
		}
	}

	view := api.ctrl.View()
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"state":            view.State,
		"dependency_ready": view.DependencyReady,
	})
}

// respond writes the current view after a successful operation, or maps a
// controller error to a status code
func (api *API) respond(c *gin.Context, err error) {
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, api.ctrl.View())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, controller.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, controller.ErrBusy), errors.Is(err, controller.ErrInstalling):
		return http.StatusConflict
	case errors.Is(err, controller.ErrMissingReference),
		errors.Is(err, controller.ErrMissingDestination),
		errors.Is(err, controller.ErrInvalidRange),
		errors.Is(err, controller.ErrDependencyMissing):
		return http.StatusUnprocessableEntity
	case errors.Is(err, controller.ErrUnknownQuality):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (api *API) getView(c *gin.Context) {
	c.JSON(http.StatusOK, api.ctrl.View())
}

// streamViews sends the current view, then every update, as server-sent
// events until the client goes away
func (api *API) streamViews(c *gin.Context) {
	updates, release := api.hub.subscribe()
	defer release()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("view", api.ctrl.View())
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case view, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("view", view)
			return true
		}
	})
}

func (api *API) dismissNotification(c *gin.Context) {
	api.respond(c, api.ctrl.DismissNotification())
}

func (api *API) setInput(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	api.respond(c, api.ctrl.SetInput(req.Text))
}

func (api *API) refreshInput(c *gin.Context) {
	api.respond(c, api.ctrl.Refresh())
}

func (api *API) selectQuality(c *gin.Context) {
	var req struct {
		ID string `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	api.respond(c, api.ctrl.SelectQuality(req.ID))
}

func rangeField(c *gin.Context) (controller.RangeField, bool) {
	switch field := controller.RangeField(c.Param("field")); field {
	case controller.FieldStart, controller.FieldEnd:
		return field, true
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown range field"})
		return "", false
	}
}

func (api *API) setRange(c *gin.Context) {
	field, ok := rangeField(c)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	api.respond(c, api.ctrl.SetRange(field, req.Text))
}

func (api *API) editRange(c *gin.Context) {
	field, ok := rangeField(c)
	if !ok {
		return
	}

	var req struct {
		Keys []controller.KeyEvent `json:"keys" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, key := range req.Keys {
		switch key.Action {
		case controller.KeyDigit:
			if len(key.Digit) != 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Digit key needs exactly one character"})
				return
			}
		case controller.KeyBackspace, controller.KeyFocus:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown key action: " + string(key.Action)})
			return
		}
	}
	api.respond(c, api.ctrl.EditRange(field, req.Keys...))
}

func (api *API) setDestination(c *gin.Context) {
	var req struct {
		Dir string `json:"dir"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	api.respond(c, api.ctrl.SetDestination(req.Dir))
}

func (api *API) startDownload(c *gin.Context) {
	if err := api.ctrl.StartDownload(); err != nil {
		api.respond(c, err)
		return
	}
	c.JSON(http.StatusAccepted, api.ctrl.View())
}

func (api *API) installDependency(c *gin.Context) {
	if err := api.ctrl.InstallDependency(); err != nil {
		api.respond(c, err)
		return
	}
	c.JSON(http.StatusAccepted, api.ctrl.View())
}

func (api *API) checkDependency(c *gin.Context) {
	api.respond(c, api.ctrl.CheckDependency())
}

func (api *API) getCredentials(c *gin.Context) {
	view := api.ctrl.View()
	c.JSON(http.StatusOK, gin.H{
		"credentials":      view.Credentials,
		"awaiting_capture": view.AwaitingCapture,
	})
}

func (api *API) saveCredentials(c *gin.Context) {
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	api.respond(c, api.ctrl.SaveCredentials(creds))
}

func (api *API) beginCapture(c *gin.Context) {
	if err := api.ctrl.BeginCapture(); err != nil {
		api.respond(c, err)
		return
	}
	c.JSON(http.StatusAccepted, api.ctrl.View())
}

func (api *API) closeCapture(c *gin.Context) {
	api.surface.Close()
	c.Status(http.StatusNoContent)
}

func (api *API) listHistory(c *gin.Context) {
	if api.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Download history is disabled"})
		return
	}

	filter := database.HistoryFilter{
		Kind:    models.ReferenceKind(c.Query("kind")),
		MediaID: c.Query("media_id"),
		Status:  c.Query("status"),
	}
	var err error
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset"})
		return
	}

	records, err := api.history.List(c.Request.Context(), filter)
	if err != nil {
		api.logger.ErrorWithErr("Failed to list history", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list history"})
		return
	}
	if records == nil {
		records = []*models.DownloadRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"count":   len(records),
	})
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
