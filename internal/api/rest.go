// Package api provides the REST API and WebSocket server for serve mode:
// run history, on-demand scans, report downloads and live log streaming.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mescon/Dupearr/internal/auth"
	"github.com/mescon/Dupearr/internal/config"
	"github.com/mescon/Dupearr/internal/db"
	"github.com/mescon/Dupearr/internal/eventbus"
	"github.com/mescon/Dupearr/internal/logger"
	"github.com/mescon/Dupearr/internal/metrics"
	"github.com/mescon/Dupearr/internal/services"
)

// SettingAPIKeyHash is the settings key holding the bcrypt hash of the API key.
const SettingAPIKeyHash = "api_key_hash"

type RESTServer struct {
	router     *gin.Engine
	httpServer *http.Server
	repo       *db.Repository
	eventBus   *eventbus.EventBus
	runner     *services.Runner
	scheduler  *services.SchedulerService
	metrics    *metrics.MetricsService
	hub        *WebSocketHub
	startTime  time.Time
}

// ServerDeps contains all dependencies required for the REST server
type ServerDeps struct {
	Repo      *db.Repository
	EventBus  *eventbus.EventBus
	Runner    *services.Runner
	Scheduler *services.SchedulerService
	Metrics   *metrics.MetricsService
}

func NewRESTServer(deps ServerDeps) *RESTServer {
	// Release mode suppresses gin's debug noise
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(requestIDMiddleware())
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		reqID := c.GetString("request_id")
		logger.Errorf("[PANIC RECOVERY] request_id=%s path=%s method=%s error=%v",
			reqID, c.Request.URL.Path, c.Request.Method, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":      "Internal server error",
			"request_id": reqID,
		})
	}))
	r.Use(corsMiddleware(os.Getenv("DUPEARR_CORS_ORIGIN")))

	s := &RESTServer{
		router:    r,
		repo:      deps.Repo,
		eventBus:  deps.EventBus,
		runner:    deps.Runner,
		scheduler: deps.Scheduler,
		metrics:   deps.Metrics,
		hub:       NewWebSocketHub(deps.EventBus),
		startTime: time.Now(),
	}

	s.setupRoutes()

	return s
}

// requestIDMiddleware tags each request with the caller's X-Request-ID,
// minting one when absent, so log lines correlate across handlers.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = fmt.Sprintf("%d-%d", time.Now().UnixNano(), c.Request.ContentLength)
		}
		c.Set("request_id", reqID)
		c.Header("X-Request-ID", reqID)
		c.Next()
	}
}

// corsMiddleware allows the origins listed in DUPEARR_CORS_ORIGIN (comma
// separated, or "*"). Unset keeps the API same-origin.
func corsMiddleware(corsOrigins string) gin.HandlerFunc {
	allowed := make(map[string]bool)
	for _, origin := range strings.Split(corsOrigins, ",") {
		if o := strings.TrimSpace(origin); o != "" {
			allowed[o] = true
		}
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		origin := c.GetHeader("Origin")
		switch {
		case corsOrigins == "*":
			h.Set("Access-Control-Allow-Origin", "*")
		case origin != "" && allowed[origin]:
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Vary", "Origin")
		}
		h.Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, X-API-Key, X-Requested-With")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *RESTServer) setupRoutes() {
	// Standard root-level scrape endpoint
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := s.router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/system/info", s.handleSystemInfo)

		protected := api.Group("")
		protected.Use(s.authMiddleware())
		{
			protected.GET("/runs", s.listRuns)
			protected.GET("/runs/:id", s.getRun)
			protected.GET("/runs/:id/groups", s.getRunGroups)
			protected.GET("/runs/:id/actions", s.getRunActions)

			protected.POST("/scans", scanLimiter.Middleware(), s.triggerRun)

			protected.GET("/reports/duplicates", s.getDuplicateReport)
			protected.GET("/reports/resolved", s.getResolvedReport)
			protected.GET("/reports/script", s.getCleanupScript)

			protected.GET("/schedule", s.getSchedule)
			protected.POST("/schedule", s.setSchedule)

			protected.POST("/auth/regenerate", s.regenerateAPIKey)

			protected.GET("/ws", func(c *gin.Context) {
				s.hub.HandleConnection(c)
			})
		}
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
}

func (s *RESTServer) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *RESTServer) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *RESTServer) Router() http.Handler {
	return s.router
}

// EnsureAPIKey makes sure an API key hash is stored, generating and returning
// a new plaintext key on first run. Returns empty when a key already exists.
func EnsureAPIKey(repo *db.Repository) (string, error) {
	_, err := repo.GetSetting(SettingAPIKeyHash)
	if err == nil {
		return "", nil
	}
	if err != db.ErrSettingNotFound {
		return "", err
	}

	key, err := auth.GenerateAPIKey()
	if err != nil {
		return "", err
	}
	hash, err := auth.HashAPIKey(key)
	if err != nil {
		return "", err
	}
	if err := repo.SetSetting(SettingAPIKeyHash, hash); err != nil {
		return "", err
	}
	return key, nil
}

func (s *RESTServer) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		hash, err := s.repo.GetSetting(SettingAPIKeyHash)
		if err == db.ErrSettingNotFound {
			// No key configured yet, auth is open
			c.Next()
			return
		}
		if err != nil {
			respondAuthError(c, err)
			c.Abort()
			return
		}

		token := c.GetHeader("X-API-Key")
		if token == "" {
			token = c.GetHeader("Authorization")
			if len(token) > 7 && token[:7] == "Bearer " {
				token = token[7:]
			}
		}
		// Query fallback for WebSocket clients
		if token == "" {
			token = c.Query("apikey")
		}

		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No authentication token provided"})
			c.Abort()
			return
		}

		if !auth.VerifyAPIKey(token, hash) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// regenerateAPIKey replaces the stored API key and returns the new plaintext
// key once.
func (s *RESTServer) regenerateAPIKey(c *gin.Context) {
	key, err := auth.GenerateAPIKey()
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, ErrMsgInternalError, err)
		return
	}
	hash, err := auth.HashAPIKey(key)
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, ErrMsgInternalError, err)
		return
	}
	if err := s.repo.SetSetting(SettingAPIKeyHash, hash); err != nil {
		respondDatabaseError(c, err)
		return
	}
	logger.Infof("API key regenerated")
	c.JSON(http.StatusOK, gin.H{"api_key": key})
}

func (s *RESTServer) getSchedule(c *gin.Context) {
	cfg := config.Get()
	resp := gin.H{"cron": cfg.ScanCron}
	if s.scheduler != nil {
		if next := s.scheduler.NextRun(); !next.IsZero() {
			resp["next_run"] = next
		}
	}
	c.JSON(http.StatusOK, resp)
}

type scheduleRequest struct {
	Cron string `json:"cron"`
}

// setSchedule replaces the scan schedule. An empty cron expression removes
// it. The change applies to the running process only.
func (s *RESTServer) setSchedule(c *gin.Context) {
	if s.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler is not running"})
		return
	}

	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err, true)
		return
	}

	if err := s.scheduler.SetSchedule(req.Cron); err != nil {
		respondBadRequest(c, err, true)
		return
	}
	config.Get().ScanCron = req.Cron
	logger.Infof("Scan schedule updated to %q", req.Cron)

	s.getSchedule(c)
}
