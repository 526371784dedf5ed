package api

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mescon/Dupearr/internal/config"
)

// SystemInfo contains runtime environment information
type SystemInfo struct {
	Version     string           `json:"version"`
	Environment string           `json:"environment"` // "docker" or "native"
	OS          string           `json:"os"`
	Arch        string           `json:"arch"`
	GoVersion   string           `json:"go_version"`
	Uptime      string           `json:"uptime"`
	UptimeSecs  int64            `json:"uptime_seconds"`
	StartedAt   time.Time        `json:"started_at"`
	Config      SystemConfigInfo `json:"config"`
}

// SystemConfigInfo contains configuration details
type SystemConfigInfo struct {
	Port          string `json:"port"`
	LogLevel      string `json:"log_level"`
	DataDir       string `json:"data_dir"`
	DatabasePath  string `json:"database_path"`
	LogDir        string `json:"log_dir"`
	RetentionDays int    `json:"retention_days"`
	Workers       int    `json:"workers"`
	ScanCron      string `json:"scan_cron,omitempty"`
}

func (s *RESTServer) handleHealth(c *gin.Context) {
	dbStatus := "ok"
	if err := s.repo.DB.Ping(); err != nil {
		dbStatus = "unreachable"
	}

	status := http.StatusOK
	if dbStatus != "ok" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   dbStatus,
		"version":  config.Version,
		"uptime":   time.Since(s.startTime).Round(time.Second).String(),
		"ws_count": s.hub.ClientCount(),
	})
}

func (s *RESTServer) handleSystemInfo(c *gin.Context) {
	cfg := config.Get()

	environment := "native"
	if _, err := os.Stat("/.dockerenv"); err == nil {
		environment = "docker"
	}

	uptime := time.Since(s.startTime)
	c.JSON(http.StatusOK, SystemInfo{
		Version:     config.Version,
		Environment: environment,
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
		GoVersion:   runtime.Version(),
		Uptime:      uptime.Round(time.Second).String(),
		UptimeSecs:  int64(uptime.Seconds()),
		StartedAt:   s.startTime,
		Config: SystemConfigInfo{
			Port:          cfg.Port,
			LogLevel:      cfg.LogLevel,
			DataDir:       cfg.DataDir,
			DatabasePath:  cfg.DatabasePath,
			LogDir:        cfg.LogDir,
			RetentionDays: cfg.RetentionDays,
			Workers:       cfg.Workers,
			ScanCron:      cfg.ScanCron,
		},
	})
}
