package api

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/mescon/Dupearr/internal/config"
	"github.com/mescon/Dupearr/internal/logger"
	"github.com/mescon/Dupearr/internal/services"
)

// runActive guards against overlapping API-triggered runs.
var runActive atomic.Bool

func (s *RESTServer) listRuns(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			respondBadRequest(c, err, false)
			return
		}
		limit = n
	}

	runs, err := s.repo.ListRuns(limit)
	if err != nil {
		respondDatabaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (s *RESTServer) getRun(c *gin.Context) {
	run, err := s.repo.GetRun(c.Param("id"))
	if err != nil {
		respondDatabaseError(c, err)
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrMsgRunNotFound})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *RESTServer) getRunGroups(c *gin.Context) {
	run, err := s.repo.GetRun(c.Param("id"))
	if err != nil {
		respondDatabaseError(c, err)
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrMsgRunNotFound})
		return
	}

	groups, err := s.repo.GetRunGroups(run.ID)
	if err != nil {
		respondDatabaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": run.ID, "groups": groups, "count": len(groups)})
}

func (s *RESTServer) getRunActions(c *gin.Context) {
	run, err := s.repo.GetRun(c.Param("id"))
	if err != nil {
		respondDatabaseError(c, err)
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrMsgRunNotFound})
		return
	}

	actions, err := s.repo.GetRunActions(run.ID)
	if err != nil {
		respondDatabaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": run.ID, "actions": actions, "count": len(actions)})
}

type triggerRunRequest struct {
	Kind  string   `json:"kind"`
	Roots []string `json:"roots"`
	Quick bool     `json:"quick"`
}

// triggerRun starts a scan or full run in the background. One run at a time.
func (s *RESTServer) triggerRun(c *gin.Context) {
	var req triggerRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err, true)
			return
		}
	}
	if req.Kind == "" {
		req.Kind = services.RunKindFull
	}
	if req.Kind != services.RunKindScan && req.Kind != services.RunKindFull {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be \"scan\" or \"full\""})
		return
	}

	if !runActive.CompareAndSwap(false, true) {
		c.JSON(http.StatusConflict, gin.H{"error": "A run is already in progress"})
		return
	}

	kind := req.Kind
	opts := services.ScanOptions{Roots: req.Roots, Quick: req.Quick}
	go func() {
		defer runActive.Store(false)
		ctx := context.Background()
		var err error
		if kind == services.RunKindScan {
			_, err = s.runner.Scan(ctx, opts)
		} else {
			_, err = s.runner.FullRun(ctx, opts)
		}
		if err != nil {
			logger.Errorf("API-triggered %s run failed: %v", kind, err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "kind": kind})
}

func (s *RESTServer) getDuplicateReport(c *gin.Context) {
	s.serveReportFile(c, config.Get().ReportPath)
}

func (s *RESTServer) getResolvedReport(c *gin.Context) {
	s.serveReportFile(c, config.Get().ResolvedReportPath)
}

func (s *RESTServer) getCleanupScript(c *gin.Context) {
	s.serveReportFile(c, config.Get().ScriptPath)
}

func (s *RESTServer) serveReportFile(c *gin.Context, path string) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not generated yet"})
		return
	}
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, ErrMsgInternalError, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
}
