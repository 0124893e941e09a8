// Package reports serves the admin report endpoints.
package reports

import (
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/onlymatt/gateway/internal/config"
	"github.com/onlymatt/gateway/internal/httpapi"
	"github.com/onlymatt/gateway/internal/model"
	"github.com/onlymatt/gateway/internal/report"
	registrystore "github.com/onlymatt/gateway/internal/registry/store"
)

// MountRoutes mounts the /admin/reports endpoints behind the admin key
// guard.
func MountRoutes(r *gin.Engine, store registrystore.GatewayStore, generator *report.Generator, cfg *config.Config, auth gin.HandlerFunc) {
	g := r.Group("/admin/reports", auth)
	g.POST("", func(c *gin.Context) { createReport(c, store, cfg) })
	g.POST("/generate", func(c *gin.Context) { generateReport(c, store, generator, cfg) })
	g.GET("", func(c *gin.Context) { listReports(c, store) })
	g.GET("/:id", func(c *gin.Context) { getReport(c, store) })
}

func createReport(c *gin.Context, store registrystore.GatewayStore, cfg *config.Config) {
	var req struct {
		Type    model.ReportType `json:"type"`
		Title   string           `json:"title"`
		Content string           `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.Fail(c, 400, httpapi.CodeValidation, "invalid request body: "+err.Error())
		return
	}

	rep, err := store.CreateReport(c.Request.Context(), req.Type, req.Title, req.Content)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	applyRetention(c, store, cfg)
	httpapi.Created(c, gin.H{"report": rep})
}

func generateReport(c *gin.Context, store registrystore.GatewayStore, generator *report.Generator, cfg *config.Config) {
	var req struct {
		Type model.ReportType `json:"type"`
		Path string           `json:"path"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.Fail(c, 400, httpapi.CodeValidation, "invalid request body: "+err.Error())
		return
	}

	rep, err := generator.Generate(c.Request.Context(), req.Type, req.Path)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	applyRetention(c, store, cfg)
	httpapi.Created(c, gin.H{"report": rep})
}

func listReports(c *gin.Context, store registrystore.GatewayStore) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpapi.Fail(c, 400, httpapi.CodeValidation, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	reports, err := store.ListReports(c.Request.Context(), limit)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	if reports == nil {
		reports = []model.Report{}
	}
	httpapi.OK(c, gin.H{"reports": reports})
}

func getReport(c *gin.Context, store registrystore.GatewayStore) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpapi.Fail(c, 400, httpapi.CodeValidation, "invalid report id")
		return
	}
	rep, err := store.GetReport(c.Request.Context(), id)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	httpapi.OK(c, gin.H{"report": rep})
}

// applyRetention trims old reports right after a write so the cap is
// never exceeded between sweeps.
func applyRetention(c *gin.Context, store registrystore.GatewayStore, cfg *config.Config) {
	if cfg == nil || cfg.ReportRetention <= 0 {
		return
	}
	if _, err := store.TrimReports(c.Request.Context(), cfg.ReportRetention); err != nil {
		log.Warn("Report retention trim failed", "err", err)
	}
}
