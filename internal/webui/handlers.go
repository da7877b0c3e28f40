package webui

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dcpsystems/dcp/internal/usecase"
)

func (s *Server) handleStatus(c *gin.Context) {
	result := usecase.GetStatus(s.cfg.ConfigPath)
	if result.Error != "" {
		c.JSON(http.StatusNotFound, gin.H{"error": result.Error})
		return
	}
	c.JSON(http.StatusOK, result.ToDict())
}

func (s *Server) handleConfigCheck(c *gin.Context) {
	result := usecase.CheckConfig(s.cfg.ConfigPath)
	c.JSON(http.StatusOK, result.ToDict())
}

func (s *Server) handleDetect(c *gin.Context) {
	result := usecase.RunDetect(s.cfg.ConfigPath, "", true)
	if result.Error != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": result.Error})
		return
	}
	c.JSON(http.StatusOK, result.ToDict())
}

type runRequest struct {
	Modules     []string `json:"modules"`
	Environment string   `json:"environment"`
	DryRun      bool     `json:"dry_run"`
	Mock        bool     `json:"mock"`
}

func (s *Server) handleRun(c *gin.Context) {
	capability := c.Param("capability")
	if capability == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing capability"})
		return
	}

	var req runRequest
	_ = c.ShouldBindJSON(&req) // an empty/missing body just means "use defaults"
	if req.Environment == "" {
		req.Environment = "dev"
	}

	result := usecase.RunAutomation(usecase.RunOptions{
		Capability:  capability,
		ConfigPath:  s.cfg.ConfigPath,
		Modules:     req.Modules,
		Environment: req.Environment,
		DryRun:      req.DryRun,
		MockMode:    req.Mock || s.cfg.MockMode,
		Registry:    s.cfg.Registry,
		Breakers:    s.cfg.Breakers,
	})
	if result.Error != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": result.Error})
		return
	}

	if result.Report != nil {
		for _, receipt := range result.Report.Receipts {
			s.hub.Publish(receipt)
		}
	}

	c.JSON(http.StatusOK, result.ToDict())
}

func (s *Server) handleHealth(c *gin.Context) {
	health := usecase.CheckSystemHealth(s.cfg.Breakers, s.cfg.Queue)
	c.JSON(http.StatusOK, health.ToDict())
}
