// Package handler serves the flow writes and flow starts over HTTP.
package handler

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tenant-messaging-api/backend/internal/flow/domain"
	"tenant-messaging-api/backend/internal/flow/service"
	"tenant-messaging-api/backend/internal/platform/httpx"
)

type Handler struct {
	svc *service.Service
	log *zap.Logger
}

func NewHandler(svc *service.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

// Register adds POST /flows and POST /runs to rg.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/flows", func(c *gin.Context) { httpx.Write(c, h.log, h.svc.WriteFlow, projectFlow) })
	rg.POST("/runs", func(c *gin.Context) { httpx.Write(c, h.log, h.svc.StartFlow, projectRuns) })
}

func projectFlow(f *domain.Flow) any {
	return gin.H{
		"uuid":       f.UUID,
		"flow":       f.ID,
		"name":       f.Name,
		"flow_type":  f.FlowType,
		"version":    f.Version,
		"archived":   f.IsArchived,
		"definition": json.RawMessage(f.Definition),
		"created_on": f.CreatedAt,
	}
}

// projectRuns renders started runs as a list, empty when nobody was started.
func projectRuns(runs []*domain.Run) any {
	out := make([]gin.H, 0, len(runs))
	for _, r := range runs {
		out = append(out, gin.H{
			"run":        r.ID,
			"uuid":       r.UUID,
			"flow":       r.FlowID,
			"contact":    r.ContactID,
			"extra":      r.Extra,
			"created_on": r.CreatedAt,
		})
	}
	return out
}
