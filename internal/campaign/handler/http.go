// Package handler serves the campaign and campaign event writes over HTTP.
package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tenant-messaging-api/backend/internal/campaign/domain"
	"tenant-messaging-api/backend/internal/campaign/service"
	"tenant-messaging-api/backend/internal/platform/httpx"
)

// Handler serves POST /campaigns and POST /events.
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

// Register adds the campaign routes to rg.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/campaigns", func(c *gin.Context) { httpx.Write(c, h.log, h.svc.WriteCampaign, projectCampaign) })
	rg.POST("/events", func(c *gin.Context) { httpx.Write(c, h.log, h.svc.WriteEvent, projectEvent) })
}

func projectCampaign(w *service.WrittenCampaign) any {
	return gin.H{
		"uuid":       w.Campaign.UUID,
		"campaign":   w.Campaign.ID,
		"name":       w.Campaign.Name,
		"group_uuid": w.Group.UUID,
		"group":      w.Group.Name,
		"created_on": w.Campaign.CreatedAt.Format(time.RFC3339Nano),
	}
}

func projectEvent(w *service.WrittenEvent) any {
	out := gin.H{
		"uuid":          w.Event.UUID,
		"event":         w.Event.ID,
		"campaign_uuid": w.Campaign.UUID,
		"campaign":      w.Campaign.ID,
		"relative_to":   w.RelativeTo.Label,
		"offset":        w.Event.Offset,
		"unit":          w.Event.Unit,
		"delivery_hour": w.Event.DeliveryHour,
		"message":       nil,
		"flow_uuid":     nil,
		"flow":          nil,
		"created_on":    w.Event.CreatedAt.Format(time.RFC3339Nano),
	}
	if w.Event.EventType == domain.EventTypeMessage {
		out["message"] = w.Event.Message
	} else if w.Flow != nil {
		out["flow_uuid"] = w.Flow.UUID
		out["flow"] = w.Flow.ID
	}
	return out
}
