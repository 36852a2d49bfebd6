// Package handler serves relayer channel claims over HTTP.
package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tenant-messaging-api/backend/internal/channel/domain"
	"tenant-messaging-api/backend/internal/channel/service"
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

// Register adds POST /relayers to rg.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/relayers", func(c *gin.Context) { httpx.Write(c, h.log, h.svc.Claim, projectChannel) })
}

func projectChannel(ch *domain.Channel) any {
	return gin.H{
		"relayer":   ch.ID,
		"uuid":      ch.UUID,
		"phone":     ch.Address,
		"name":      ch.Name,
		"country":   ch.Country,
		"last_seen": ch.LastSeen,
	}
}
