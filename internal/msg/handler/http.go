// Package handler serves the message writes over HTTP: broadcasts, direct messages, labels and bulk actions.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tenant-messaging-api/backend/internal/msg/domain"
	"tenant-messaging-api/backend/internal/msg/service"
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

// Register adds the message routes to rg.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/broadcasts", func(c *gin.Context) { httpx.Write(c, h.log, h.svc.CreateBroadcast, projectBroadcast) })
	rg.POST("/sms", func(c *gin.Context) { httpx.Write(c, h.log, h.svc.CreateMessages, projectSent) })
	rg.POST("/labels", func(c *gin.Context) { httpx.Write(c, h.log, h.svc.WriteLabel, projectLabel) })
	rg.POST("/message_actions", h.applyAction)
}

// applyAction answers 204 with no body on success.
func (h *Handler) applyAction(c *gin.Context) {
	body, err := httpx.ReadBody(c)
	if err != nil {
		httpx.RespondError(c, h.log, err)
		return
	}
	res, err := h.svc.ApplyAction(c.Request.Context(), body)
	if err != nil {
		httpx.RespondError(c, h.log, err)
		return
	}
	h.log.Debug("message action applied",
		zap.String("action", string(res.Action)), zap.Int("matched", res.Matched), zap.Int("changed", res.Changed))
	c.Status(http.StatusNoContent)
}

func projectBroadcast(w *service.WrittenBroadcast) any {
	contacts := make([]string, 0, len(w.Contacts))
	for _, c := range w.Contacts {
		contacts = append(contacts, c.UUID)
	}
	groups := make([]string, 0, len(w.Groups))
	for _, g := range w.Groups {
		groups = append(groups, g.UUID)
	}
	urns := w.Broadcast.URNs
	if urns == nil {
		urns = []string{}
	}
	return gin.H{
		"id":         w.Broadcast.ID,
		"urns":       urns,
		"contacts":   contacts,
		"groups":     groups,
		"text":       w.Broadcast.Text,
		"status":     w.Broadcast.Status,
		"created_on": w.Broadcast.CreatedAt,
	}
}

func projectSent(s *service.Sent) any {
	return gin.H{"messages": s.MessageIDs, "broadcast": s.Broadcast.ID}
}

func projectLabel(l *domain.Label) any {
	return gin.H{"uuid": l.UUID, "name": l.Name, "count": l.VisibleCount}
}
