// Package handler serves the contact and contact field writes over HTTP.
package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tenant-messaging-api/backend/internal/contact/domain"
	"tenant-messaging-api/backend/internal/contact/service"
	"tenant-messaging-api/backend/internal/platform/httpx"
)

// Handler serves POST /contacts and POST /fields.
type Handler struct {
	svc *service.Service
	log *zap.Logger
}

// NewHandler returns a contact handler over svc.
func NewHandler(svc *service.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

// Register adds the contact routes to rg.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/contacts", h.writeContact)
	rg.POST("/fields", h.writeField)
}

func (h *Handler) writeContact(c *gin.Context) {
	httpx.Write(c, h.log, h.svc.WriteContact, projectContact)
}

func (h *Handler) writeField(c *gin.Context) {
	httpx.Write(c, h.log, h.svc.WriteField, projectField)
}

type contactJSON struct {
	UUID       string            `json:"uuid"`
	Name       string            `json:"name"`
	Language   *string           `json:"language"`
	URNs       []string          `json:"urns"`
	GroupUUIDs []string          `json:"group_uuids"`
	Groups     []string          `json:"groups"`
	Fields     map[string]string `json:"fields"`
	ModifiedOn time.Time         `json:"modified_on"`
}

// projectContact renders a written contact. URNs is empty for anonymous orgs.
func projectContact(w *service.Written) any {
	out := contactJSON{
		UUID:       w.Contact.UUID,
		Name:       w.Contact.Name,
		URNs:       nonNil(w.URNs),
		GroupUUIDs: nonNil(w.GroupUUIDs),
		Groups:     nonNil(w.Groups),
		Fields:     w.Fields,
		ModifiedOn: w.Contact.ModifiedAt,
	}
	if w.Contact.Language != "" {
		out.Language = &w.Contact.Language
	}
	return out
}

func projectField(f *domain.ContactField) any {
	return gin.H{"key": f.Key, "label": f.Label, "value_type": f.ValueType}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
