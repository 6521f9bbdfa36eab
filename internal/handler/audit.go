package handler

import (
	"net/http"
	"time"

	"github.com/RovierrHQ/rovierr/internal/middleware"
	"github.com/RovierrHQ/rovierr/internal/models"
	"github.com/RovierrHQ/rovierr/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuditHandler serves the current user's audit trail.
type AuditHandler struct {
	DB *gorm.DB
}

func NewAuditHandler(db *gorm.DB) *AuditHandler {
	return &AuditHandler{DB: db}
}

type auditResp struct {
	ID        uint      `json:"id"`
	Action    string    `json:"action"`
	Path      string    `json:"path"`
	Method    string    `json:"method"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// ListAuditLogs lists the current user's audit entries, newest first.
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	page := intQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := intQuery(c, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	base := h.DB.Model(&models.AuditLog{}).Where("user_id = ?", user.ID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	var logs []models.AuditLog
	if err := base.Session(&gorm.Session{}).
		Order("id DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&logs).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	out := make([]auditResp, 0, len(logs))
	for _, l := range logs {
		out = append(out, auditResp{
			ID:        l.ID,
			Action:    l.Action,
			Path:      l.Path,
			Method:    l.Method,
			IP:        l.IP,
			UserAgent: l.UserAgent,
			CreatedAt: l.CreatedAt,
		})
	}

	util.Success(c, util.Response{
		"logs":  out,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}
