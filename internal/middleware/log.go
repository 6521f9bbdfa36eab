package middleware

import (
	"bytes"
	"io"

	"github.com/RovierrHQ/rovierr/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuditMiddleware records an audit row for every mutating request made by a
// logged-in user.
func AuditMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userID uint
		if user, ok := CurrentUser(c); ok {
			userID = user.ID
		}

		// capture the request body so handlers can still read it
		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		c.Next()

		if userID == 0 {
			return
		}
		switch c.Request.Method {
		case "GET", "HEAD", "OPTIONS":
			return
		}

		path := c.Request.URL.Path
		action := c.Request.Method + " " + path

		metadata := ""
		if len(bodyBytes) > 0 && len(bodyBytes) < 2000 {
			metadata = string(bodyBytes)
		}

		entry := models.AuditLog{
			UserID:    &userID,
			Path:      path,
			Method:    c.Request.Method,
			Action:    action,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Metadata:  metadata,
		}

		_ = db.Create(&entry).Error
	}
}
