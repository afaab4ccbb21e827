// api/handlers/querylog_handler.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nimbusdb/nimbus-backend/internal/storage"
)

// QueryLogHandler serves the read side of the audit trail. Entries are
// written asynchronously by the gateway; this surface only lists and clears.
type QueryLogHandler struct {
	Store storage.Store
}

// NewQueryLogHandler creates a QueryLogHandler.
func NewQueryLogHandler(store storage.Store) *QueryLogHandler {
	return &QueryLogHandler{Store: store}
}

// ListQueryLogs handles GET /api/v1/logs. Optional query params: database_id
// narrows to one database, limit caps the page (default 100, max 500).
func (h *QueryLogHandler) ListQueryLogs(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	databaseID := c.Query("database_id")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			_ = c.Error(storage.ErrInvalidPayload)
			return
		}
		limit = parsed
	}

	logs, err := h.Store.ListQueryLogs(c.Request.Context(), userID, databaseID, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// ClearQueryLogs handles DELETE /api/v1/logs?database_id=... Admin only;
// the router gates it behind RequireAdmin.
func (h *QueryLogHandler) ClearQueryLogs(c *gin.Context) {
	databaseID := c.Query("database_id")
	if databaseID == "" {
		_ = c.Error(storage.ErrInvalidPayload)
		return
	}

	deleted, err := h.Store.ClearQueryLogs(c.Request.Context(), databaseID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Infof("Cleared %d query log entries for database %s", deleted, databaseID)
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
