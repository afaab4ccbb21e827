// api/handlers/database_handler.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nimbusdb/nimbus-backend/api/models"
	"github.com/nimbusdb/nimbus-backend/internal/core"
	"github.com/nimbusdb/nimbus-backend/internal/storage"
)

// DatabaseHandler serves the logical-database management endpoints. Every
// operation is scoped to the authenticated user from the context.
type DatabaseHandler struct {
	Store storage.Store
}

// NewDatabaseHandler creates a DatabaseHandler.
func NewDatabaseHandler(store storage.Store) *DatabaseHandler {
	return &DatabaseHandler{Store: store}
}

// CreateDatabase handles POST /api/v1/databases.
func (h *DatabaseHandler) CreateDatabase(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	var req models.CreateDatabaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}
	if !core.IsValidIdentifier(req.Name) {
		_ = c.Error(fmt.Errorf("%w: database name must be 1-64 alphanumeric or underscore characters", storage.ErrInvalidPayload))
		return
	}

	db, err := h.Store.CreateDatabase(c.Request.Context(), userID, req.Name, req.Description)
	if err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Infof("Database %q registered for user %s", db.Name, userID)
	c.JSON(http.StatusCreated, db)
}

// ListDatabases handles GET /api/v1/databases.
func (h *DatabaseHandler) ListDatabases(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	databases, err := h.Store.ListDatabases(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"databases": databases})
}

// GetDatabase handles GET /api/v1/databases/:db_id.
func (h *DatabaseHandler) GetDatabase(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	dbID := c.Param("db_id")

	db, err := h.Store.FindDatabase(c.Request.Context(), userID, dbID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, db)
}

// DeleteDatabase handles DELETE /api/v1/databases/:db_id. Tables, rows, keys
// and logs under the database go with it.
func (h *DatabaseHandler) DeleteDatabase(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	dbID := c.Param("db_id")

	if err := h.Store.DeleteDatabase(c.Request.Context(), userID, dbID); err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Infof("Database %s deleted by user %s", dbID, userID)
	c.JSON(http.StatusOK, gin.H{"message": "Database deleted successfully"})
}
