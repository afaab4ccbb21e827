// api/handlers/apikey_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nimbusdb/nimbus-backend/api/models"
	"github.com/nimbusdb/nimbus-backend/internal/storage"
)

// APIKeyHandler serves key lifecycle management. The full secret appears in
// exactly two responses: creation and regeneration. Listings are masked.
type APIKeyHandler struct {
	Store storage.Store
}

// NewAPIKeyHandler creates an APIKeyHandler.
func NewAPIKeyHandler(store storage.Store) *APIKeyHandler {
	return &APIKeyHandler{Store: store}
}

// CreateAPIKey handles POST /api/v1/databases/:db_id/keys. The store verifies
// database ownership before minting.
func (h *APIKeyHandler) CreateAPIKey(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	dbID := c.Param("db_id")

	var req models.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	key, err := h.Store.CreateAPIKey(c.Request.Context(), userID, dbID, req.Name)
	if err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Infof("API key %q minted for database %s", key.Name, dbID)
	c.JSON(http.StatusCreated, gin.H{
		"key":     key,
		"warning": "Store this key securely. It will not be shown again.",
	})
}

// ListAPIKeys handles GET /api/v1/keys. Secrets are masked.
func (h *APIKeyHandler) ListAPIKeys(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	keys, err := h.Store.ListAPIKeys(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// RegenerateAPIKey handles POST /api/v1/keys/:key_id/regenerate. The old
// secret stops working the moment this returns.
func (h *APIKeyHandler) RegenerateAPIKey(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	keyID := c.Param("key_id")

	key, err := h.Store.RegenerateAPIKey(c.Request.Context(), userID, keyID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Infof("API key %s regenerated by user %s", keyID, userID)
	c.JSON(http.StatusOK, gin.H{
		"key":     key,
		"warning": "Store this key securely. It will not be shown again.",
	})
}

// ToggleAPIKey handles PATCH /api/v1/keys/:key_id. Deactivated keys fail
// gateway authentication exactly like unknown ones.
func (h *APIKeyHandler) ToggleAPIKey(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	keyID := c.Param("key_id")

	var req models.ToggleAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.Store.SetAPIKeyActive(c.Request.Context(), userID, keyID, *req.IsActive); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": keyID, "is_active": *req.IsActive})
}

// DeleteAPIKey handles DELETE /api/v1/keys/:key_id.
func (h *APIKeyHandler) DeleteAPIKey(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	keyID := c.Param("key_id")

	if err := h.Store.DeleteAPIKey(c.Request.Context(), userID, keyID); err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Infof("API key %s deleted by user %s", keyID, userID)
	c.JSON(http.StatusOK, gin.H{"message": "API key deleted successfully"})
}
