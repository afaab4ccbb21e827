// api/handlers/gateway_handler.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nimbusdb/nimbus-backend/api/models"
	"github.com/nimbusdb/nimbus-backend/config"
	"github.com/nimbusdb/nimbus-backend/internal/audit"
	"github.com/nimbusdb/nimbus-backend/internal/core"
	"github.com/nimbusdb/nimbus-backend/internal/domain"
	"github.com/nimbusdb/nimbus-backend/internal/logger"
	"github.com/nimbusdb/nimbus-backend/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

// GatewayHandler is the stateless entry point for the generic data endpoint.
// Each call walks the same path: envelope validation, key authentication,
// table resolution, action execution, audit logging. Auth always runs before
// table resolution so an invalid key learns nothing about table existence.
type GatewayHandler struct {
	Store    storage.Store
	Cfg      *config.Config
	Recorder *audit.Recorder
}

// NewGatewayHandler creates a GatewayHandler.
func NewGatewayHandler(store storage.Store, cfg *config.Config, recorder *audit.Recorder) *GatewayHandler {
	return &GatewayHandler{
		Store:    store,
		Cfg:      cfg,
		Recorder: recorder,
	}
}

// Dispatch handles one gateway call end to end.
func (h *GatewayHandler) Dispatch(c *gin.Context) {
	start := time.Now()

	// --- Received: envelope validation, before anything touches storage ---
	var req models.GatewayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Gateway: envelope binding error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: api_key, action, table"})
		return
	}
	if !req.IsKnownAction() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown action %q. Use: select, insert, update, delete", req.Action)})
		return
	}

	// --- Authenticated ---
	identity, err := h.Store.Authenticate(c.Request.Context(), req.APIKey)
	if err != nil {
		if !errors.Is(err, storage.ErrInvalidKey) {
			customLog.Warnf("Gateway: key store failure during auth: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or inactive API key"})
		return
	}

	// From here every outcome is audited, failures included.
	statusCode, result, errMsg := h.execute(c, identity, &req)

	h.Recorder.Record(&domain.QueryLogEntry{
		DatabaseID:     identity.DatabaseID,
		UserID:         identity.UserID,
		Method:         req.Action,
		Endpoint:       "/" + req.Table,
		StatusCode:     statusCode,
		ResponseTimeMs: time.Since(start).Milliseconds(),
		RequestBody:    req.Snapshot(),
	})
	if statusCode < http.StatusBadRequest {
		h.Recorder.TouchKey(identity.KeyID)
	}

	// --- Responded ---
	if errMsg != "" {
		c.JSON(statusCode, gin.H{"error": errMsg})
		return
	}
	c.JSON(statusCode, models.GatewayResponse{Success: true, Data: result})
}

// execute resolves the table and runs the requested action. It returns the
// HTTP status plus either a result payload or a flat error message.
func (h *GatewayHandler) execute(c *gin.Context, identity *domain.KeyIdentity, req *models.GatewayRequest) (int, any, string) {
	ctx := c.Request.Context()

	// --- TableResolved ---
	tableID, err := h.Store.ResolveTable(ctx, identity.DatabaseID, req.Table)
	if err != nil {
		if errors.Is(err, storage.ErrTableNotFound) {
			return http.StatusNotFound, nil, fmt.Sprintf("Table %q not found", req.Table)
		}
		customLog.Warnf("Gateway: table resolution failure for DB %s: %v", identity.DatabaseID, err)
		return http.StatusInternalServerError, nil, "Internal server error"
	}

	// --- Executed ---
	switch req.Action {
	case models.ActionSelect:
		filters, err := core.NormalizeFilters(req.Filters)
		if err != nil {
			return http.StatusBadRequest, nil, err.Error()
		}
		rows, err := h.Store.SelectRows(ctx, tableID, filters)
		if err != nil {
			customLog.Warnf("Gateway: select failed on table %s: %v", tableID, err)
			return http.StatusInternalServerError, nil, "Failed to query rows"
		}
		docs := make([]domain.Document, 0, len(rows))
		for i := range rows {
			docs = append(docs, rows[i].Flatten())
		}
		return http.StatusOK, docs, ""

	case models.ActionInsert:
		if req.Data == nil {
			return http.StatusBadRequest, nil, "Missing 'data' object for insert"
		}
		if msg := h.validatePayload(c, tableID, req.Data); msg != "" {
			return http.StatusBadRequest, nil, msg
		}
		row, err := h.Store.InsertRow(ctx, tableID, req.Data)
		if err != nil {
			customLog.Warnf("Gateway: insert failed on table %s: %v", tableID, err)
			return http.StatusInternalServerError, nil, "Failed to insert row"
		}
		return http.StatusCreated, row.Flatten(), ""

	case models.ActionUpdate:
		if req.RowID == "" || req.Data == nil {
			return http.StatusBadRequest, nil, "Missing 'row_id' and 'data' for update"
		}
		if msg := h.validatePayload(c, tableID, req.Data); msg != "" {
			return http.StatusBadRequest, nil, msg
		}
		row, err := h.Store.UpdateRow(ctx, tableID, req.RowID, req.Data)
		if err != nil {
			if errors.Is(err, storage.ErrRowNotFound) {
				return http.StatusNotFound, nil, "Row not found"
			}
			customLog.Warnf("Gateway: update failed on table %s, row %s: %v", tableID, req.RowID, err)
			return http.StatusInternalServerError, nil, "Failed to update row"
		}
		return http.StatusOK, row.Flatten(), ""

	case models.ActionDelete:
		if req.RowID == "" {
			return http.StatusBadRequest, nil, "Missing 'row_id' for delete"
		}
		if err := h.Store.DeleteRow(ctx, tableID, req.RowID); err != nil {
			if errors.Is(err, storage.ErrRowNotFound) {
				return http.StatusNotFound, nil, "Row not found"
			}
			customLog.Warnf("Gateway: delete failed on table %s, row %s: %v", tableID, req.RowID, err)
			return http.StatusInternalServerError, nil, "Failed to delete row"
		}
		return http.StatusOK, gin.H{"deleted": true}, ""
	}

	// Unreachable: unknown actions are rejected before authentication.
	return http.StatusBadRequest, nil, fmt.Sprintf("Unknown action %q", req.Action)
}

// validatePayload applies the base document checks, plus declared-column
// enforcement when the deployment opts into strict schema validation.
// Returns an error message or "".
func (h *GatewayHandler) validatePayload(c *gin.Context, tableID string, data domain.Document) string {
	if err := core.ValidateDocument(data); err != nil {
		return err.Error()
	}
	if !h.Cfg.SchemaValidation {
		return ""
	}
	columns, err := h.Store.ListColumns(c.Request.Context(), tableID)
	if err != nil {
		customLog.Warnf("Gateway: failed to load columns for validation on table %s: %v", tableID, err)
		return ""
	}
	if err := core.ValidateAgainstColumns(data, columns); err != nil {
		return err.Error()
	}
	return ""
}
