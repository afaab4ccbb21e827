// api/handlers/table_handler.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nimbusdb/nimbus-backend/api/models"
	"github.com/nimbusdb/nimbus-backend/internal/core"
	"github.com/nimbusdb/nimbus-backend/internal/domain"
	"github.com/nimbusdb/nimbus-backend/internal/storage"
)

// TableHandler serves table and column management under a database. Each
// method verifies database ownership before touching schema metadata.
type TableHandler struct {
	Store storage.Store
}

// NewTableHandler creates a TableHandler.
func NewTableHandler(store storage.Store) *TableHandler {
	return &TableHandler{Store: store}
}

// CreateTable handles POST /api/v1/databases/:db_id/tables.
func (h *TableHandler) CreateTable(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	dbID := c.Param("db_id")

	var req models.CreateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}
	if !core.IsValidIdentifier(req.Name) {
		_ = c.Error(fmt.Errorf("%w: table name must be 1-64 alphanumeric or underscore characters", storage.ErrInvalidPayload))
		return
	}

	columns, err := columnsFromDefinitions(req.Columns)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if _, err := h.Store.FindDatabase(c.Request.Context(), userID, dbID); err != nil {
		_ = c.Error(err)
		return
	}

	table, err := h.Store.CreateTable(c.Request.Context(), dbID, req.Name, columns)
	if err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Infof("Table %q created in database %s", table.Name, dbID)
	c.JSON(http.StatusCreated, table)
}

// ListTables handles GET /api/v1/databases/:db_id/tables.
func (h *TableHandler) ListTables(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	dbID := c.Param("db_id")

	if _, err := h.Store.FindDatabase(c.Request.Context(), userID, dbID); err != nil {
		_ = c.Error(err)
		return
	}

	tables, err := h.Store.ListTables(c.Request.Context(), dbID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tables": tables})
}

// DeleteTable handles DELETE /api/v1/databases/:db_id/tables/:table_id.
func (h *TableHandler) DeleteTable(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	dbID := c.Param("db_id")
	tableID := c.Param("table_id")

	if _, err := h.Store.FindDatabase(c.Request.Context(), userID, dbID); err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.Store.DeleteTable(c.Request.Context(), dbID, tableID); err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Infof("Table %s deleted from database %s", tableID, dbID)
	c.JSON(http.StatusOK, gin.H{"message": "Table deleted successfully"})
}

// ListColumns handles GET /api/v1/databases/:db_id/tables/:table_id/columns.
func (h *TableHandler) ListColumns(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	dbID := c.Param("db_id")
	tableID := c.Param("table_id")

	if _, err := h.Store.FindDatabase(c.Request.Context(), userID, dbID); err != nil {
		_ = c.Error(err)
		return
	}

	columns, err := h.Store.ListColumns(c.Request.Context(), tableID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"columns": columns})
}

// AddColumn handles POST /api/v1/databases/:db_id/tables/:table_id/columns.
// Existing rows are untouched; declared columns are advisory metadata unless
// strict schema validation is enabled.
func (h *TableHandler) AddColumn(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	dbID := c.Param("db_id")
	tableID := c.Param("table_id")

	var req models.AddColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	columns, err := columnsFromDefinitions([]models.ColumnDefinition{req.Column})
	if err != nil {
		_ = c.Error(err)
		return
	}

	if _, err := h.Store.FindDatabase(c.Request.Context(), userID, dbID); err != nil {
		_ = c.Error(err)
		return
	}

	column, err := h.Store.AddColumn(c.Request.Context(), tableID, columns[0])
	if err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Infof("Column %q added to table %s", column.Name, tableID)
	c.JSON(http.StatusCreated, column)
}

// columnsFromDefinitions validates and normalizes the declared columns.
// Nullable defaults to true; position assignment is left to the store.
func columnsFromDefinitions(defs []models.ColumnDefinition) ([]domain.Column, error) {
	columns := make([]domain.Column, 0, len(defs))
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		if !core.IsValidIdentifier(def.Name) {
			return nil, fmt.Errorf("%w: invalid column name %q", storage.ErrInvalidPayload, def.Name)
		}
		if seen[def.Name] {
			return nil, fmt.Errorf("%w: duplicate column name %q", storage.ErrInvalidPayload, def.Name)
		}
		seen[def.Name] = true

		colType, ok := core.NormalizeAndValidateType(def.Type)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported column type %q", storage.ErrInvalidPayload, def.Type)
		}

		nullable := true
		if def.IsNullable != nil {
			nullable = *def.IsNullable
		}

		columns = append(columns, domain.Column{
			Name:         def.Name,
			DataType:     colType,
			IsNullable:   nullable,
			DefaultValue: def.DefaultValue,
		})
	}
	return columns, nil
}
