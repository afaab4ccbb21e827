// api/models/gateway_models.go
package models

import "github.com/nimbusdb/nimbus-backend/internal/domain"

// Gateway actions accepted on the data endpoint.
const (
	ActionSelect = "select"
	ActionInsert = "insert"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// GatewayRequest is the single request envelope for the generic data
// endpoint. api_key, action, and table are always required; data and row_id
// are checked per action before any execution.
type GatewayRequest struct {
	APIKey  string            `json:"api_key" binding:"required"`
	Action  string            `json:"action" binding:"required"`
	Table   string            `json:"table" binding:"required"`
	Data    domain.Document   `json:"data,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
	RowID   string            `json:"row_id,omitempty"`
}

// IsKnownAction reports whether the action is one of the four the gateway
// dispatches. Unknown actions fail before the key store is consulted.
func (r *GatewayRequest) IsKnownAction() bool {
	switch r.Action {
	case ActionSelect, ActionInsert, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Snapshot is the request view persisted with each audit entry. The api key
// and row payload are deliberately excluded.
func (r *GatewayRequest) Snapshot() domain.Document {
	snapshot := domain.Document{
		"action": r.Action,
		"table":  r.Table,
	}
	if len(r.Filters) > 0 {
		snapshot["filters"] = r.Filters
	} else {
		snapshot["filters"] = nil
	}
	return snapshot
}

// GatewayResponse is the success envelope: {"success": true, "data": ...}.
// Errors use the flat {"error": "..."} shape instead.
type GatewayResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}
