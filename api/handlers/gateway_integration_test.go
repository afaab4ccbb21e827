// api/handlers/gateway_integration_test.go
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusdb/nimbus-backend/api"
	"github.com/nimbusdb/nimbus-backend/config"
	"github.com/nimbusdb/nimbus-backend/internal/audit"
	"github.com/nimbusdb/nimbus-backend/internal/auth"
	"github.com/nimbusdb/nimbus-backend/internal/domain"
	"github.com/nimbusdb/nimbus-backend/internal/storage/sqlite"
)

const (
	testUserID = "user-gw-1"
	testSecret = "integration-test-secret"
)

type testEnv struct {
	server   *httptest.Server
	store    *sqlite.Store
	recorder *audit.Recorder
	dbID     string
	apiKey   string
}

// setupTestServer boots the full router on a fresh sqlite store, with one
// database, one "contacts" table, and one active key already provisioned.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "gateway_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	db, err := store.CreateDatabase(ctx, testUserID, "crm", "")
	require.NoError(t, err)
	_, err = store.CreateTable(ctx, db.ID, "contacts", []domain.Column{
		{Name: "name", DataType: "TEXT", IsNullable: true},
		{Name: "email", DataType: "TEXT", IsNullable: true},
	})
	require.NoError(t, err)
	key, err := store.CreateAPIKey(ctx, testUserID, db.ID, "test-key")
	require.NoError(t, err)

	cfg := &config.Config{
		JWTSecret:     testSecret,
		JWTExpiration: time.Hour,
	}
	recorder := audit.NewRecorder(store, store)

	server := httptest.NewServer(api.SetupRouter(store, recorder, cfg))
	t.Cleanup(server.Close)

	return &testEnv{
		server:   server,
		store:    store,
		recorder: recorder,
		dbID:     db.ID,
		apiKey:   key.KeyValue,
	}
}

// call posts a gateway envelope and decodes the JSON response body.
func (e *testEnv) call(t *testing.T, payload map[string]any) (int, map[string]any) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := http.Post(e.server.URL+"/api/v1/data", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func TestGatewayCRUDScenario(t *testing.T) {
	env := setupTestServer(t)

	// Insert
	status, body := env.call(t, map[string]any{
		"api_key": env.apiKey,
		"action":  "insert",
		"table":   "contacts",
		"data":    map[string]any{"name": "Ada", "email": "ada@example.com"},
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, body["success"])

	created := body["data"].(map[string]any)
	rowID := created["id"].(string)
	assert.NotEmpty(t, rowID)
	assert.Equal(t, "Ada", created["name"])
	assert.NotEmpty(t, created["_created_at"])
	assert.NotEmpty(t, created["_updated_at"])

	// Select with filter
	status, body = env.call(t, map[string]any{
		"api_key": env.apiKey,
		"action":  "select",
		"table":   "contacts",
		"filters": map[string]any{"name": "Ada"},
	})
	require.Equal(t, http.StatusOK, status)
	results := body["data"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, rowID, results[0].(map[string]any)["id"])

	// Update merges: email survives, name changes
	status, body = env.call(t, map[string]any{
		"api_key": env.apiKey,
		"action":  "update",
		"table":   "contacts",
		"row_id":  rowID,
		"data":    map[string]any{"name": "Ada Lovelace"},
	})
	require.Equal(t, http.StatusOK, status)
	updated := body["data"].(map[string]any)
	assert.Equal(t, "Ada Lovelace", updated["name"])
	assert.Equal(t, "ada@example.com", updated["email"])

	// The old filter value no longer matches
	status, body = env.call(t, map[string]any{
		"api_key": env.apiKey,
		"action":  "select",
		"table":   "contacts",
		"filters": map[string]any{"name": "Ada"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["data"].([]any))

	// Delete
	status, body = env.call(t, map[string]any{
		"api_key": env.apiKey,
		"action":  "delete",
		"table":   "contacts",
		"row_id":  rowID,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["data"].(map[string]any)["deleted"])

	// A second delete of the same row is an error
	status, body = env.call(t, map[string]any{
		"api_key": env.apiKey,
		"action":  "delete",
		"table":   "contacts",
		"row_id":  rowID,
	})
	require.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body["error"], "Row not found")
}

func TestGatewayEnvelopeValidation(t *testing.T) {
	env := setupTestServer(t)

	t.Run("Missing Required Fields", func(t *testing.T) {
		status, body := env.call(t, map[string]any{"action": "select", "table": "contacts"})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body["error"], "api_key")
	})

	t.Run("Unknown Action Fails Before Authentication", func(t *testing.T) {
		// A garbage key with a garbage action: the action check must win.
		status, body := env.call(t, map[string]any{
			"api_key": "nbs_garbage",
			"action":  "drop",
			"table":   "contacts",
		})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body["error"], "Unknown action")
	})

	t.Run("Insert Without Data", func(t *testing.T) {
		status, body := env.call(t, map[string]any{
			"api_key": env.apiKey,
			"action":  "insert",
			"table":   "contacts",
		})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body["error"], "data")
	})

	t.Run("Insert With Reserved Field", func(t *testing.T) {
		status, body := env.call(t, map[string]any{
			"api_key": env.apiKey,
			"action":  "insert",
			"table":   "contacts",
			"data":    map[string]any{"id": "attacker-chosen"},
		})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body["error"], "reserved")
	})

	t.Run("Update Without Row Id", func(t *testing.T) {
		status, _ := env.call(t, map[string]any{
			"api_key": env.apiKey,
			"action":  "update",
			"table":   "contacts",
			"data":    map[string]any{"name": "x"},
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("Delete Without Row Id", func(t *testing.T) {
		status, _ := env.call(t, map[string]any{
			"api_key": env.apiKey,
			"action":  "delete",
			"table":   "contacts",
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestGatewayAuthentication(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	t.Run("Unknown Key", func(t *testing.T) {
		status, body := env.call(t, map[string]any{
			"api_key": "nbs_not_a_real_key",
			"action":  "select",
			"table":   "contacts",
		})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Contains(t, body["error"], "Invalid or inactive API key")
	})

	t.Run("Auth Failure Hides Table Existence", func(t *testing.T) {
		// Valid and phantom tables must be indistinguishable to a bad key.
		statusReal, _ := env.call(t, map[string]any{
			"api_key": "nbs_not_a_real_key", "action": "select", "table": "contacts",
		})
		statusPhantom, _ := env.call(t, map[string]any{
			"api_key": "nbs_not_a_real_key", "action": "select", "table": "no_such_table",
		})
		assert.Equal(t, statusReal, statusPhantom)
		assert.Equal(t, http.StatusUnauthorized, statusReal)
	})

	t.Run("Deactivated Key", func(t *testing.T) {
		keys, err := env.store.ListAPIKeys(ctx, testUserID)
		require.NoError(t, err)
		require.NotEmpty(t, keys)
		require.NoError(t, env.store.SetAPIKeyActive(ctx, testUserID, keys[0].ID, false))

		status, _ := env.call(t, map[string]any{
			"api_key": env.apiKey,
			"action":  "select",
			"table":   "contacts",
		})
		assert.Equal(t, http.StatusUnauthorized, status)

		require.NoError(t, env.store.SetAPIKeyActive(ctx, testUserID, keys[0].ID, true))
	})

	t.Run("Unknown Table With Valid Key", func(t *testing.T) {
		status, body := env.call(t, map[string]any{
			"api_key": env.apiKey,
			"action":  "select",
			"table":   "no_such_table",
		})
		assert.Equal(t, http.StatusNotFound, status)
		assert.Contains(t, body["error"], "not found")
	})
}

func TestGatewayAuditTrail(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	// One successful call, one post-auth failure.
	status, _ := env.call(t, map[string]any{
		"api_key": env.apiKey,
		"action":  "insert",
		"table":   "contacts",
		"data":    map[string]any{"name": "Grace"},
	})
	require.Equal(t, http.StatusCreated, status)

	status, _ = env.call(t, map[string]any{
		"api_key": env.apiKey,
		"action":  "select",
		"table":   "phantom",
	})
	require.Equal(t, http.StatusNotFound, status)

	// An auth failure must not be audited (there is no tenant to charge it to).
	status, _ = env.call(t, map[string]any{
		"api_key": "nbs_bogus",
		"action":  "select",
		"table":   "contacts",
	})
	require.Equal(t, http.StatusUnauthorized, status)

	env.recorder.Flush()

	logs, err := env.store.ListQueryLogs(ctx, testUserID, env.dbID, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2, "exactly one entry per post-auth call")

	// Entries are written asynchronously, so index by method instead of
	// relying on write order.
	byMethod := make(map[string]domain.QueryLogEntry, len(logs))
	for _, entry := range logs {
		byMethod[entry.Method] = entry
	}

	failed, ok := byMethod["select"]
	require.True(t, ok)
	assert.Equal(t, "/phantom", failed.Endpoint)
	assert.Equal(t, http.StatusNotFound, failed.StatusCode)

	inserted, ok := byMethod["insert"]
	require.True(t, ok)
	assert.Equal(t, "/contacts", inserted.Endpoint)
	assert.Equal(t, http.StatusCreated, inserted.StatusCode)
	assert.GreaterOrEqual(t, inserted.ResponseTimeMs, int64(0))

	// The snapshot carries the action and table but never the credentials
	// or the row payload.
	snapshot := inserted.RequestBody
	assert.Equal(t, "insert", snapshot["action"])
	assert.Equal(t, "contacts", snapshot["table"])
	assert.NotContains(t, snapshot, "api_key")
	assert.NotContains(t, snapshot, "data")

	// A successful call also stamps the key's last_used_at.
	keys, err := env.store.ListAPIKeys(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.NotNil(t, keys[0].LastUsedAt)
}

func TestGatewaySelectCap(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	tableID, err := env.store.ResolveTable(ctx, env.dbID, "contacts")
	require.NoError(t, err)
	for i := 0; i < 105; i++ {
		_, err := env.store.InsertRow(ctx, tableID, domain.Document{"n": fmt.Sprintf("%d", i)})
		require.NoError(t, err)
	}

	status, body := env.call(t, map[string]any{
		"api_key": env.apiKey,
		"action":  "select",
		"table":   "contacts",
	})
	require.Equal(t, http.StatusOK, status)

	results := body["data"].([]any)
	assert.Len(t, results, 100)
	assert.Equal(t, "0", results[0].(map[string]any)["n"], "first created row comes first")
}

func TestManagementSurface(t *testing.T) {
	env := setupTestServer(t)

	token, err := auth.GenerateJWT("mgmt-user", "", testSecret, time.Hour)
	require.NoError(t, err)
	adminToken, err := auth.GenerateJWT("mgmt-admin", "admin", testSecret, time.Hour)
	require.NoError(t, err)

	doJSON := func(t *testing.T, method, path, bearer string, payload any) (int, map[string]any) {
		t.Helper()
		var reqBody []byte
		if payload != nil {
			reqBody, err = json.Marshal(payload)
			require.NoError(t, err)
		}
		req, err := http.NewRequest(method, env.server.URL+path, bytes.NewReader(reqBody))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		var decoded map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&decoded)
		return resp.StatusCode, decoded
	}

	t.Run("Requires Bearer Token", func(t *testing.T) {
		status, _ := doJSON(t, http.MethodGet, "/api/v1/databases", "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	var dbID, keySecret string

	t.Run("Provision Database Table And Key", func(t *testing.T) {
		status, body := doJSON(t, http.MethodPost, "/api/v1/databases", token,
			map[string]any{"name": "appdb"})
		require.Equal(t, http.StatusCreated, status)
		dbID = body["id"].(string)

		status, _ = doJSON(t, http.MethodPost, "/api/v1/databases/"+dbID+"/tables", token,
			map[string]any{
				"name":    "tasks",
				"columns": []map[string]any{{"name": "title", "type": "text"}},
			})
		require.Equal(t, http.StatusCreated, status)

		status, body = doJSON(t, http.MethodPost, "/api/v1/databases/"+dbID+"/keys", token,
			map[string]any{"name": "app-key"})
		require.Equal(t, http.StatusCreated, status)
		keySecret = body["key"].(map[string]any)["key_value"].(string)
		require.NotEmpty(t, keySecret)
	})

	t.Run("Minted Key Works On The Gateway", func(t *testing.T) {
		status, body := env.call(t, map[string]any{
			"api_key": keySecret,
			"action":  "insert",
			"table":   "tasks",
			"data":    map[string]any{"title": "ship it"},
		})
		require.Equal(t, http.StatusCreated, status)
		assert.Equal(t, true, body["success"])
	})

	t.Run("Key Is Scoped To Its Own Database", func(t *testing.T) {
		// "contacts" lives in the seeded database, not in appdb.
		status, _ := env.call(t, map[string]any{
			"api_key": keySecret,
			"action":  "select",
			"table":   "contacts",
		})
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("Duplicate Database Name Conflicts", func(t *testing.T) {
		status, _ := doJSON(t, http.MethodPost, "/api/v1/databases", token,
			map[string]any{"name": "appdb"})
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("Invalid Table Name Rejected", func(t *testing.T) {
		status, _ := doJSON(t, http.MethodPost, "/api/v1/databases/"+dbID+"/tables", token,
			map[string]any{
				"name":    "bad name!",
				"columns": []map[string]any{{"name": "x", "type": "text"}},
			})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("Log Clearing Needs Admin", func(t *testing.T) {
		env.recorder.Flush()

		status, _ := doJSON(t, http.MethodDelete, "/api/v1/logs?database_id="+dbID, token, nil)
		assert.Equal(t, http.StatusForbidden, status)

		status, body := doJSON(t, http.MethodDelete, "/api/v1/logs?database_id="+dbID, adminToken, nil)
		require.Equal(t, http.StatusOK, status)
		assert.GreaterOrEqual(t, body["deleted"].(float64), float64(1))
	})
}
