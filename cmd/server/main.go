// cmd/server/main.go
package main

import (
	"context"
	"fmt"

	"github.com/nimbusdb/nimbus-backend/api"
	"github.com/nimbusdb/nimbus-backend/config"
	"github.com/nimbusdb/nimbus-backend/internal/audit"
	"github.com/nimbusdb/nimbus-backend/internal/logger"
	"github.com/nimbusdb/nimbus-backend/internal/storage"
	"github.com/nimbusdb/nimbus-backend/internal/storage/postgres"
	"github.com/nimbusdb/nimbus-backend/internal/storage/sqlite"
)

var (
	customLog = logger.NewLogger()
)

func main() {
	customLog.Println("Starting Nimbus gateway server...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		customLog.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize Storage Backend
	var store storage.Store
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		store, err = postgres.Open(context.Background(), cfg.PostgresURL)
	default:
		store, err = sqlite.Open(cfg.SQLitePath)
	}
	if err != nil {
		customLog.Fatalf("Failed to initialize %s storage: %v", cfg.StorageBackend, err)
	}
	defer func() {
		customLog.Println("Closing storage...")
		if err := store.Close(); err != nil {
			customLog.Printf("Error closing storage: %v", err)
		}
	}()

	// 3. Audit Recorder (async query logging and key touch)
	recorder := audit.NewRecorder(store, store)
	defer recorder.Flush()

	// 4. Setup Router (passing dependencies)
	router := api.SetupRouter(store, recorder, cfg)

	// 5. Start Server
	customLog.Printf("Server listening on port %s", cfg.ServerPort)
	if err := router.Run(fmt.Sprintf(":%s", cfg.ServerPort)); err != nil {
		customLog.Fatalf("Failed to start server: %v", err)
	}
}
