// api/router.go
package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nimbusdb/nimbus-backend/api/handlers"
	"github.com/nimbusdb/nimbus-backend/api/middleware"
	"github.com/nimbusdb/nimbus-backend/config"
	"github.com/nimbusdb/nimbus-backend/internal/audit"
	"github.com/nimbusdb/nimbus-backend/internal/storage"
)

// SetupRouter initializes the Gin router and sets up all routes.
func SetupRouter(store storage.Store, recorder *audit.Recorder, cfg *config.Config) *gin.Engine {
	router := gin.Default() // Includes Logger and Recovery

	// Browser clients call the gateway directly, so preflights must pass.
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:          12 * time.Hour,
	}))

	// Initialize Handlers
	gatewayHandler := handlers.NewGatewayHandler(store, cfg, recorder)
	dbHandler := handlers.NewDatabaseHandler(store)
	tableHandler := handlers.NewTableHandler(store)
	keyHandler := handlers.NewAPIKeyHandler(store)
	logHandler := handlers.NewQueryLogHandler(store)

	// --- Public Routes ---
	router.GET("/ping", func(c *gin.Context) { c.String(200, "pong") })

	// The gateway endpoint authenticates by API key inside the handler and
	// maps its own errors, so it sits outside the management middleware.
	router.POST("/api/v1/data", gatewayHandler.Dispatch)

	// --- Protected Management Routes ---
	ratelimiter := middleware.NewRateLimiter()
	apiRoutes := router.Group("/api/v1")
	apiRoutes.Use(middleware.RateLimitMiddleware(ratelimiter))
	apiRoutes.Use(middleware.ErrorHandler())
	apiRoutes.Use(middleware.AuthMiddleware(cfg))
	{
		apiRoutes.GET("/databases", dbHandler.ListDatabases)
		apiRoutes.POST("/databases", dbHandler.CreateDatabase)
		apiRoutes.GET("/databases/:db_id", dbHandler.GetDatabase)
		apiRoutes.DELETE("/databases/:db_id", dbHandler.DeleteDatabase)

		apiRoutes.GET("/databases/:db_id/tables", tableHandler.ListTables)
		apiRoutes.POST("/databases/:db_id/tables", tableHandler.CreateTable)
		apiRoutes.DELETE("/databases/:db_id/tables/:table_id", tableHandler.DeleteTable)
		apiRoutes.GET("/databases/:db_id/tables/:table_id/columns", tableHandler.ListColumns)
		apiRoutes.POST("/databases/:db_id/tables/:table_id/columns", tableHandler.AddColumn)

		apiRoutes.POST("/databases/:db_id/keys", keyHandler.CreateAPIKey)
		apiRoutes.GET("/keys", keyHandler.ListAPIKeys)
		apiRoutes.POST("/keys/:key_id/regenerate", keyHandler.RegenerateAPIKey)
		apiRoutes.PATCH("/keys/:key_id", keyHandler.ToggleAPIKey)
		apiRoutes.DELETE("/keys/:key_id", keyHandler.DeleteAPIKey)

		apiRoutes.GET("/logs", logHandler.ListQueryLogs)
		apiRoutes.DELETE("/logs", middleware.RequireAdmin(), logHandler.ClearQueryLogs)
	}

	return router
}
