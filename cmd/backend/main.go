package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	config "github.com/drummonds/goPresent/config"
	database "github.com/drummonds/goPresent/database"
	engine "github.com/drummonds/goPresent/engine"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	database.Logger = Logger
	config.Logger = Logger
	engine.Logger = Logger
}

// @title goPresent Backend API
// @version 1.0
// @description PDF presentation viewer API - Backend service for presentation import, slide rendering, and note search
// @description Slides are rendered to the viewer frame size and cached in memory with prefetching around the current slide

// @contact.name API Support
// @contact.url https://github.com/drummonds/goPresent

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8000
// @BasePath /api
// @schemes http https

// @tag.name Presentations
// @tag.description Presentation management operations

// @tag.name Viewer
// @tag.description Slide rendering and navigation operations

// @tag.name Notes
// @tag.description Slide note operations

// @tag.name Search
// @tag.description Note search and indexing operations

// @tag.name Admin
// @tag.description Administrative operations (import, cleanup)

// @tag.name Jobs
// @tag.description Background job tracking

// @tag.name Health
// @tag.description Service health check

func main() {
	// Parse command-line flags
	port := flag.String("port", "8000", "Port to run backend server on")
	flag.Parse()

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("🔧  goPresent Backend API Server")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("• API-only mode (no frontend)")
	fmt.Println("• All endpoints under /api/*")
	fmt.Println("• CORS enabled for frontend access")
	fmt.Println(strings.Repeat("=", 50) + "\n")

	serverConfig, logger := config.SetupServer()
	injectGlobals(logger) //inject the logger into all of the packages

	// Show info banner if using ephemeral database
	if serverConfig.DatabaseType == "ephemeral" {
		fmt.Println("🚀  EPHEMERAL DATABASE MODE")
		fmt.Println("• Database will be destroyed on exit")
		fmt.Println()
	}

	// Setup presentation repository
	repo := database.NewRepository(serverConfig)
	defer repo.Close()

	// Write config to database if it's a fresh ephemeral database
	if serverConfig.DatabaseType == "ephemeral" {
		database.WriteConfigToDB(serverConfig, repo)
	}

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Custom 404 handler for API endpoints
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}

		if code == http.StatusNotFound {
			// Return JSON for API endpoints
			c.JSON(http.StatusNotFound, map[string]string{
				"error":   "Not Found",
				"message": "The requested API endpoint does not exist",
				"path":    c.Request().URL.Path,
			})
			return
		}

		// For other errors, use default handler
		e.DefaultHTTPErrorHandler(err, c)
	}

	serverHandler := engine.ServerHandler{DB: repo, Echo: e, ServerConfig: serverConfig}
	Logger.Info("Initializing backend services...")
	serverHandler.InitializeSchedules(repo) //initialize all the cron jobs
	serverHandler.StartupChecks()           //Run all the sanity checks
	Logger.Info("Backend services initialized")

	// CORS configuration - allow frontend from different origin
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"}, // In production, specify your frontend URL
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// Request logging
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "method=${method}, uri=${uri}, status=${status}, latency=${latency_human}\n",
	}))

	Logger.Info("Setting up API routes...")
	serverHandler.RegisterRoutes()

	// Presentation download routes (serve actual PDF files)
	// These are not under /api/* because they serve files, not JSON
	serverHandler.AddPresentationViewRoutes()

	// Health check endpoint
	e.GET("/api/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "goPresent Backend API",
		})
	})

	// Override port if specified via flag
	if *port != "8000" {
		serverConfig.ListenAddrPort = *port
	}

	// Start server
	addr := fmt.Sprintf("%s:%s", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
	Logger.Info("Starting Backend API Server", "address", addr)
	fmt.Printf("\n✅  Backend API Server running on %s\n", addr)
	fmt.Printf("📡  API endpoints available at http://%s/api/\n", addr)
	fmt.Printf("🏥  Health check: http://%s/api/health\n\n", addr)

	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		Logger.Error("Server failed to start", "error", err)
		os.Exit(1)
	}
}
