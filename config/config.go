package config

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ServerConfig contains all of the server settings
type ServerConfig struct {
	ListenAddrIP     string
	ListenAddrPort   string
	DatabaseType     string
	DatabaseHost     string
	DatabasePort     string
	DatabaseUser     string
	DatabasePassword string
	DatabaseDbname   string
	DatabaseSslmode  string
	PresentationPath string //absolute path to the presentation folder
	Renderer         string //pdf engine: fitz or pdfium
	NotesPosition    string //none, left or right half of each page
	CacheMaxMB       int    //negative means unlimited
	CacheMaxPages    int    //negative means unlimited
	RenderThreads    int
	ImportInterval   int //minutes between presentation folder rescans
	WebUIPass        bool
	ClientUsername   string
	ClientPassword   string
	UseReverseProxy  bool
	BaseURL          string
	FrontEndConfig
}

// FrontEndConfig stores all of the frontend settings
type FrontEndConfig struct {
	ServerAPIURL string
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolVal
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// CacheMaxBytes converts the configured cache limit to bytes
func (config ServerConfig) CacheMaxBytes() int64 {
	if config.CacheMaxMB < 0 {
		return -1
	}
	return int64(config.CacheMaxMB) << 20
}

// SetupServer loads configuration and returns ServerConfig and Logger
func SetupServer() (ServerConfig, *slog.Logger) {
	serverConfigLive := ServerConfig{}
	frontEndConfigLive := FrontEndConfig{}

	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")

	logger := setupLogging()
	Logger = logger

	// Load configuration from environment variables with defaults

	// Server configuration
	serverConfigLive.ListenAddrPort = getEnv("SERVER_PORT", "8000")
	serverConfigLive.ListenAddrIP = getEnv("SERVER_ADDR", "")

	// Database configuration
	serverConfigLive.DatabaseType = getEnv("DATABASE_TYPE", "sqlite")
	serverConfigLive.DatabaseHost = getEnv("DATABASE_HOST", "localhost")
	serverConfigLive.DatabasePort = getEnv("DATABASE_PORT", "5432")
	serverConfigLive.DatabaseUser = getEnv("DATABASE_USER", "gopresent")
	serverConfigLive.DatabasePassword = getEnv("DATABASE_PASSWORD", "")
	serverConfigLive.DatabaseDbname = getEnv("DATABASE_NAME", "gopresent")
	serverConfigLive.DatabaseSslmode = getEnv("DATABASE_SSLMODE", "")

	logger.Info("Database configuration loaded", "type", serverConfigLive.DatabaseType)

	// Presentation storage configuration
	presentationDir := filepath.ToSlash(getEnv("PRESENTATION_PATH", "presentations"))
	presentationDirAbs, err := filepath.Abs(presentationDir)
	if err != nil {
		logger.Error("Failed creating absolute path for presentation directory", "error", err)
	}
	serverConfigLive.PresentationPath = presentationDirAbs

	// Rendering configuration
	serverConfigLive.Renderer = getEnv("RENDERER", "fitz")
	serverConfigLive.NotesPosition = getEnv("NOTES_POSITION", "none")
	switch serverConfigLive.NotesPosition {
	case "none", "left", "right":
	default:
		logger.Warn("Unknown notes position, ignoring", "value", serverConfigLive.NotesPosition)
		serverConfigLive.NotesPosition = "none"
	}
	serverConfigLive.CacheMaxMB = getEnvInt("CACHE_MAX_MB", 200)
	serverConfigLive.CacheMaxPages = getEnvInt("CACHE_MAX_PAGES", -1)
	serverConfigLive.RenderThreads = getEnvInt("RENDER_THREADS", 1)
	serverConfigLive.ImportInterval = getEnvInt("IMPORT_INTERVAL", 60)

	fmt.Println("\n========================================")
	fmt.Println("   goPresent - Presentation Server")
	fmt.Println("========================================")
	fmt.Printf("Server will start on: %s:%s\n", serverConfigLive.ListenAddrIP, serverConfigLive.ListenAddrPort)
	if serverConfigLive.ListenAddrIP == "" {
		fmt.Println("(Listening on all network interfaces)")
	}
	fmt.Printf("Detailed logs: %s\n", getEnv("LOG_FILE", "gopresent.log"))
	fmt.Println("Initializing...")

	// Authentication configuration
	serverConfigLive.WebUIPass = getEnvBool("WEB_UI_AUTH", false)
	serverConfigLive.ClientUsername = getEnv("WEB_UI_USER", "admin")
	serverConfigLive.ClientPassword = getEnv("WEB_UI_PASSWORD", "Password1")

	// Reverse proxy configuration
	serverConfigLive.UseReverseProxy = getEnvBool("PROXY_ENABLED", false)
	serverConfigLive.BaseURL = getEnv("BASE_URL", "https://gopresent.domain.org")

	if serverConfigLive.UseReverseProxy {
		logger.Info("Using Reverse Proxy", "baseURL", serverConfigLive.BaseURL)
	} else {
		logger.Info("Using relative URLs for API calls (frontend will use same host it was served from)")
	}

	// Frontend configuration
	frontEndConfigLive.ServerAPIURL = getEnv("SERVER_API_URL", "")
	serverConfigLive.FrontEndConfig = frontEndConfigLive

	logger.Info("About to setup database", "type", serverConfigLive.DatabaseType)

	return serverConfigLive, logger
}

// SetupFrontend loads configuration for frontend-only server
func SetupFrontend() (FrontEndConfig, *slog.Logger) {
	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")
	_ = godotenv.Load("frontend.env")

	logger := setupLogging()
	Logger = logger

	frontendConfig := FrontEndConfig{}

	// Frontend configuration
	frontendConfig.ServerAPIURL = getEnv("SERVER_API_URL", "http://localhost:8000")

	logger.Info("Frontend configuration loaded", "apiURL", frontendConfig.ServerAPIURL)

	return frontendConfig, logger
}

// setupLogging configures the application logger
func setupLogging() *slog.Logger {
	logLevel := getEnv("LOG_LEVEL", "debug")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelDebug
	}

	handlerOptions := &slog.HandlerOptions{Level: level}

	logOutput := getEnv("LOG_OUTPUT", "file")
	var logWriter io.Writer

	if logOutput == "stdout" {
		logWriter = os.Stdout
	} else {
		logPath, err := filepath.Abs(filepath.ToSlash(getEnv("LOG_FILE", "gopresent.log")))
		if err != nil {
			fmt.Printf("Error creating log file path: %v\n", err)
			logWriter = os.Stdout
		} else {
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Printf("Failed to open log file: %v\n", err)
				logWriter = os.Stdout
			} else {
				logWriter = logFile
				fmt.Println("Logging to file: ", logPath)
			}
		}
	}

	handler := slog.NewTextHandler(logWriter, handlerOptions)
	return slog.New(handler)
}

// GetPreferredOutboundIP gets preferred outbound IP of this machine
func GetPreferredOutboundIP() (net.IP, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP, nil
}

// checkPresentationDir verifies that the presentation folder exists and is a directory
func checkPresentationDir(path string, logger *slog.Logger) error {
	info, err := os.Stat(path)
	if err != nil {
		logger.Error("Cannot find presentation directory at location specified", "path", path)
		return err
	}
	if !info.IsDir() {
		logger.Error("Presentation path is not a directory", "path", path)
		return fmt.Errorf("not a directory: %s", path)
	}
	logger.Debug("Presentation directory found", "path", path)
	return nil
}
