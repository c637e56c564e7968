package engine

import (
	"fmt"
	"os"

	"github.com/drummonds/goPresent/config"
	"github.com/drummonds/goPresent/database"
)

// StartupChecks performs all the checks to make sure everything works
func (serverHandler *ServerHandler) StartupChecks() error {
	serverConfig, err := database.FetchConfigFromDB(serverHandler.DB)
	if err != nil {
		Logger.Error("Error fetching config", "error", err)
		return err
	}
	if err := presentationDirectoryChecks(serverConfig); err != nil {
		return err
	}
	rendererChecks(serverConfig)
	return nil
}

// presentationDirectoryChecks ensures the presentation directory exists
func presentationDirectoryChecks(serverConfig config.ServerConfig) error {
	if serverConfig.PresentationPath == "" {
		Logger.Warn("Presentation path not configured")
		return nil
	}

	// Check if directory exists
	presentationInfo, err := os.Stat(serverConfig.PresentationPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Create the directory
			Logger.Info("Creating presentation directory", "path", serverConfig.PresentationPath)
			err = os.MkdirAll(serverConfig.PresentationPath, 0755)
			if err != nil {
				Logger.Error("Failed to create presentation directory", "path", serverConfig.PresentationPath, "error", err)
				return err
			}
			Logger.Info("Presentation directory created successfully", "path", serverConfig.PresentationPath)
			return nil
		}
		Logger.Error("Error checking presentation directory", "path", serverConfig.PresentationPath, "error", err)
		return err
	}

	// Check if it's actually a directory
	if !presentationInfo.IsDir() {
		Logger.Error("Presentation path exists but is not a directory", "path", serverConfig.PresentationPath)
		return fmt.Errorf("presentation path is not a directory: %s", serverConfig.PresentationPath)
	}

	Logger.Info("Presentation directory exists", "path", serverConfig.PresentationPath)
	return nil
}

// rendererChecks validates the configured render engine name
func rendererChecks(serverConfig config.ServerConfig) {
	switch serverConfig.Renderer {
	case "", "fitz", "pdfium":
		Logger.Info("Render engine configured", "renderer", serverConfig.Renderer)
	default:
		Logger.Warn("Unknown render engine, falling back to fitz will fail; fix RENDERER", "renderer", serverConfig.Renderer)
	}
}
