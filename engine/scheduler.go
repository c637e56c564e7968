package engine

import (
	"fmt"
	"log/slog"
	"time"

	database "github.com/drummonds/goPresent/database"
	"github.com/robfig/cron/v3"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// jobRetention is how long finished jobs stay in the database.
const jobRetention = 7 * 24 * time.Hour

// InitializeSchedules starts all the cron jobs
func (serverHandler *ServerHandler) InitializeSchedules(db database.Repository) {
	serverConfig, err := database.FetchConfigFromDB(db)
	if err != nil {
		fmt.Println("Error reading db when initializing")
	}

	// Run import job immediately at startup in a goroutine
	Logger.Info("Running import job at startup")
	go serverHandler.importJobFunc(serverConfig, db)

	c := cron.New()

	var importJob cron.Job
	importJob = cron.FuncJob(func() { serverHandler.importJobFunc(serverConfig, db) })
	importJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(importJob) //ensure we don't kick off another if old one is still running
	c.AddJob(fmt.Sprintf("@every %dm", serverConfig.ImportInterval), importJob)
	Logger.Info("Adding import job scheduler", "interval_minutes", serverConfig.ImportInterval)

	c.AddFunc("@daily", func() {
		deleted, err := db.DeleteOldJobs(jobRetention)
		if err != nil {
			Logger.Error("Failed to prune old jobs", "error", err)
			return
		}
		Logger.Info("Pruned old jobs", "deleted", deleted)
	})

	c.AddFunc("@every 5m", func() { serverHandler.logCacheStats() })

	c.Start()
}

// logCacheStats writes one line per open presentation so memory pressure is
// visible in the logs without hitting the stats endpoint.
func (serverHandler *ServerHandler) logCacheStats() {
	serverHandler.sessionMu.Lock()
	defer serverHandler.sessionMu.Unlock()
	for ulidStr, session := range serverHandler.sessions {
		entries, usedMemory, regionFirst, regionLast := session.cache.Stats()
		Logger.Debug("Page cache statistics", "ulid", ulidStr, "pages", entries,
			"usedMemory", usedMemory, "regionFirst", regionFirst, "regionLast", regionLast)
	}
}
