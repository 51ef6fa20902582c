package main

import (
	"os"
	"time"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
	"github.com/spf13/pflag"

	"rnotes/config"
	"rnotes/db"
	"rnotes/diff"
	"rnotes/notes"
	"rnotes/platform/shutdown"
	"rnotes/providers"
	"rnotes/web"
)

func main() {
	cfg := config.FromEnv()

	cfg.BindFlags(pflag.CommandLine)
	pflag.Parse()
	cfg.Normalize()

	config.Set(cfg)

	database, err := db.GetDB()
	if err != nil {
		logger.LogErr(err, "failed to open database")
		os.Exit(1)
	}

	done := make(chan struct{})
	shutdown.InitShutdownService(done)
	// Hooks run in order: stop taking requests before the database goes away
	shutdown.RegisterHook("http", web.Shutdown)
	shutdown.RegisterHook("database", func(time.Duration) error {
		return database.Close()
	})

	engine := diff.NewEngine(cfg.DiffOptions())
	svc := notes.NewService(database, providers.NewAnthropicClient(cfg), diff.NewSessionManager(engine))
	web.InitNoteService(svc)

	// Create a new rweb server with options
	s := rweb.NewServer(rweb.ServerOptions{
		Address: cfg.Address,
		Verbose: true,
	})

	// Add middleware for request logging
	s.Use(rweb.RequestInfo)
	s.Use(web.TrackRequests)

	web.SetupRoutes(s)

	go func() {
		logger.Info("Starting RNotes server", "address", cfg.Address, "dataDir", cfg.DataDir)
		if err := s.Run(); err != nil {
			logger.LogErr(err, "server stopped")
			os.Exit(1)
		}
	}()

	<-done
}
