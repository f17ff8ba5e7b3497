package main

import (
	"os"
	"path/filepath"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"

	"sla-tracker/internal/api"
	"sla-tracker/internal/config"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	logrus.SetLevel(cfg.Level())

	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logrus.Fatalf("create data directory: %v", err)
		}
	}

	server, err := api.NewServer(api.Config{
		DBPath:         cfg.DBPath,
		SilentDB:       cfg.SilentDB,
		CatalogPath:    cfg.CatalogPath,
		Timezone:       cfg.Timezone,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer server.Close()

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	logrus.WithFields(logrus.Fields{
		"port":     cfg.Port,
		"db":       cfg.DBPath,
		"timezone": cfg.Timezone,
	}).Info("starting sla tracker")
	if err := router.Run(":" + cfg.Port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}
