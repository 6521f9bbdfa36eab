package main

import (
	"flag"
	"log"

	"github.com/RovierrHQ/rovierr/internal/config"
	"github.com/RovierrHQ/rovierr/internal/database"
	"github.com/RovierrHQ/rovierr/internal/seed"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.Init(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	if err := seed.Run(db, seed.DefaultModules()); err != nil {
		log.Fatalf("seed: %v", err)
	}
}
