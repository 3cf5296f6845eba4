package main

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/adityabisht-lab/reddit-video-generator/cmd"
	"github.com/adityabisht-lab/reddit-video-generator/internal/config"
	"github.com/adityabisht-lab/reddit-video-generator/internal/storage"
	"github.com/adityabisht-lab/reddit-video-generator/internal/store"
)

func main() {
	// .env is for local dev; deployments set real environment variables
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_FILE")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = config.Default()
	}

	if err := os.MkdirAll(cfg.Paths.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data dir: %v", err)
	}

	st, err := store.Open(filepath.Join(cfg.Paths.DataDir, "app.db"))
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	artifacts, err := storage.NewLocalStorage(cfg.Paths.VideosDir)
	if err != nil {
		log.Fatalf("Failed to init artifact storage: %v", err)
	}

	cmd.Execute(st, artifacts, cfg)
}
