package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/adityabisht-lab/reddit-video-generator/internal/config"
	"github.com/adityabisht-lab/reddit-video-generator/internal/storage"
	"github.com/adityabisht-lab/reddit-video-generator/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "reddit-video-generator",
	Short: "Turns reddit threads into narrated videos through an async job pipeline",
}

func Execute(st *store.Store, artifacts *storage.LocalStorage, cfg *config.Config) {
	rootCmd.AddCommand(ServeCmd(st, artifacts, cfg))
	rootCmd.AddCommand(WorkerCmd(st, artifacts, cfg))
	rootCmd.AddCommand(JobsCmd(st))

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
