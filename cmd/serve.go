package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/adityabisht-lab/reddit-video-generator/internal/api"
	"github.com/adityabisht-lab/reddit-video-generator/internal/config"
	"github.com/adityabisht-lab/reddit-video-generator/internal/fetch"
	"github.com/adityabisht-lab/reddit-video-generator/internal/render"
	"github.com/adityabisht-lab/reddit-video-generator/internal/storage"
	"github.com/adityabisht-lab/reddit-video-generator/internal/store"
	"github.com/adityabisht-lab/reddit-video-generator/internal/worker"
)

// ServeCmd runs the API server and the worker pool in one process. The two
// halves share nothing but the job store.
func ServeCmd(st *store.Store, artifacts *storage.LocalStorage, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and the job workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			pool, err := buildPool(st, artifacts, cfg)
			if err != nil {
				return err
			}

			server := &http.Server{
				Addr:    cfg.Server.Addr,
				Handler: api.NewServer(st, artifacts, cfg).Handler(),
			}

			poolDone := make(chan struct{})
			go func() {
				pool.Run(ctx)
				close(poolDone)
			}()

			go func() {
				<-ctx.Done()
				log.Println("Shutting down...")
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				_ = server.Shutdown(shutdownCtx)
			}()

			log.Printf("API listening on %s", cfg.Server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			<-poolDone
			return nil
		},
	}
}

func buildPool(st *store.Store, artifacts *storage.LocalStorage, cfg *config.Config) (*worker.Pool, error) {
	fetcher, err := fetch.NewRedditFetcher()
	if err != nil {
		return nil, err
	}
	renderer := render.NewFFmpegRenderer(cfg, artifacts)
	return worker.NewPool(st, fetcher, renderer, cfg), nil
}

// WorkerCmd runs workers without the API server, for scaling the rendering
// side separately from the web side.
func WorkerCmd(st *store.Store, artifacts *storage.LocalStorage, cfg *config.Config) *cobra.Command {
	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Run job workers only",
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			if count > 0 {
				cfg.Jobs.Workers = count
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			pool, err := buildPool(st, artifacts, cfg)
			if err != nil {
				return err
			}
			log.Println("Press Ctrl+C to shut down gracefully.")
			pool.Run(ctx)
			return nil
		},
	}
	workerCmd.Flags().Int("count", 0, "Number of workers (overrides config)")
	return workerCmd
}
