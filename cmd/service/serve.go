package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	ht "github.com/mg52/autocomplete/cmd/http"
	"github.com/mg52/autocomplete/internal/engine"
)

const shutdownTimeout = 10 * time.Second

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Loads every category, then serves search, mutation, rebuild and
persistence endpoints until SIGINT or SIGTERM. On shutdown in-flight
requests and any running rebuild are allowed to finish.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address, overrides listen_addr")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ix, cfg, log, err := openIndex(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	if err := engine.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		ix.Close()
		return err
	}

	addr := cfg.ListenAddr
	if listenAddr != "" {
		addr = listenAddr
	}
	handlers := ht.NewHTTP(ix, ht.Options{
		DefaultLimits: cfg.DefaultLimits(),
		MaxLimit:      cfg.MaxLimit,
		MaxBodyBytes:  cfg.MaxBodyBytes,
		Logger:        log.With("component", "http"),
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           handlers.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", addr, "categories", ix.Categories())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			ix.Close()
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "err", err)
	}
	return ix.Close()
}
