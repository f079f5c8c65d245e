// Package server implements the storage server: a thin HTTP surface over a
// disk-backed store, honoring the upload/list/download/delete contract the
// sync client relies on.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/openmirror/drivebox/internal/server/storage"
)

type Server struct {
	config  *Config
	server  *http.Server
	storage *storage.Storage
}

func New(config *Config) (*Server, error) {
	store, err := storage.New(config.StorageDir)
	if err != nil {
		return nil, err
	}

	return &Server{
		config:  config,
		storage: store,
		server: &http.Server{
			Addr:    config.Addr,
			Handler: SetupRoutes(store),
		},
	}, nil
}

func (s *Server) Start(ctx context.Context) error {
	slog.Info("server start", "addr", s.config.Addr, "storage", s.storage.Root())
	defer slog.Info("server stop")

	errCh := make(chan error, 1)
	go func() {
		if err := s.run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

func (s *Server) Stop() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) run() error {
	if s.config.CertFile != "" && s.config.KeyFile != "" {
		slog.Info("server listening tls", "addr", s.config.Addr)
		return s.server.ListenAndServeTLS(s.config.CertFile, s.config.KeyFile)
	}
	slog.Info("server listening http", "addr", s.config.Addr)
	return s.server.ListenAndServe()
}
