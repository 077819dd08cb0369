// internal/api/api.go
// Provides StartServer and the HTTP surface of the chat server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/erilali/neonchat/internal/config"
	"github.com/erilali/neonchat/internal/history"
	"github.com/erilali/neonchat/internal/hub"
	"github.com/erilali/neonchat/internal/logger"
	"github.com/nats-io/nats.go"
)

const (
	version         = "1.0.0"
	natsDialTimeout = 2 * time.Second
	shutdownTimeout = 5 * time.Second
)

// openHistory prefers JetStream and falls back to rotating room files.
// The returned connection is nil when NATS is not used.
func openHistory(cfg config.Config, serverLogger *logger.Logger) (history.Store, *nats.Conn, string, error) {
	historyLogger := logger.NewLogger("history")

	if cfg.Server.UseNats {
		serverLogger.Infof("Connecting to NATS at %s", cfg.Server.NatsURL)
		nc, err := nats.Connect(cfg.Server.NatsURL, nats.Timeout(natsDialTimeout), nats.Name("neonchat-server"))
		if err != nil {
			serverLogger.Errorf("Error connecting to NATS: %v", err)
			serverLogger.Warn("Running without NATS connection. History falls back to log files.")
		} else {
			js, err := nc.JetStream()
			if err == nil {
				var store *history.JetStreamStore
				store, err = history.NewJetStreamStore(js, historyLogger)
				if err == nil {
					serverLogger.Info("Successfully connected to JetStream")
					return store, nc, "jetstream", nil
				}
			}
			serverLogger.Errorf("Error setting up JetStream: %v", err)
			serverLogger.Warn("Running without JetStream. History falls back to log files.")
			nc.Close()
		}
	}

	store, err := history.NewFileStore(cfg.History.Dir, cfg.History.MaxSizeMB, cfg.History.MaxBackups, historyLogger)
	if err != nil {
		return nil, nil, "", err
	}
	serverLogger.Infof("Using history log directory %s", cfg.History.Dir)
	return store, nil, "file", nil
}

// Routes builds the server mux. The chat socket is served at / and /ws.
func Routes(h *hub.Hub, nc *nats.Conn, historyBackend string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWs)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		natsStatus := "disabled"
		if nc != nil {
			natsStatus = "disconnected"
			if nc.Status() == nats.CONNECTED {
				natsStatus = "connected"
			}
		}
		stats := h.Stats()
		health := map[string]interface{}{
			"status":  "ok",
			"version": version,
			"nats":    natsStatus,
			"history": historyBackend,
			"clients": stats.Clients,
			"rooms":   stats.Rooms,
			"uptime":  stats.Uptime.Round(time.Second).String(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		h.ServeWs(w, r)
	})
	return mux
}

// StartServer runs the chat server until ctx is done.
func StartServer(ctx context.Context, cfg config.Config, serverLogger *logger.Logger) error {
	store, nc, backend, err := openHistory(cfg, serverLogger)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			serverLogger.Errorf("Error closing history: %v", err)
		}
		if nc != nil {
			nc.Drain()
		}
	}()

	h := hub.NewHub(store, cfg.History.Lines, logger.NewLogger("hub"))
	go h.Run()
	defer h.Stop()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           Routes(h, nc, backend),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		serverLogger.Infof("Server is running at ws://%s", cfg.Server.Addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		serverLogger.Info("Server is shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
