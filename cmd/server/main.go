// cmd/server/main.go
// Chat server entry point: initializes the logger and serves rooms over WebSocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/erilali/neonchat/internal/api"
	"github.com/erilali/neonchat/internal/config"
	"github.com/erilali/neonchat/internal/logger"
)

// Global logger for non-hub components
var serverLogger *logger.Logger

func main() {
	configPath := flag.String("config", "neonchat.json", "path to the JSON config file")
	addr := flag.String("addr", "", "listen address, overrides server.addr")
	noNats := flag.Bool("no-nats", false, "keep history in log files instead of JetStream")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v, using defaults\n", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *noNats {
		cfg.Server.UseNats = false
	}

	logger.InitLogger(cfg.Log)
	serverLogger = logger.NewLogger("server")
	serverLogger.WithFields(map[string]interface{}{
		"level":       cfg.Log.Level,
		"log_to_file": cfg.Log.LogToFile,
		"log_to_json": cfg.Log.LogToJSON,
		"addr":        cfg.Server.Addr,
	}).Info("Logger configuration details")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := api.StartServer(ctx, cfg, serverLogger); err != nil {
		serverLogger.Fatalf("Server stopped: %v", err)
	}
	serverLogger.Info("Server is shut down")
}
