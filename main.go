// main.go
// Terminal chat client entry point: loads config, initializes the logger and
// runs the connection manager behind the terminal view.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/erilali/neonchat/internal/client"
	"github.com/erilali/neonchat/internal/config"
	"github.com/erilali/neonchat/internal/logger"
	"github.com/erilali/neonchat/internal/transport/ws"
	"github.com/erilali/neonchat/internal/view/tui"
)

func main() {
	configPath := flag.String("config", "neonchat.json", "path to the JSON config file")
	serverURL := flag.String("server", "", "chat server URL, overrides client.server_url")
	logFile := flag.String("log", "neonchat-client.log", "log file; the terminal is used by the chat view")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v, using defaults\n", err)
	}
	if *serverURL != "" {
		cfg.Client.ServerURL = *serverURL
	}

	// The screen belongs to the chat view, so logs only go to a file.
	cfg.Log.DisableConsole = true
	cfg.Log.LogToFile = *logFile != ""
	cfg.Log.FilePath = *logFile
	logger.InitLogger(cfg.Log)
	clientLogger := logger.NewLogger("client")
	clientLogger.WithField("server_url", cfg.Client.ServerURL).Info("Client starting")

	adapter := tui.NewAdapter()
	dialer := ws.NewDialer(cfg.Client.ServerURL, logger.NewLogger("transport"))
	manager := client.New(dialer, adapter, clientLogger)

	program := tea.NewProgram(tui.New(manager), tea.WithAltScreen())
	adapter.Attach(program)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		manager.Run(ctx)
	}()

	_, err = program.Run()
	cancel()
	<-done
	if err != nil {
		clientLogger.Errorf("Terminal view failed: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	clientLogger.Info("Client stopped")
}
