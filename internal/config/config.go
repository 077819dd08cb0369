// internal/config/config.go
// Loads client and server configuration from a JSON file over defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/erilali/neonchat/internal/history"
	"github.com/erilali/neonchat/internal/logger"
	"github.com/nats-io/nats.go"
)

type ClientConfig struct {
	ServerURL string `json:"server_url"`
}

type ServerConfig struct {
	Addr    string `json:"addr"`
	NatsURL string `json:"nats_url"`
	// UseNats disables the JetStream history store when false.
	UseNats bool `json:"use_nats"`
}

type HistoryConfig struct {
	Dir        string `json:"dir"`
	Lines      int    `json:"lines"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
}

type Config struct {
	Client  ClientConfig     `json:"client"`
	Server  ServerConfig     `json:"server"`
	History HistoryConfig    `json:"history"`
	Log     logger.LogConfig `json:"log"`
}

func Default() Config {
	return Config{
		Client: ClientConfig{ServerURL: "ws://localhost:2024"},
		Server: ServerConfig{
			Addr:    "localhost:2024",
			NatsURL: nats.DefaultURL,
			UseNats: true,
		},
		History: HistoryConfig{
			Dir:        "chat_logs",
			Lines:      history.DefaultLines,
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Log: logger.DefaultLogConfig(),
	}
}

// Load reads filePath over Default. A missing file yields the defaults.
// NATS_URL, when set, overrides server.nats_url.
func Load(filePath string) (Config, error) {
	config := Default()
	applyEnv(&config)
	if filePath == "" {
		return config, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return config, fmt.Errorf("open config %s: %w", filePath, err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return config, fmt.Errorf("decode config %s: %w", filePath, err)
	}
	applyEnv(&config)
	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("config %s: %w", filePath, err)
	}
	return config, nil
}

func applyEnv(c *Config) {
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.Server.NatsURL = natsURL
	}
}

func (c Config) Validate() error {
	if c.Client.ServerURL == "" {
		return errors.New("client.server_url is empty")
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr is empty")
	}
	if c.History.Lines < 0 {
		return fmt.Errorf("history.lines must not be negative, got %d", c.History.Lines)
	}
	return nil
}
