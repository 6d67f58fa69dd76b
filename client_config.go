package goathena

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ClientConfig is the optional file-based client configuration,
// referenced from the DSN via client_config_file.
type ClientConfig struct {
	Common ClientConfigCommonProps `toml:"common"`
}

// ClientConfigCommonProps holds the driver-wide knobs of the client
// configuration file.
type ClientConfigCommonProps struct {
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
}

func parseClientConfiguration(path string) (*ClientConfig, error) {
	var cfg ClientConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, programmingError(fmt.Sprintf("failed to parse client configuration %v: %v", path, err))
	}
	return &cfg, nil
}

// applyClientConfiguration applies the file settings to the package
// logger.
func applyClientConfiguration(cfg *ClientConfig) error {
	if cfg.Common.LogLevel != "" {
		if err := logger.SetLogLevel(cfg.Common.LogLevel); err != nil {
			return programmingError(fmt.Sprintf("invalid log level in client configuration: %v", err))
		}
	}
	if cfg.Common.LogPath != "" {
		logFile := filepath.Join(cfg.Common.LogPath, "goathena.log")
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return programmingError(fmt.Sprintf("failed to open log file %v: %v", logFile, err))
		}
		logger.SetOutput(file)
	}
	return nil
}
