package utils

import (
	"log"
	"os"
)

// LoggerConfig defines the logger configuration
type LoggerConfig struct {
	// Output stream (os.Stdout, file, etc.)
	Output *os.File
	// Enable colored console output
	EnableColors bool
}

// InitLogger initializes and returns the application logger
func InitLogger(config ...LoggerConfig) *log.Logger {
	var cfg LoggerConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	prefix := "[Life in the UK] "
	if cfg.EnableColors {
		prefix = "\033[36m" + prefix + "\033[0m"
	}

	return log.New(cfg.Output, prefix, log.LstdFlags|log.LUTC)
}
