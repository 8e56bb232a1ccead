package config

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// SetupLogger configures the standard logrus logger from cfg.
func SetupLogger(cfg Config) {
	log.SetOutput(os.Stderr)
	if strings.EqualFold(cfg.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
