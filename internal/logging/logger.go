package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger from environment variables.
//
//	CINEGEN_LOG_LEVEL  debug, info, warn, error (default: info)
//	CINEGEN_LOG_FORMAT console (default) or json
//
// Lambda deployments set CINEGEN_LOG_FORMAT=json so CloudWatch receives one
// JSON object per line.
func Init() {
	InitWith(os.Getenv("CINEGEN_LOG_LEVEL"), os.Getenv("CINEGEN_LOG_FORMAT"))
}

// InitWith initializes the global logger with an explicit level and format.
func InitWith(level, format string) {
	zerolog.SetGlobalLevel(ParseLevel(level))

	if strings.EqualFold(format, "json") {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// ParseLevel maps a level name to a zerolog level. Unknown names map to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
