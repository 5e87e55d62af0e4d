package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger returns the process-wide zerolog logger for structured call sites.
func Logger() zerolog.Logger {
	return log.Logger
}

func Debugf(format string, args ...any) {
	log.Debug().Msgf(format, args...)
}

func Infof(format string, args ...any) {
	log.Info().Msgf(format, args...)
}

func Warnf(format string, args ...any) {
	log.Warn().Msgf(format, args...)
}

func Errf(format string, args ...any) {
	log.Error().Msgf(format, args...)
}

// Logf writes at no level so it is emitted regardless of the configured threshold.
func Logf(format string, args ...any) {
	log.Log().Msgf(format, args...)
}
