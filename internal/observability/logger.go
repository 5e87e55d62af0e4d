package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ComponentLogger derives a structured logger from the process logger
// configured by internal/logging.
func ComponentLogger(app, component string) zerolog.Logger {
	return log.Logger.With().Str("app", app).Str("component", component).Logger()
}
