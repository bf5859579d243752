package middleware

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/sirupsen/logrus"
)

// Harden wraps a handler with CORS for the given origins and turns handler panics into 500s
// logged through logger.
func Harden(logger *logrus.Logger, origins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		cors := handlers.CORS(
			handlers.AllowedOrigins(origins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		)(next)
		return handlers.RecoveryHandler(
			handlers.RecoveryLogger(logger),
			handlers.PrintRecoveryStack(logger.IsLevelEnabled(logrus.DebugLevel)),
		)(cors)
	}
}
