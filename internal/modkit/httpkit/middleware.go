package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	"tedingest/internal/platform/net/middleware"
)

// CommonStack returns the baseline per module middleware slice. origins feeds
// CORS; empty allows any origin.
func CommonStack(origins []string) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID(),
		middleware.RealIP(),
		middleware.RequestContext,
		middleware.RecoverJSON,
		middleware.NoCache(),
		middleware.CORS(middleware.CORSOptions{AllowedOrigins: origins}),
		middleware.Compress(flate.BestSpeed),
		middleware.StripSlashes(),
		middleware.Timeout(30 * time.Second),
	}
}
