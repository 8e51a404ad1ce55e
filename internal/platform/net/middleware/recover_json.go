package middleware

import (
	"net/http"
	"runtime/debug"

	perr "tedingest/internal/platform/errors"
	"tedingest/internal/platform/logger"
	"tedingest/internal/platform/metrics"
	pnet "tedingest/internal/platform/net"
	phttp "tedingest/internal/platform/net/http"
)

// RecoverJSON turns a handler panic into the standard error envelope with
// code Panic and status 500. http.ErrAbortHandler is re-raised for net/http.
func RecoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			route := routeOf(r)
			metrics.APIPanics.WithLabelValues(route).Inc()
			logger.C(r.Context()).Error().
				Interface("panic", v).
				Str("route", route).
				Bytes("stack", debug.Stack()).
				Msg("handler panic recovered")

			err := perr.PanicErrf("internal error")
			phttp.JSON(w, http.StatusInternalServerError, phttp.Envelope{
				StatusCode: http.StatusInternalServerError,
				Status:     http.StatusText(http.StatusInternalServerError),
				Code:       perr.CodeOf(err),
				Error:      perr.Root(err).Error(),
				RequestID:  pnet.RequestID(r.Context()),
			})
		}()
		next.ServeHTTP(w, r)
	})
}
