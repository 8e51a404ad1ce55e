package httpkit

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	perr "tedingest/internal/platform/errors"
)

// Param returns the unescaped path parameter name; empty is InvalidArgument
func Param(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	v, err := url.PathUnescape(raw)
	if err != nil {
		return "", perr.WithField(perr.InvalidArgf("malformed %s", name), name)
	}
	if v == "" {
		return "", perr.WithField(perr.InvalidArgf("%s is required", name), name)
	}
	return v, nil
}
