package httpkit

import (
	"net/http"
	"strings"

	"tedingest/internal/modkit/module"
)

// APIVersion is the published version of the read API
const APIVersion = "v1"

// APIPrefix is the path every route of version lives under
func APIPrefix(version string) string { return "/api/" + strings.Trim(version, "/") }

// MountModules mounts mods under APIPrefix(version) behind mw and records
// each one in reg, so later lookups see exactly what is being served
func MountModules(r Router, version string, mw []func(http.Handler) http.Handler, reg *module.Registry, mods ...module.Module) {
	r.Route(APIPrefix(version), func(api Router) {
		if len(mw) > 0 {
			api.Use(mw...)
		}
		for _, m := range mods {
			if reg != nil {
				reg.Add(m)
			}
			m.MountRoutes(api)
		}
	})
}
