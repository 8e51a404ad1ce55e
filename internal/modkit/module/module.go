// Package module looks up module ports, either from a module value or from
// the Registry a process fills while mounting
package module

import (
	phttp "tedingest/internal/platform/net/http"
)

// Module mirrors modkit.Module so this package stays import free of modkit
type Module interface {
	MountRoutes(r phttp.Router)
	Ports() any
	Name() string
}
