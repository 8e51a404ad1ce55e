// Package modkit provides module wiring and core deps
package modkit

import (
	"tedingest/internal/modkit/repokit"
	"tedingest/internal/platform/bus"
	"tedingest/internal/platform/config"
	"tedingest/internal/platform/logger"
	"tedingest/internal/platform/store"
)

// Deps holds core dependencies passed to modules. PG and CH are nil when the
// backend is not configured.
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse

	// Bus is nil when event publishing is disabled
	Bus bus.Publisher
}
