// Package migrate applies the embedded schema migrations with golang-migrate
package migrate

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	perr "tedingest/internal/platform/errors"
	"tedingest/internal/platform/logger"
)

//go:embed sql/*.sql
var migrationFS embed.FS

// MigrationsTable keeps golang-migrate's bookkeeping out of the tb schema
const MigrationsTable = "ted_schema_migrations"

// Migrator wraps one migrate instance and the sql.DB behind it
type Migrator struct {
	m  *migrate.Migrate
	db *sql.DB
}

// Open connects to dsn (postgres:// form) and loads the embedded migrations
func Open(dsn string) (*Migrator, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "migrate: open db")
	}
	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		_ = db.Close()
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "migrate: create pgx driver")
	}
	src, err := iofs.New(migrationFS, "sql")
	if err != nil {
		_ = db.Close()
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "migrate: load embedded sql")
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		_ = db.Close()
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "migrate: new instance")
	}
	m.Log = migrateLog{log: *logger.Named("migrate")}
	return &Migrator{m: m, db: db}, nil
}

// Up applies every pending migration; nothing to do is not an error
func (x *Migrator) Up() error {
	if err := x.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return perr.Wrap(err, perr.ErrorCodeDB, "migrate: up")
	}
	return nil
}

// Down rolls back steps migrations; steps <= 0 rolls back everything
func (x *Migrator) Down(steps int) error {
	var err error
	if steps <= 0 {
		err = x.m.Down()
	} else {
		err = x.m.Steps(-steps)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return perr.Wrap(err, perr.ErrorCodeDB, "migrate: down")
	}
	return nil
}

// Version reports the applied version; 0 when nothing has run yet
func (x *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = x.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, perr.Wrap(err, perr.ErrorCodeDB, "migrate: version")
	}
	return version, dirty, nil
}

// Close releases the source and database handles
func (x *Migrator) Close() error {
	srcErr, dbErr := x.m.Close()
	return errors.Join(srcErr, dbErr)
}

// Files lists the embedded migration files in order
func Files() ([]string, error) {
	entries, err := migrationFS.ReadDir("sql")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out, nil
}

type migrateLog struct{ log logger.Logger }

func (l migrateLog) Printf(format string, v ...any) {
	l.log.Info().Msg(fmt.Sprintf(format, v...))
}

func (l migrateLog) Verbose() bool { return false }
