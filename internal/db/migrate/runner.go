// Package migrate applies the embedded schema migrations with golang-migrate.
package migrate

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"tenant-messaging-api/backend/internal/db"
)

// ErrNoChange is returned when there is nothing to apply in the requested direction.
var ErrNoChange = migrate.ErrNoChange

// Options selects what Run applies. Steps of 0 applies every pending migration in Direction.
type Options struct {
	Direction string
	Steps     int
}

// Validate checks Options before any connection is made.
func (o Options) Validate() error {
	if o.Direction != "up" && o.Direction != "down" {
		return fmt.Errorf("direction must be up or down, got %q", o.Direction)
	}
	if o.Steps < 0 {
		return fmt.Errorf("steps must not be negative, got %d", o.Steps)
	}
	return nil
}

// Run applies the migrations selected by opts against dsn and returns the resulting schema version.
func Run(dsn string, opts Options) (uint, error) {
	if dsn == "" {
		return 0, errors.New("DATABASE_URL is not set")
	}
	if err := opts.Validate(); err != nil {
		return 0, err
	}
	m, err := open(dsn)
	if err != nil {
		return 0, err
	}
	defer func() { _, _ = m.Close() }()

	switch {
	case opts.Steps > 0 && opts.Direction == "up":
		err = m.Steps(opts.Steps)
	case opts.Steps > 0:
		err = m.Steps(-opts.Steps)
	case opts.Direction == "up":
		err = m.Up()
	default:
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, err
	}
	version, _, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return 0, verr
	}
	return version, err
}

func open(dsn string) (*migrate.Migrate, error) {
	src, err := iofs.New(db.MigrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return m, nil
}
