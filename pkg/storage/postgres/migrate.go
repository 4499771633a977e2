package postgres

import (
	"errors"
	"fmt"
	"io/fs"

	"orderdesk/internal/config"
	"orderdesk/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Migrate applies the migrations in dir of fsys. ErrNoChange is not an error.
func Migrate(cfg *config.Postgres, fsys fs.FS, dir string, direction Direction, log logger.Logger) error {
	const op = "storage.postgres.Migrate"

	src, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("%s: open source: %w", op, err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, DSN("pgx5", cfg))
	if err != nil {
		return fmt.Errorf("%s: new migrate: %w", op, err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			log.Warnw("migrate close failed", "operation", op, "source_error", srcErr, "db_error", dbErr)
		}
	}()

	switch direction {
	case Up:
		err = m.Up()
	case Down:
		err = m.Down()
	default:
		return fmt.Errorf("%s: unknown direction %q", op, direction)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Infow("migrations up to date", "operation", op, "direction", string(direction))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %s: %w", op, direction, err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("%s: version: %w", op, err)
	}

	log.Infow("migrations applied",
		"operation", op,
		"direction", string(direction),
		"version", version,
		"dirty", dirty,
	)

	return nil
}
