package migrations

import (
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pkg/errors"
)

// ApplyOptions locates the sql files and the mirrors database.
type ApplyOptions struct {
	SourceURL   string
	DatabaseURL string
}

// ApplyResult reports the schema version once migrations ran. Changes is false when the schema was already current.
type ApplyResult struct {
	Err     error
	Changes bool
	Version uint
}

func Up(options ApplyOptions) (res ApplyResult) {
	m, err := migrate.New(options.SourceURL, options.DatabaseURL)
	if err != nil {
		res.Err = errors.Wrap(err, "failed to open migrations")
		return
	}
	defer m.Close()

	switch err := m.Up(); err {
	case nil:
		res.Changes = true
	case migrate.ErrNoChange:
	default:
		res.Err = errors.Wrap(err, "failed to migrate mirrors schema")
		return
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		res.Err = errors.Wrap(err, "failed to read schema version")
		return
	}
	if dirty {
		res.Err = errors.Errorf("schema version %d is dirty", version)
		return
	}
	res.Version = version
	return
}
