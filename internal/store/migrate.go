package store

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/matheus3301/wxread/internal/store/migrations"
)

// Schema names one of the device store layouts.
type Schema string

const (
	LegacySchema  Schema = "mm"      // DB/MM.sqlite
	ContactSchema Schema = "contact" // DB/WCDB_Contact.sqlite
)

// SchemaResult reports the schema version of a store after ApplySchema.
type SchemaResult struct {
	Version uint
	Dirty   bool
	Changed bool
}

// ApplySchema lays down the tables of s in db. Fixtures use it to build
// synthetic snapshots; readers never write to a store.
func (db *DB) ApplySchema(s Schema) (*SchemaResult, error) {
	src := migrations.MM
	switch s {
	case LegacySchema:
	case ContactSchema:
		src = migrations.Contact
	default:
		return nil, fmt.Errorf("unknown schema %q", s)
	}

	source, err := iofs.New(src, string(s))
	if err != nil {
		return nil, fmt.Errorf("%s schema source: %w", s, err)
	}
	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("%s schema driver: %w", s, err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("%s schema: %w", s, err)
	}

	changed := true
	if err := m.Up(); errors.Is(err, migrate.ErrNoChange) {
		changed = false
	} else if err != nil {
		return nil, fmt.Errorf("apply %s schema to %s: %w", s, db.Path, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return nil, fmt.Errorf("%s schema version: %w", s, err)
	}
	return &SchemaResult{Version: version, Dirty: dirty, Changed: changed}, nil
}
