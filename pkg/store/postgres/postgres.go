// Package postgres implements pkg/store's interfaces against a real
// relational database: one table per entity, uuid primary keys,
// JSON columns for structure/values/limits/registry/healthcheck/tags/
// path/rules/conditions, per spec.md §6's persisted-state layout.
package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/store"
)

// DB wraps the shared connection pool every entity-specific store in
// this package is built on.
type DB struct {
	conn *sqlx.DB
}

// Open connects to dsn and verifies connectivity with a ping.
func Open(dsn string) (*DB, error) {
	conn, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "connect to postgres", err)
	}
	return &DB{conn: conn}, nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() error { return db.conn.Close() }

// Migrate applies every pending migration in schemaMigrations.
func (db *DB) Migrate() error {
	_, err := migrate.Exec(db.conn.DB, "postgres", schemaMigrations, migrate.Up)
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "apply schema migrations", err)
	}
	return nil
}

// New assembles a postgres-backed store.Store wiring every
// entity-specific store in this package.
func New(db *DB) *store.Store {
	return &store.Store{
		Apps:        &Apps{db: db},
		Configs:     &Configs{db: db},
		Builds:      &Builds{db: db},
		Releases:    &Releases{db: db},
		AppSettings: &AppSettingsStore{db: db},
		Services:    &Services{db: db},
		Volumes:     &Volumes{db: db},
		Resources:   &Resources{db: db},
		LimitPlans:  &LimitPlans{db: db},
		Gateways:    &Gateways{db: db},
		Tokens:      &Tokens{db: db},
	}
}

func marshalJSON(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Every value passed through this helper is an in-process Go
		// value built from validated fields; a marshal failure here
		// means a caller constructed an unmarshalable type (e.g. a
		// channel), which is a programmer error, not a runtime one.
		panic(err)
	}
	return b
}

func unmarshalJSON(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }

// isUniqueViolation reports whether err is a postgres unique-constraint
// violation (SQLSTATE 23505), per lib/pq's error code table.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func wrapNotFound(err error, format string, args ...interface{}) error {
	if isNoRows(err) {
		return ctlerr.Newf(ctlerr.NotFound, format, args...)
	}
	return ctlerr.Wrap(ctlerr.ServiceUnavailable, "query postgres", err)
}
