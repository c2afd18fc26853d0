package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/store"
)

// AppSettingsStore implements store.AppSettingsStore against the
// app_settings table (latest-wins, append-only).
type AppSettingsStore struct{ db *DB }

func (s *AppSettingsStore) Create(ctx context.Context, settings *store.AppSettings) error {
	if settings.ID == "" {
		settings.ID = uuid.NewString()
	}
	query, args, err := psql.Insert("app_settings").
		Columns("id", "app", "routable", "autoscale", "label", "autodeploy", "autorollback").
		Values(settings.ID, settings.App, settings.Routable, marshalJSON(settings.Autoscale),
			marshalJSON(settings.Label), settings.Autodeploy, settings.Autorollback).
		Suffix("RETURNING created").
		ToSql()
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "build insert", err)
	}
	if err := s.db.conn.QueryRowContext(ctx, query, args...).Scan(&settings.Created); err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "insert app settings", err)
	}
	return nil
}

func (s *AppSettingsStore) Latest(ctx context.Context, app string) (*store.AppSettings, error) {
	query, args, err := psql.Select("id", "app", "routable", "autoscale", "label", "autodeploy", "autorollback", "created").
		From("app_settings").Where(sq.Eq{"app": app}).OrderBy("created DESC").Limit(1).ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	var row appSettingsRow
	if err := s.db.conn.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		return nil, wrapNotFound(err, "no settings for app %q", app)
	}
	return row.toAppSettings()
}

type appSettingsRow struct {
	ID           string    `db:"id"`
	App          string    `db:"app"`
	Routable     bool      `db:"routable"`
	Autoscale    []byte    `db:"autoscale"`
	Label        []byte    `db:"label"`
	Autodeploy   bool      `db:"autodeploy"`
	Autorollback bool      `db:"autorollback"`
	Created      time.Time `db:"created"`
}

func (r appSettingsRow) toAppSettings() (*store.AppSettings, error) {
	out := &store.AppSettings{
		ID: r.ID, App: r.App, Routable: r.Routable,
		Autodeploy: r.Autodeploy, Autorollback: r.Autorollback, Created: r.Created,
	}
	if err := unmarshalJSON(r.Autoscale, &out.Autoscale); err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "decode autoscale", err)
	}
	if err := unmarshalJSON(r.Label, &out.Label); err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "decode label", err)
	}
	return out, nil
}
