package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/store"
)

// Configs implements store.ConfigStore against the configs table.
type Configs struct{ db *DB }

func (c *Configs) Create(ctx context.Context, cfg *store.Config) error {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	query, args, err := psql.Insert("configs").
		Columns("id", "app", "values_", "limits", "registry", "healthcheck", "tags",
			"lifecycle_post_start", "lifecycle_pre_stop", "termination_grace_period").
		Values(cfg.ID, cfg.App, marshalJSON(cfg.Values), marshalJSON(cfg.Limits),
			marshalJSON(cfg.Registry), marshalJSON(cfg.Healthcheck), marshalJSON(cfg.Tags),
			marshalJSON(cfg.LifecyclePostStart), marshalJSON(cfg.LifecyclePreStop),
			marshalJSON(cfg.TerminationGracePeriod)).
		Suffix("RETURNING created").
		ToSql()
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "build insert", err)
	}
	if err := c.db.conn.QueryRowContext(ctx, query, args...).Scan(&cfg.Created); err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "insert config", err)
	}
	return nil
}

func (c *Configs) Latest(ctx context.Context, app string) (*store.Config, error) {
	query, args, err := configSelect().Where(sq.Eq{"app": app}).
		OrderBy("created DESC").Limit(1).ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	var row configRow
	if err := c.db.conn.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		return nil, wrapNotFound(err, "no config for app %q", app)
	}
	return row.toConfig()
}

func (c *Configs) Get(ctx context.Context, id string) (*store.Config, error) {
	query, args, err := configSelect().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	var row configRow
	if err := c.db.conn.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		return nil, wrapNotFound(err, "config %q not found", id)
	}
	return row.toConfig()
}

func configSelect() sq.SelectBuilder {
	return psql.Select("id", "app", "values_", "limits", "registry", "healthcheck", "tags",
		"lifecycle_post_start", "lifecycle_pre_stop", "termination_grace_period", "created").
		From("configs")
}

type configRow struct {
	ID                     string    `db:"id"`
	App                    string    `db:"app"`
	Values                 []byte    `db:"values_"`
	Limits                 []byte    `db:"limits"`
	Registry               []byte    `db:"registry"`
	Healthcheck            []byte    `db:"healthcheck"`
	Tags                   []byte    `db:"tags"`
	LifecyclePostStart     []byte    `db:"lifecycle_post_start"`
	LifecyclePreStop       []byte    `db:"lifecycle_pre_stop"`
	TerminationGracePeriod []byte    `db:"termination_grace_period"`
	Created                time.Time `db:"created"`
}

func (r configRow) toConfig() (*store.Config, error) {
	cfg := &store.Config{ID: r.ID, App: r.App, Created: r.Created}
	for _, dec := range []struct {
		data []byte
		dst  interface{}
	}{
		{r.Values, &cfg.Values},
		{r.Limits, &cfg.Limits},
		{r.Registry, &cfg.Registry},
		{r.Healthcheck, &cfg.Healthcheck},
		{r.Tags, &cfg.Tags},
		{r.LifecyclePostStart, &cfg.LifecyclePostStart},
		{r.LifecyclePreStop, &cfg.LifecyclePreStop},
		{r.TerminationGracePeriod, &cfg.TerminationGracePeriod},
	} {
		if err := unmarshalJSON(dec.data, dec.dst); err != nil {
			return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "decode config", err)
		}
	}
	return cfg, nil
}
