package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/store"
)

// Gateways implements store.GatewayStore against the gateways and
// routes tables.
type Gateways struct{ db *DB }

func (g *Gateways) UpsertGateway(ctx context.Context, gw *store.Gateway) error {
	if gw.ID == "" {
		gw.ID = uuid.NewString()
	}
	query, args, err := psql.Insert("gateways").
		Columns("id", "app", "name").
		Values(gw.ID, gw.App, gw.Name).
		Suffix("ON CONFLICT (app, name) DO NOTHING").
		ToSql()
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "build upsert", err)
	}
	if _, err := g.db.conn.ExecContext(ctx, query, args...); err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "upsert gateway", err)
	}
	return nil
}

func (g *Gateways) GetGateway(ctx context.Context, app, name string) (*store.Gateway, error) {
	query, args, err := psql.Select("id", "app", "name").From("gateways").
		Where(sq.Eq{"app": app, "name": name}).ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	var row store.Gateway
	if err := g.db.conn.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		return nil, wrapNotFound(err, "gateway %q not found", name)
	}
	return &row, nil
}

func (g *Gateways) UpsertRoute(ctx context.Context, r *store.Route) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	query, args, err := psql.Insert("routes").
		Columns("id", "app", "name", "rules", "tls_refs").
		Values(r.ID, r.App, r.Name, marshalJSON(r.Rules), marshalJSON(r.TLSRefs)).
		Suffix("ON CONFLICT (app, name) DO UPDATE SET rules = EXCLUDED.rules, tls_refs = EXCLUDED.tls_refs").
		ToSql()
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "build upsert", err)
	}
	if _, err := g.db.conn.ExecContext(ctx, query, args...); err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "upsert route", err)
	}
	return nil
}

func (g *Gateways) GetRoute(ctx context.Context, app, name string) (*store.Route, error) {
	query, args, err := psql.Select("id", "app", "name", "rules", "tls_refs").From("routes").
		Where(sq.Eq{"app": app, "name": name}).ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	var row routeRow
	if err := g.db.conn.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		return nil, wrapNotFound(err, "route %q not found", name)
	}
	return row.toRoute()
}

type routeRow struct {
	ID      string `db:"id"`
	App     string `db:"app"`
	Name    string `db:"name"`
	Rules   []byte `db:"rules"`
	TLSRefs []byte `db:"tls_refs"`
}

func (r routeRow) toRoute() (*store.Route, error) {
	route := &store.Route{ID: r.ID, App: r.App, Name: r.Name}
	if err := unmarshalJSON(r.Rules, &route.Rules); err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "decode route rules", err)
	}
	if err := unmarshalJSON(r.TLSRefs, &route.TLSRefs); err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "decode route tls refs", err)
	}
	return route, nil
}
