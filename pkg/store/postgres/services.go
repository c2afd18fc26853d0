package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/store"
)

// Services implements store.ServiceStore against the services table,
// unique on (app, ptype).
type Services struct{ db *DB }

func (s *Services) Upsert(ctx context.Context, svc *store.Service) error {
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}
	query, args, err := psql.Insert("services").
		Columns("id", "app", "ptype", "ports", "canary").
		Values(svc.ID, svc.App, svc.Ptype, marshalJSON(svc.Ports), svc.Canary).
		Suffix("ON CONFLICT (app, ptype) DO UPDATE SET ports = EXCLUDED.ports, canary = EXCLUDED.canary").
		ToSql()
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "build upsert", err)
	}
	if _, err := s.db.conn.ExecContext(ctx, query, args...); err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "upsert service", err)
	}
	return nil
}

func (s *Services) Get(ctx context.Context, app, ptype string) (*store.Service, error) {
	query, args, err := serviceSelect().Where(sq.Eq{"app": app, "ptype": ptype}).ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	var row serviceRow
	if err := s.db.conn.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		return nil, wrapNotFound(err, "service %s/%s not found", app, ptype)
	}
	return row.toService()
}

func (s *Services) List(ctx context.Context, app string) ([]store.Service, error) {
	query, args, err := serviceSelect().Where(sq.Eq{"app": app}).OrderBy("ptype").ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	rows, err := s.db.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "list services", err)
	}
	defer rows.Close()
	var out []store.Service
	for rows.Next() {
		var row serviceRow
		if err := rows.StructScan(&row); err != nil {
			return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "scan service", err)
		}
		svc, err := row.toService()
		if err != nil {
			return nil, err
		}
		out = append(out, *svc)
	}
	return out, nil
}

func (s *Services) Delete(ctx context.Context, app, ptype string) error {
	query, args, err := psql.Delete("services").Where(sq.Eq{"app": app, "ptype": ptype}).ToSql()
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "build delete", err)
	}
	if _, err := s.db.conn.ExecContext(ctx, query, args...); err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "delete service", err)
	}
	return nil
}

func serviceSelect() sq.SelectBuilder {
	return psql.Select("id", "app", "ptype", "ports", "canary").From("services")
}

type serviceRow struct {
	ID     string `db:"id"`
	App    string `db:"app"`
	Ptype  string `db:"ptype"`
	Ports  []byte `db:"ports"`
	Canary bool   `db:"canary"`
}

func (r serviceRow) toService() (*store.Service, error) {
	svc := &store.Service{ID: r.ID, App: r.App, Ptype: r.Ptype, Canary: r.Canary}
	if err := unmarshalJSON(r.Ports, &svc.Ports); err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "decode service ports", err)
	}
	return svc, nil
}
