package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/store"
)

// Resources implements store.ResourceStore against the resources
// table, unique on (app, name).
type Resources struct{ db *DB }

func (r *Resources) Create(ctx context.Context, res *store.Resource) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	query, args, err := psql.Insert("resources").
		Columns("id", "app", "name", "plan", "options", "status", "binding", "data").
		Values(res.ID, res.App, res.Name, res.Plan, marshalJSON(res.Options),
			string(res.Status), string(res.Binding), marshalJSON(res.Data)).
		Suffix("RETURNING created").
		ToSql()
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "build insert", err)
	}
	if err := r.db.conn.QueryRowContext(ctx, query, args...).Scan(&res.Created); err != nil {
		if isUniqueViolation(err) {
			return ctlerr.Newf(ctlerr.AlreadyExists, "resource %q already exists", res.Name)
		}
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "insert resource", err)
	}
	return nil
}

func (r *Resources) Update(ctx context.Context, res *store.Resource) error {
	query, args, err := psql.Update("resources").
		Set("plan", res.Plan).
		Set("options", marshalJSON(res.Options)).
		Set("status", string(res.Status)).
		Set("binding", string(res.Binding)).
		Set("data", marshalJSON(res.Data)).
		Where(sq.Eq{"app": res.App, "name": res.Name}).
		ToSql()
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "build update", err)
	}
	result, err := r.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "update resource", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ctlerr.Newf(ctlerr.NotFound, "resource %q not found", res.Name)
	}
	return nil
}

func (r *Resources) Get(ctx context.Context, app, name string) (*store.Resource, error) {
	query, args, err := resourceSelect().Where(sq.Eq{"app": app, "name": name}).ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	var row resourceRow
	if err := r.db.conn.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		return nil, wrapNotFound(err, "resource %q not found", name)
	}
	return row.toResource()
}

func (r *Resources) List(ctx context.Context, app string) ([]store.Resource, error) {
	query, args, err := resourceSelect().Where(sq.Eq{"app": app}).OrderBy("name").ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	rows, err := r.db.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "list resources", err)
	}
	defer rows.Close()
	var out []store.Resource
	for rows.Next() {
		var row resourceRow
		if err := rows.StructScan(&row); err != nil {
			return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "scan resource", err)
		}
		res, err := row.toResource()
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, nil
}

func (r *Resources) Delete(ctx context.Context, app, name string) error {
	query, args, err := psql.Delete("resources").Where(sq.Eq{"app": app, "name": name}).ToSql()
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "build delete", err)
	}
	if _, err := r.db.conn.ExecContext(ctx, query, args...); err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "delete resource", err)
	}
	return nil
}

func resourceSelect() sq.SelectBuilder {
	return psql.Select("id", "app", "name", "plan", "options", "status", "binding", "data", "created").
		From("resources")
}

type resourceRow struct {
	ID      string    `db:"id"`
	App     string    `db:"app"`
	Name    string    `db:"name"`
	Plan    string    `db:"plan"`
	Options []byte    `db:"options"`
	Status  string    `db:"status"`
	Binding string    `db:"binding"`
	Data    []byte    `db:"data"`
	Created time.Time `db:"created"`
}

func (r resourceRow) toResource() (*store.Resource, error) {
	res := &store.Resource{
		ID: r.ID, App: r.App, Name: r.Name, Plan: r.Plan,
		Status: store.ResourceStatus(r.Status), Binding: store.ResourceBindingStatus(r.Binding),
		Created: r.Created,
	}
	if err := unmarshalJSON(r.Options, &res.Options); err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "decode resource options", err)
	}
	if err := unmarshalJSON(r.Data, &res.Data); err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "decode resource data", err)
	}
	return res, nil
}
