package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/store"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Apps implements store.AppStore against the apps table.
type Apps struct{ db *DB }

func (a *Apps) Create(ctx context.Context, app *store.App) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	query, args, err := psql.Insert("apps").
		Columns("id", "owner", "structure").
		Values(app.ID, app.Owner, marshalJSON(app.Structure)).
		Suffix("RETURNING created, updated").
		ToSql()
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "build insert", err)
	}
	if err := a.db.conn.QueryRowContext(ctx, query, args...).Scan(&app.Created, &app.Updated); err != nil {
		if isUniqueViolation(err) {
			return ctlerr.Newf(ctlerr.AlreadyExists, "app %q already exists", app.ID)
		}
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "insert app", err)
	}
	return nil
}

func (a *Apps) Get(ctx context.Context, id string) (*store.App, error) {
	var row appRow
	query, args, err := psql.Select("id", "owner", "structure", "created", "updated").
		From("apps").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	if err := a.db.conn.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		return nil, wrapNotFound(err, "app %q not found", id)
	}
	return row.toApp()
}

func (a *Apps) List(ctx context.Context, owner string) ([]store.App, error) {
	b := psql.Select("id", "owner", "structure", "created", "updated").From("apps").OrderBy("id")
	if owner != "" {
		b = b.Where(sq.Eq{"owner": owner})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	rows, err := a.db.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "list apps", err)
	}
	defer rows.Close()

	var out []store.App
	for rows.Next() {
		var row appRow
		if err := rows.StructScan(&row); err != nil {
			return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "scan app", err)
		}
		app, err := row.toApp()
		if err != nil {
			return nil, err
		}
		out = append(out, *app)
	}
	return out, nil
}

func (a *Apps) UpdateStructure(ctx context.Context, id string, expectUpdated int64, structure map[string]int32) (*store.App, error) {
	b := psql.Update("apps").
		Set("structure", marshalJSON(structure)).
		Set("updated", sq.Expr("now()")).
		Where(sq.Eq{"id": id})
	if expectUpdated != 0 {
		b = b.Where(sq.Eq{"updated": time.Unix(0, expectUpdated)})
	}
	query, args, err := b.Suffix("RETURNING id, owner, structure, created, updated").ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build update", err)
	}
	var row appRow
	if err := a.db.conn.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if isNoRows(err) {
			if expectUpdated != 0 {
				return nil, ctlerr.New(ctlerr.AlreadyExists, "app was concurrently modified")
			}
			return nil, ctlerr.Newf(ctlerr.NotFound, "app %q not found", id)
		}
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "update app structure", err)
	}
	return row.toApp()
}

func (a *Apps) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete("apps").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "build delete", err)
	}
	if _, err := a.db.conn.ExecContext(ctx, query, args...); err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "delete app", err)
	}
	return nil
}

func (a *Apps) TransferOwner(ctx context.Context, id, newOwner string) error {
	query, args, err := psql.Update("apps").
		Set("owner", newOwner).
		Set("updated", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "build update", err)
	}
	res, err := a.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "transfer owner", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ctlerr.Newf(ctlerr.NotFound, "app %q not found", id)
	}
	return nil
}

// appRow is the wire shape apps rows scan into; structure arrives as
// raw JSON and is decoded in toApp.
type appRow struct {
	ID        string    `db:"id"`
	Owner     string    `db:"owner"`
	Structure []byte    `db:"structure"`
	Created   time.Time `db:"created"`
	Updated   time.Time `db:"updated"`
}

func (r appRow) toApp() (*store.App, error) {
	app := &store.App{ID: r.ID, Owner: r.Owner, Created: r.Created, Updated: r.Updated}
	if err := unmarshalJSON(r.Structure, &app.Structure); err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "decode app structure", err)
	}
	return app, nil
}
