package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/store"
)

// Builds implements store.BuildStore against the builds table.
type Builds struct{ db *DB }

func (b *Builds) Create(ctx context.Context, build *store.Build) error {
	if build.ID == "" {
		build.ID = uuid.NewString()
	}
	query, args, err := psql.Insert("builds").
		Columns("id", "app", "image", "stack", "sha", "procfile", "dryccfile").
		Values(build.ID, build.App, build.Image, build.Stack, build.Sha,
			marshalJSON(build.Procfile), marshalJSON(build.Dryccfile)).
		Suffix("RETURNING created").
		ToSql()
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "build insert", err)
	}
	if err := b.db.conn.QueryRowContext(ctx, query, args...).Scan(&build.Created); err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "insert build", err)
	}
	return nil
}

func (b *Builds) Latest(ctx context.Context, app string) (*store.Build, error) {
	query, args, err := buildSelect().Where(sq.Eq{"app": app}).
		OrderBy("created DESC").Limit(1).ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	var row buildRow
	if err := b.db.conn.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		return nil, wrapNotFound(err, "no build for app %q", app)
	}
	return row.toBuild()
}

func (b *Builds) Get(ctx context.Context, id string) (*store.Build, error) {
	query, args, err := buildSelect().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	var row buildRow
	if err := b.db.conn.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		return nil, wrapNotFound(err, "build %q not found", id)
	}
	return row.toBuild()
}

func buildSelect() sq.SelectBuilder {
	return psql.Select("id", "app", "image", "stack", "sha", "procfile", "dryccfile", "created").
		From("builds")
}

type buildRow struct {
	ID        string    `db:"id"`
	App       string    `db:"app"`
	Image     string    `db:"image"`
	Stack     string    `db:"stack"`
	Sha       string    `db:"sha"`
	Procfile  []byte    `db:"procfile"`
	Dryccfile []byte    `db:"dryccfile"`
	Created   time.Time `db:"created"`
}

func (r buildRow) toBuild() (*store.Build, error) {
	build := &store.Build{ID: r.ID, App: r.App, Image: r.Image, Stack: r.Stack, Sha: r.Sha, Created: r.Created}
	if err := unmarshalJSON(r.Procfile, &build.Procfile); err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "decode procfile", err)
	}
	if err := unmarshalJSON(r.Dryccfile, &build.Dryccfile); err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "decode dryccfile", err)
	}
	return build, nil
}
