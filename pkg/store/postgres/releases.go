package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/store"
)

// Releases implements store.ReleaseStore against the releases table,
// relying on its UNIQUE (app, version) constraint for monotonicity
// (spec.md §5 "Ordering guarantees").
type Releases struct{ db *DB }

func (r *Releases) Create(ctx context.Context, rel *store.Release) error {
	if rel.ID == "" {
		rel.ID = uuid.NewString()
	}
	query, args, err := psql.Insert("releases").
		Columns("id", "app", "version", "config", "build", "state", "failed",
			"deployed_ptypes", "conditions", "summary").
		Values(rel.ID, rel.App, rel.Version, rel.Config, rel.Build, rel.State, rel.Failed,
			marshalJSON(rel.DeployedPtypes), marshalJSON(rel.Conditions), rel.Summary).
		Suffix("RETURNING created, updated").
		ToSql()
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "build insert", err)
	}
	if err := r.db.conn.QueryRowContext(ctx, query, args...).Scan(&rel.Created, &rel.Updated); err != nil {
		if isUniqueViolation(err) {
			return ctlerr.Newf(ctlerr.AlreadyExists, "release v%d of %q already exists", rel.Version, rel.App)
		}
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "insert release", err)
	}
	return nil
}

func (r *Releases) Get(ctx context.Context, app string, version int) (*store.Release, error) {
	query, args, err := releaseSelect().Where(sq.Eq{"app": app, "version": version}).ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	var row releaseRow
	if err := r.db.conn.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		return nil, wrapNotFound(err, "release v%d of %q not found", version, app)
	}
	return row.toRelease()
}

func (r *Releases) Latest(ctx context.Context, app string) (*store.Release, error) {
	query, args, err := releaseSelect().Where(sq.Eq{"app": app}).
		OrderBy("version DESC").Limit(1).ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	var row releaseRow
	if err := r.db.conn.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		return nil, wrapNotFound(err, "no release for app %q", app)
	}
	return row.toRelease()
}

func (r *Releases) Previous(ctx context.Context, app string, beforeVersion int) (*store.Release, error) {
	if beforeVersion == 0 {
		latest, err := r.Latest(ctx, app)
		if err != nil {
			return nil, err
		}
		beforeVersion = latest.Version
	}
	query, args, err := releaseSelect().
		Where(sq.Eq{"app": app, "failed": false}).
		Where(sq.Lt{"version": beforeVersion}).
		OrderBy("version DESC").Limit(1).ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	var row releaseRow
	if err := r.db.conn.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		return nil, wrapNotFound(err, "no previous successful release for app %q", app)
	}
	return row.toRelease()
}

func (r *Releases) MaxVersion(ctx context.Context, app string) (int, error) {
	query, args, err := psql.Select("COALESCE(MAX(version), 0)").From("releases").
		Where(sq.Eq{"app": app}).ToSql()
	if err != nil {
		return 0, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	var max int
	if err := r.db.conn.QueryRowContext(ctx, query, args...).Scan(&max); err != nil {
		return 0, ctlerr.Wrap(ctlerr.ServiceUnavailable, "max version", err)
	}
	return max, nil
}

func (r *Releases) List(ctx context.Context, app string) ([]store.Release, error) {
	query, args, err := releaseSelect().Where(sq.Eq{"app": app}).OrderBy("version").ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	rows, err := r.db.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "list releases", err)
	}
	defer rows.Close()

	var out []store.Release
	for rows.Next() {
		var row releaseRow
		if err := rows.StructScan(&row); err != nil {
			return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "scan release", err)
		}
		rel, err := row.toRelease()
		if err != nil {
			return nil, err
		}
		out = append(out, *rel)
	}
	return out, nil
}

func (r *Releases) UpdateState(ctx context.Context, id string, state store.ReleaseState, failed bool, conditions []store.Condition) error {
	query, args, err := psql.Update("releases").
		Set("state", state).
		Set("failed", failed).
		Set("conditions", marshalJSON(conditions)).
		Set("updated", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "build update", err)
	}
	res, err := r.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "update release state", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ctlerr.Newf(ctlerr.NotFound, "release %q not found", id)
	}
	return nil
}

func (r *Releases) UpdateDeployedPtypes(ctx context.Context, id string, ptypes []string) error {
	query, args, err := psql.Update("releases").
		Set("deployed_ptypes", marshalJSON(ptypes)).
		Set("updated", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "build update", err)
	}
	res, err := r.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "update deployed ptypes", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ctlerr.Newf(ctlerr.NotFound, "release %q not found", id)
	}
	return nil
}

func releaseSelect() sq.SelectBuilder {
	return psql.Select("id", "app", "version", "config", "build", "state", "failed",
		"deployed_ptypes", "conditions", "summary", "created", "updated").
		From("releases")
}

type releaseRow struct {
	ID             string              `db:"id"`
	App            string              `db:"app"`
	Version        int                 `db:"version"`
	Config         string              `db:"config"`
	Build          string              `db:"build"`
	State          store.ReleaseState  `db:"state"`
	Failed         bool                `db:"failed"`
	DeployedPtypes []byte              `db:"deployed_ptypes"`
	Conditions     []byte              `db:"conditions"`
	Summary        string              `db:"summary"`
	Created        time.Time           `db:"created"`
	Updated        time.Time           `db:"updated"`
}

func (r releaseRow) toRelease() (*store.Release, error) {
	rel := &store.Release{
		ID: r.ID, App: r.App, Version: r.Version, Config: r.Config, Build: r.Build,
		State: r.State, Failed: r.Failed, Summary: r.Summary, Created: r.Created, Updated: r.Updated,
	}
	if err := unmarshalJSON(r.DeployedPtypes, &rel.DeployedPtypes); err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "decode deployed ptypes", err)
	}
	if err := unmarshalJSON(r.Conditions, &rel.Conditions); err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "decode conditions", err)
	}
	return rel, nil
}
