package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/store"
)

// Volumes implements store.VolumeStore against the volumes table,
// unique on (app, name).
type Volumes struct{ db *DB }

func (v *Volumes) Create(ctx context.Context, vol *store.Volume) error {
	if vol.ID == "" {
		vol.ID = uuid.NewString()
	}
	query, args, err := psql.Insert("volumes").
		Columns("id", "app", "name", "type", "size", "path").
		Values(vol.ID, vol.App, vol.Name, vol.Type, vol.Size, marshalJSON(vol.Path)).
		ToSql()
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "build insert", err)
	}
	if _, err := v.db.conn.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ctlerr.Newf(ctlerr.AlreadyExists, "volume %q already exists", vol.Name)
		}
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "insert volume", err)
	}
	return nil
}

func (v *Volumes) Update(ctx context.Context, vol *store.Volume) error {
	query, args, err := psql.Update("volumes").
		Set("type", vol.Type).Set("size", vol.Size).Set("path", marshalJSON(vol.Path)).
		Where(sq.Eq{"app": vol.App, "name": vol.Name}).
		ToSql()
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "build update", err)
	}
	res, err := v.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "update volume", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ctlerr.Newf(ctlerr.NotFound, "volume %q not found", vol.Name)
	}
	return nil
}

func (v *Volumes) Get(ctx context.Context, app, name string) (*store.Volume, error) {
	query, args, err := volumeSelect().Where(sq.Eq{"app": app, "name": name}).ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	var row volumeRow
	if err := v.db.conn.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		return nil, wrapNotFound(err, "volume %q not found", name)
	}
	return row.toVolume()
}

func (v *Volumes) List(ctx context.Context, app string) ([]store.Volume, error) {
	query, args, err := volumeSelect().Where(sq.Eq{"app": app}).OrderBy("name").ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	rows, err := v.db.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "list volumes", err)
	}
	defer rows.Close()
	var out []store.Volume
	for rows.Next() {
		var row volumeRow
		if err := rows.StructScan(&row); err != nil {
			return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "scan volume", err)
		}
		vol, err := row.toVolume()
		if err != nil {
			return nil, err
		}
		out = append(out, *vol)
	}
	return out, nil
}

func (v *Volumes) Delete(ctx context.Context, app, name string) error {
	query, args, err := psql.Delete("volumes").Where(sq.Eq{"app": app, "name": name}).ToSql()
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "build delete", err)
	}
	if _, err := v.db.conn.ExecContext(ctx, query, args...); err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "delete volume", err)
	}
	return nil
}

func volumeSelect() sq.SelectBuilder {
	return psql.Select("id", "app", "name", "type", "size", "path").From("volumes")
}

type volumeRow struct {
	ID   string `db:"id"`
	App  string `db:"app"`
	Name string `db:"name"`
	Type string `db:"type"`
	Size string `db:"size"`
	Path []byte `db:"path"`
}

func (r volumeRow) toVolume() (*store.Volume, error) {
	vol := &store.Volume{ID: r.ID, App: r.App, Name: r.Name, Type: store.VolumeType(r.Type), Size: r.Size}
	if err := unmarshalJSON(r.Path, &vol.Path); err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "decode volume path", err)
	}
	return vol, nil
}
