package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/store"
)

// LimitPlans implements store.LimitPlanStore against the immutable
// limit_plans table.
type LimitPlans struct{ db *DB }

func (l *LimitPlans) Get(ctx context.Context, id string) (*store.LimitPlan, error) {
	query, args, err := limitPlanSelect().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	var row limitPlanRow
	if err := l.db.conn.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		return nil, wrapNotFound(err, "limit plan %q not found", id)
	}
	return row.toLimitPlan()
}

func (l *LimitPlans) List(ctx context.Context) ([]store.LimitPlan, error) {
	query, args, err := limitPlanSelect().OrderBy("id").ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	rows, err := l.db.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "list limit plans", err)
	}
	defer rows.Close()
	var out []store.LimitPlan
	for rows.Next() {
		var row limitPlanRow
		if err := rows.StructScan(&row); err != nil {
			return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "scan limit plan", err)
		}
		plan, err := row.toLimitPlan()
		if err != nil {
			return nil, err
		}
		out = append(out, *plan)
	}
	return out, nil
}

func limitPlanSelect() sq.SelectBuilder {
	return psql.Select("id", "limits", "requests", "annotations", "node_selector",
		"runtime_class_name", "pod_volumes", "container_volume_mounts",
		"pod_security_context", "container_security_context").
		From("limit_plans")
}

type limitPlanRow struct {
	ID                       string `db:"id"`
	Limits                   []byte `db:"limits"`
	Requests                 []byte `db:"requests"`
	Annotations              []byte `db:"annotations"`
	NodeSelector             []byte `db:"node_selector"`
	RuntimeClassName         string `db:"runtime_class_name"`
	PodVolumes               []byte `db:"pod_volumes"`
	ContainerVolumeMounts    []byte `db:"container_volume_mounts"`
	PodSecurityContext       []byte `db:"pod_security_context"`
	ContainerSecurityContext []byte `db:"container_security_context"`
}

func (r limitPlanRow) toLimitPlan() (*store.LimitPlan, error) {
	plan := &store.LimitPlan{ID: r.ID, RuntimeClassName: r.RuntimeClassName}
	for _, dec := range []struct {
		data []byte
		dst  interface{}
	}{
		{r.Limits, &plan.Limits},
		{r.Requests, &plan.Requests},
		{r.Annotations, &plan.Annotations},
		{r.NodeSelector, &plan.NodeSelector},
		{r.PodVolumes, &plan.PodVolumes},
		{r.ContainerVolumeMounts, &plan.ContainerVolumeMounts},
		{r.PodSecurityContext, &plan.PodSecurityContext},
		{r.ContainerSecurityContext, &plan.ContainerSecurityContext},
	} {
		if err := unmarshalJSON(dec.data, dec.dst); err != nil {
			return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "decode limit plan", err)
		}
	}
	return plan, nil
}
