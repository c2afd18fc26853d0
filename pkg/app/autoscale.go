package app

import (
	"context"

	autoscalingv2 "k8s.io/api/autoscaling/v2"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/store"
)

// Autoscale creates/updates or deletes ptype's HPA. spec==nil deletes
// it; the reserved `run` ptype always rejects autoscaling (spec.md
// §4.6 autoscale).
func (c *Controller) Autoscale(ctx context.Context, appID, ptype string, spec *store.AutoscaleSpec) error {
	if store.ReservedPtypes[ptype] {
		return ctlerr.Newf(ctlerr.Drycc, "ptype %q cannot be autoscaled", ptype)
	}

	name := appDeploymentName(appID, ptype)
	if spec == nil {
		if err := c.k8s.DeleteHPA(ctx, appID, name); err != nil {
			return ctlerr.Wrap(ctlerr.ServiceUnavailable, "delete hpa", err)
		}
		return nil
	}

	if err := c.k8s.CheckMetricsAvailable(ctx); err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "metrics server unavailable", err)
	}

	cpu := spec.CPUPercent
	hpaSpec := autoscalingv2.HorizontalPodAutoscalerSpec{
		MinReplicas: &spec.MinReplicas,
		MaxReplicas: spec.MaxReplicas,
		Metrics: []autoscalingv2.MetricSpec{{
			Type: autoscalingv2.ResourceMetricSourceType,
			Resource: &autoscalingv2.ResourceMetricSource{
				Name: "cpu",
				Target: autoscalingv2.MetricTarget{
					Type:               autoscalingv2.UtilizationMetricType,
					AverageUtilization: &cpu,
				},
			},
		}},
	}

	if _, err := c.k8s.EnsureHPA(ctx, appID, name, name, hpaSpec); err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "ensure hpa", err)
	}
	return nil
}

func appDeploymentName(appID, ptype string) string {
	return appID + "-" + ptype
}
