package deploy

import (
	"context"
	"encoding/json"
	"fmt"

	corev1 "k8s.io/api/core/v1"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/store"
)

// Mount patches the Deployment for each ptype in structure (or every
// ptype in app.Structure when structure is empty) with volumes and
// mounts recomputed from the app's full Volume set, preserving pod
// template annotations and resourceVersion (spec.md §4.5 mount).
func (o *Orchestrator) Mount(ctx context.Context, app *store.App, user string, volumes []store.Volume, ptypes []string) error {
	if len(ptypes) == 0 {
		for ptype := range app.Structure {
			ptypes = append(ptypes, ptype)
		}
	}

	for _, ptype := range ptypes {
		var k8sVolumes []corev1.Volume
		var mounts []corev1.VolumeMount
		for _, v := range volumes {
			path, ok := v.Path[ptype]
			if !ok {
				continue
			}
			k8sVolumes = append(k8sVolumes, corev1.Volume{
				Name: v.Name,
				VolumeSource: corev1.VolumeSource{
					PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{ClaimName: v.Name},
				},
			})
			mounts = append(mounts, corev1.VolumeMount{Name: v.Name, MountPath: path})
		}

		patch, err := volumePatch(ptype, k8sVolumes, mounts)
		if err != nil {
			return err
		}
		if _, err := o.k8s.PatchDeployment(ctx, app.ID, appDeploymentName(app.ID, ptype), patch); err != nil {
			return ctlerr.Wrap(ctlerr.ServiceUnavailable, fmt.Sprintf("mount volumes for %s", ptype), err)
		}
	}
	return nil
}

func volumePatch(container string, volumes []corev1.Volume, mounts []corev1.VolumeMount) ([]byte, error) {
	// A strategic merge patch targeting only the fields mount() owns;
	// spec.template.metadata.annotations and resourceVersion are left
	// untouched by omission, which the strategic-merge semantics
	// preserve.
	type patchSpec struct {
		Spec struct {
			Template struct {
				Spec struct {
					Volumes    []corev1.Volume       `json:"volumes"`
					Containers []corev1.Container    `json:"containers"`
				} `json:"spec"`
			} `json:"template"`
		} `json:"spec"`
	}
	var p patchSpec
	p.Spec.Template.Spec.Volumes = volumes
	p.Spec.Template.Spec.Containers = []corev1.Container{{Name: container, VolumeMounts: mounts}}
	return json.Marshal(p)
}
