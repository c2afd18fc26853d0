package k8s

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/types"
)

// VolumeSpec describes a store.Volume in cluster terms.
type VolumeSpec struct {
	Name         string
	StorageClass string // "" for nfs/oss, which are provisioned out of band
	Size         string // e.g. "10G", parsed as a resource.Quantity
	AccessMode   corev1.PersistentVolumeAccessMode
}

// EnsurePVC creates a PVC if absent and returns an existing one as is;
// it never resizes. Nothing checks for a shrink: the store's Volume
// Update saves whatever size it is given.
func (c *Client) EnsurePVC(ctx context.Context, namespace string, spec VolumeSpec) (*corev1.PersistentVolumeClaim, error) {
	existing, err := c.clientset.CoreV1().PersistentVolumeClaims(namespace).Get(ctx, spec.Name, metav1.GetOptions{})
	if err == nil {
		return existing, nil
	}
	if !IsNotFound(classify(err)) {
		return nil, classify(err)
	}

	qty, qerr := resource.ParseQuantity(spec.Size)
	if qerr != nil {
		return nil, qerr
	}

	pvc := &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{Name: spec.Name, Namespace: namespace},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{spec.AccessMode},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: qty},
			},
		},
	}
	if spec.StorageClass != "" {
		pvc.Spec.StorageClassName = &spec.StorageClass
	}

	created, cerr := c.clientset.CoreV1().PersistentVolumeClaims(namespace).Create(ctx, pvc, metav1.CreateOptions{})
	if cerr != nil {
		return nil, classify(cerr)
	}
	return created, nil
}

// ExpandPVC patches .spec.resources.requests.storage to a larger
// value. Only csi volumes call this (spec.md §3 Volume invariant:
// "only csi supports expand").
func (c *Client) ExpandPVC(ctx context.Context, namespace, name, newSize string) error {
	qty, err := resource.ParseQuantity(newSize)
	if err != nil {
		return err
	}
	patch := []byte(`{"spec":{"resources":{"requests":{"storage":"` + qty.String() + `"}}}}`)
	_, err = c.clientset.CoreV1().PersistentVolumeClaims(namespace).Patch(ctx, name, types.MergePatchType, patch, metav1.PatchOptions{})
	return classify(err)
}

// DeletePVC deletes a PVC by name.
func (c *Client) DeletePVC(ctx context.Context, namespace, name string) error {
	return classify(c.clientset.CoreV1().PersistentVolumeClaims(namespace).Delete(ctx, name, metav1.DeleteOptions{}))
}
