package app

import (
	"context"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/store"
)

// ServiceCatalog is the minimal service-catalog capability surface the
// Resource state machine drives — a thin seam so pkg/app doesn't
// depend directly on a service-catalog client type (spec.md §4.10,
// "C4 contract used by C8").
type ServiceCatalog interface {
	GetInstance(ctx context.Context, app, name string) (ServiceInstance, error)
	GetBinding(ctx context.Context, app, name string) (ServiceBinding, error)
	CreateBinding(ctx context.Context, app, name string) error
	DeleteBinding(ctx context.Context, app, name string) error
	ReadSecret(ctx context.Context, app, secretName string) (map[string]string, error)
	DeleteSecret(ctx context.Context, app, secretName string) error
}

// ServiceInstance is the subset of svcat.get_instance's response this
// controller reads.
type ServiceInstance struct {
	LastConditionState string
	Parameters         map[string]string
}

// ServiceBinding is the subset of svcat.get_binding's response.
type ServiceBinding struct {
	Status     store.ResourceBindingStatus
	SecretName string
}

// Retrieve refreshes status/binding/options/data for a Resource from
// the service catalog, per the transitions in spec.md §4.10.
func (c *Controller) Retrieve(ctx context.Context, catalog ServiceCatalog, res *store.Resource) error {
	instance, err := catalog.GetInstance(ctx, res.App, res.Name)
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "get service instance", err)
	}
	res.Status = store.ResourceStatus(instance.LastConditionState)
	res.Options = instance.Parameters

	binding, err := catalog.GetBinding(ctx, res.App, res.Name)
	if err != nil {
		if ctlerr.Is(err, ctlerr.NotFound) {
			return c.store.Resources.Update(ctx, res)
		}
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "get service binding", err)
	}
	res.Binding = binding.Status
	if binding.SecretName != "" {
		data, err := catalog.ReadSecret(ctx, res.App, binding.SecretName)
		if err != nil {
			return ctlerr.Wrap(ctlerr.ServiceUnavailable, "read binding secret", err)
		}
		res.Data = data
	}

	return c.store.Resources.Update(ctx, res)
}

// Bind requires status==Ready and binding!=Ready; it sets
// binding=Binding then asks the catalog to create the binding.
func (c *Controller) Bind(ctx context.Context, catalog ServiceCatalog, res *store.Resource) error {
	if res.Status != store.ResourceStatusReady {
		return ctlerr.New(ctlerr.Drycc, "resource is not ready")
	}
	if res.Binding == store.BindingStatusReady {
		return ctlerr.New(ctlerr.AlreadyExists, "resource is already bound")
	}

	res.Binding = store.BindingStatusBinding
	if err := c.store.Resources.Update(ctx, res); err != nil {
		return err
	}
	if err := catalog.CreateBinding(ctx, res.App, res.Name); err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "create binding", err)
	}
	return nil
}

// Unbind requires binding!=null; deletes the binding and clears
// binding/data.
func (c *Controller) Unbind(ctx context.Context, catalog ServiceCatalog, res *store.Resource) error {
	if res.Binding == store.BindingStatusNone {
		return ctlerr.New(ctlerr.Drycc, "resource is not bound")
	}
	if err := catalog.DeleteBinding(ctx, res.App, res.Name); err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "delete binding", err)
	}
	res.Binding = store.BindingStatusNone
	res.Data = nil
	return c.store.Resources.Update(ctx, res)
}

// DetachResource deletes the binding secret if present, deletes the
// binding, then deletes the Resource row if the instance is not Ready
// or has no binding.
func (c *Controller) DetachResource(ctx context.Context, catalog ServiceCatalog, res *store.Resource, bindingSecretName string) error {
	if bindingSecretName != "" {
		if err := catalog.DeleteSecret(ctx, res.App, bindingSecretName); err != nil {
			return ctlerr.Wrap(ctlerr.ServiceUnavailable, "delete binding secret", err)
		}
	}
	if res.Binding != store.BindingStatusNone {
		if err := catalog.DeleteBinding(ctx, res.App, res.Name); err != nil {
			return ctlerr.Wrap(ctlerr.ServiceUnavailable, "delete binding", err)
		}
	}

	if res.Status != store.ResourceStatusReady || res.Binding == store.BindingStatusNone {
		return c.store.Resources.Delete(ctx, res.App, res.Name)
	}
	return nil
}
