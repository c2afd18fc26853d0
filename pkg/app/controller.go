// Package app implements the App Lifecycle Controller: app
// create/delete, default-ingress bootstrap, one-off run(), config
// materialization, registry secrets, autoscaling and the read-only
// projections the API surface exposes (spec.md §4.6).
package app

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/k8s"
	"github.com/drycc/controller/pkg/lock"
	"github.com/drycc/controller/pkg/store"
)

// Controller is the App Lifecycle Controller.
type Controller struct {
	k8s   *k8s.Client
	store *store.Store
	kv    lock.KV
	log   *logrus.Entry

	// DefaultLimitPlanID names the LimitPlan seeded for a new app's web
	// and run ptypes.
	DefaultLimitPlanID string
	// NamespaceDeleteTimeout bounds how long Delete polls for the
	// namespace to disappear.
	NamespaceDeleteTimeout time.Duration
}

// New constructs a Controller.
func New(client *k8s.Client, s *store.Store, kv lock.KV) *Controller {
	return &Controller{
		k8s:                    client,
		store:                  s,
		kv:                     kv,
		log:                    logrus.WithField("component", "app"),
		DefaultLimitPlanID:     "std1",
		NamespaceDeleteTimeout: 30 * time.Second,
	}
}

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomGroup(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(idAlphabet[rand.Intn(len(idAlphabet))])
	}
	return b.String()
}

func generateID() string {
	return fmt.Sprintf("%s-%s", randomGroup(6), randomGroup(8))
}

// Create auto-generates a unique App id, probes the cluster for a
// stale namespace collision, and seeds the App's default Config,
// initial Release and AppSettings records. No TLS record is created.
func (c *Controller) Create(ctx context.Context, owner string) (*store.App, error) {
	var id string
	for attempt := 0; attempt < 10; attempt++ {
		candidate := generateID()
		if _, err := c.store.Apps.Get(ctx, candidate); err != nil {
			id = candidate
			break
		}
	}
	if id == "" {
		return nil, ctlerr.New(ctlerr.ServiceUnavailable, "could not allocate a unique app id")
	}

	if _, err := c.k8s.GetNamespace(ctx, id); err == nil {
		if _, rerr := c.store.Releases.Latest(ctx, id); rerr != nil {
			return nil, ctlerr.Newf(ctlerr.AlreadyExists, "namespace %q already exists", id)
		}
	}

	if _, err := c.k8s.CreateNamespace(ctx, id, map[string]string{"heritage": "drycc"}); err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "create namespace", err)
	}

	app := &store.App{ID: id, Owner: owner, Structure: map[string]int32{}}
	if err := c.store.Apps.Create(ctx, app); err != nil {
		return nil, err
	}

	cfg := &store.Config{
		App: id,
		Limits: map[string]string{
			"web": c.DefaultLimitPlanID,
			"run": c.DefaultLimitPlanID,
		},
	}
	if err := c.store.Configs.Create(ctx, cfg); err != nil {
		return nil, err
	}

	rel := &store.Release{
		App:     id,
		Version: 1,
		Config:  cfg.ID,
		State:   store.ReleaseCreated,
		Summary: fmt.Sprintf("%s created initial release", owner),
	}
	if err := c.store.Releases.Create(ctx, rel); err != nil {
		return nil, err
	}

	settings := &store.AppSettings{
		App:          id,
		Routable:     true,
		Autodeploy:   true,
		Autorollback: true,
	}
	if err := c.store.AppSettings.Create(ctx, settings); err != nil {
		return nil, err
	}

	return app, nil
}

// Delete deletes the cluster namespace, polls up to
// NamespaceDeleteTimeout for it to disappear, then deletes the App
// row. A missing namespace is treated as success.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if err := c.k8s.DeleteNamespace(ctx, id); err != nil && !k8s.IsNotFound(err) {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "delete namespace", err)
	}

	deadline := time.Now().Add(c.NamespaceDeleteTimeout)
	for time.Now().Before(deadline) {
		if _, err := c.k8s.GetNamespace(ctx, id); k8s.IsNotFound(err) {
			break
		}
		time.Sleep(time.Second)
	}

	return c.store.Apps.Delete(ctx, id)
}

// TransferOwner changes the App's owner under the App's CacheLock.
// Only the App record carries an owner; no other per-App record is
// changed.
func (c *Controller) TransferOwner(ctx context.Context, id, newOwner string) error {
	l := lock.NewCacheLock(c.kv, fmt.Sprintf("app:lock:%s", id))
	ok, err := l.Acquire(ctx, true, 10*time.Second, 0)
	if err != nil {
		return err
	}
	if !ok {
		return ctlerr.New(ctlerr.ServiceUnavailable, "could not acquire app lock")
	}
	defer l.Release()

	return c.store.Apps.TransferOwner(ctx, id, newOwner)
}
