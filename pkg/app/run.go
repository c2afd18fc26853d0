package app

import (
	"context"
	"fmt"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/k8s"
	"github.com/drycc/controller/pkg/release"
	"github.com/drycc/controller/pkg/store"
)

const (
	// defaultRunTimeoutSeconds is run()'s active_deadline_seconds when
	// the caller does not supply one (spec.md §4.6 run).
	defaultRunTimeoutSeconds = int64(3600)
	// defaultRunExpiresSeconds is run()'s ttl_seconds_after_finished
	// default.
	defaultRunExpiresSeconds = int64(3600)
)

// Run submits a one-off Job for appID using the current release's
// build, requiring that release to have a build (spec.md §4.6 run).
// The pod name carries a random suffix so concurrent runs never
// collide. env is projected through the same per-(release,ptype)
// Secret deploy uses, rather than inlined on the pod spec. timeout
// bounds the Job's active_deadline_seconds; expires is its
// ttl_seconds_after_finished. Either left at zero takes run()'s
// 3600s default.
func (c *Controller) Run(ctx context.Context, app *store.App, rel *store.Release, build *store.Build, cfg *store.Config, command []string, timeout, expires int64) (string, error) {
	if !rel.HasBuild() {
		return "", ctlerr.New(ctlerr.Drycc, "no build available")
	}
	if timeout <= 0 {
		timeout = defaultRunTimeoutSeconds
	}
	if expires <= 0 {
		expires = defaultRunExpiresSeconds
	}

	name := fmt.Sprintf("%s-run-%s", app.ID, randomGroup(5))

	secretName, err := c.SetApplicationConfig(ctx, app, build, cfg, rel, "run")
	if err != nil {
		return "", err
	}

	ttl := int32(expires)
	_, err = c.k8s.CreateJob(ctx, k8s.JobSpec{
		Name:                    name,
		Namespace:               app.ID,
		AppID:                   app.ID,
		Ptype:                   "run",
		Image:                   release.GetDeployImage(build, "run"),
		Command:                 command,
		EnvFromSecret:           secretName,
		ActiveDeadlineSeconds:   &timeout,
		TTLSecondsAfterFinished: &ttl,
	})
	if err != nil {
		return "", ctlerr.Wrap(ctlerr.ServiceUnavailable, "create run job", err)
	}

	return name, nil
}
