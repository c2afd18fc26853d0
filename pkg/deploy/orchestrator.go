package deploy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"

	appctl "github.com/drycc/controller/pkg/app"
	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/k8s"
	"github.com/drycc/controller/pkg/lock"
	"github.com/drycc/controller/pkg/release"
	"github.com/drycc/controller/pkg/store"
	"github.com/drycc/controller/pkg/taskrunner"
)

const pipelineRunTimeout = 10 * time.Minute

// Orchestrator is the Deploy Orchestrator, bound to one cluster client,
// one Entity Store, one Release Engine and one Lock Service KV.
type Orchestrator struct {
	k8s      *k8s.Client
	store    *store.Store
	releases *release.Engine
	kv       lock.KV
	tasks    *taskrunner.Runner
	log      *logrus.Entry

	// app is the App Lifecycle Controller used to materialize the
	// env/registry Secrets a deploy plan references and to bootstrap
	// the default ingress on a ptype's first web deploy. Set via
	// SetAppController; nil disables that wiring (env/image-pull are
	// inlined, ingress bootstrap is skipped).
	app *appctl.Controller

	// HTTP and Dial override the health-verification capabilities for
	// tests; nil uses http.DefaultClient and net.DialTimeout.
	HTTP HTTPClient
	Dial Dialer
}

// New constructs an Orchestrator.
func New(client *k8s.Client, s *store.Store, releases *release.Engine, kv lock.KV, parallelism int) *Orchestrator {
	return &Orchestrator{
		k8s:      client,
		store:    s,
		releases: releases,
		kv:       kv,
		tasks:    taskrunner.New(parallelism),
		log:      logrus.WithField("component", "deploy"),
	}
}

// SetAppController wires the App Lifecycle Controller the Orchestrator
// calls into while applying a deploy plan: env secret materialization
// (spec.md §4.5 secret_applied), registry secret materialization, and
// default ingress bootstrap (spec.md §4.6 default ingress).
func (o *Orchestrator) SetAppController(c *appctl.Controller) {
	o.app = c
}

// Pipeline runs any declared pre-deploy Job runners for ptypes, then
// calls Deploy. On any error it marks the release crashed with a
// condition, and always releases the ptypes' deploy locks afterward
// (spec.md §4.5 pipeline).
func (o *Orchestrator) Pipeline(ctx context.Context, app *store.App, rel *store.Release, ptypes []string, force bool) error {
	log := o.log.WithField("release", fmt.Sprintf("%s/v%d", app.ID, rel.Version))
	log.Info("starting deploy pipeline")

	deployLock := lock.NewDeployLock(o.kv, app.ID)
	defer deployLock.Release(ptypes)

	build, err := o.buildFor(ctx, rel)
	if err != nil {
		return o.fail(ctx, rel, ptypes, err)
	}

	runners := release.GetRunners(build, ptypes)
	for _, r := range runners {
		if err := o.runPipelineJob(ctx, app, rel, r); err != nil {
			return o.fail(ctx, rel, ptypes, err)
		}
	}

	if err := o.Deploy(ctx, app, rel, ptypes, force, true); err != nil {
		return o.fail(ctx, rel, ptypes, err)
	}

	return nil
}

func (o *Orchestrator) fail(ctx context.Context, rel *store.Release, ptypes []string, cause error) error {
	_ = o.releases.AddCondition(ctx, rel, store.ReleaseCrashed, "deploy", ptypes, cause)
	return cause
}

func (o *Orchestrator) buildFor(ctx context.Context, rel *store.Release) (*store.Build, error) {
	if rel.Build == "" {
		return nil, nil
	}
	return o.store.Builds.Get(ctx, rel.Build)
}

func (o *Orchestrator) runPipelineJob(ctx context.Context, app *store.App, rel *store.Release, r release.Runner) error {
	jobName := fmt.Sprintf("%s-run-%d-%s", app.ID, rel.Version, r.Ptype)
	_, err := o.k8s.CreateJob(ctx, k8s.JobSpec{
		Name:      jobName,
		Namespace: app.ID,
		AppID:     app.ID,
		Ptype:     "run",
		Image:     r.Image,
		Command:   r.Command,
		Args:      r.Args,
	})
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "create pipeline job", err)
	}

	watchCtx, cancel := context.WithTimeout(ctx, pipelineRunTimeout)
	defer cancel()
	states, stop, err := o.k8s.WatchPods(watchCtx, app.ID, map[string]string{"job-name": jobName})
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "watch pipeline job", err)
	}
	defer stop()

	var last k8s.PodState
	for state := range states {
		last = state
	}
	if last != k8s.StateDown {
		return ctlerr.Newf(ctlerr.ServiceUnavailable, "pipeline job %q did not complete: last state %q", jobName, last)
	}
	return nil
}

// Deploy builds a per-ptype plan and applies it, routable ptypes
// first. On a cluster error it optionally rolls back to the previous
// release (spec.md §4.5 deploy).
func (o *Orchestrator) Deploy(ctx context.Context, app *store.App, rel *store.Release, ptypes []string, force, rollbackOnFailure bool) error {
	if !rel.HasBuild() {
		return ctlerr.New(ctlerr.Drycc, "no build")
	}

	build, err := o.store.Builds.Get(ctx, rel.Build)
	if err != nil {
		return err
	}
	cfg, err := o.store.Configs.Get(ctx, rel.Config)
	if err != nil {
		return err
	}
	settings, err := o.store.AppSettings.Latest(ctx, app.ID)
	if err != nil {
		return err
	}

	if len(ptypes) == 0 {
		for p := range release.Ptypes(build) {
			ptypes = append(ptypes, p)
		}
	}
	sortRoutableFirst(ptypes, settings)

	deployLock := lock.NewDeployLock(o.kv, app.ID)
	if err := deployLock.Acquire(ctx, ptypes, force); err != nil {
		return err
	}

	firstTime := !o.prevHasBuild(ctx, app.ID, rel.Version)

	var tasks []taskrunner.Task
	for _, ptype := range ptypes {
		ptype := ptype
		tasks = append(tasks, taskrunner.Task{
			Action: func() error {
				return o.deployPtype(ctx, app, build, cfg, rel, settings, ptype, firstTime)
			},
		})
	}

	err = o.tasks.Run(tasks)
	deployLock.Release(ptypes)

	if err != nil {
		wrapped := ctlerr.Wrap(ctlerr.ServiceUnavailable, "apply deploy", err)
		if rollbackOnFailure {
			if prev, perr := o.releases.Previous(ctx, app.ID, rel.Version); perr == nil && prev.HasBuild() {
				o.log.WithError(err).Warn("deploy failed, rolling back")
				if rerr := o.Deploy(ctx, app, prev, ptypes, true, false); rerr != nil {
					o.log.WithError(rerr).Error("rollback deploy also failed")
				}
			}
		}
		return wrapped
	}

	return nil
}

func (o *Orchestrator) prevHasBuild(ctx context.Context, appID string, version int) bool {
	prev, err := o.releases.Previous(ctx, appID, version)
	if err != nil {
		return false
	}
	return prev.HasBuild()
}

func sortRoutableFirst(ptypes []string, settings *store.AppSettings) {
	sort.SliceStable(ptypes, func(i, j int) bool {
		iRoutable := ptypes[i] == "web" && settings != nil && settings.Routable
		jRoutable := ptypes[j] == "web" && settings != nil && settings.Routable
		return iRoutable && !jRoutable
	})
}

func (o *Orchestrator) deployPtype(ctx context.Context, app *store.App, build *store.Build, cfg *store.Config, rel *store.Release, settings *store.AppSettings, ptype string, firstTime bool) error {
	replicas := app.Structure[ptype]

	inProgress, okToProceed, err := o.k8s.InProgress(ctx, app.ID, fmt.Sprintf("%s-%s", app.ID, ptype), 0)
	if err != nil {
		return err
	}
	if inProgress && !okToProceed {
		return ctlerr.Newf(ctlerr.AlreadyExists, "deployment %s-%s is already in progress", app.ID, ptype)
	}

	var volumes []store.Volume
	if o.store.Volumes != nil {
		volumes, _ = o.store.Volumes.List(ctx, app.ID)
	}

	var limitPlan *store.LimitPlan
	if cfg.Limits != nil {
		if planID, ok := cfg.Limits[ptype]; ok && o.store.LimitPlans != nil {
			limitPlan, _ = o.store.LimitPlans.Get(ctx, planID)
		}
	}

	image := release.GetDeployImage(build, ptype)
	pullSecretName, err := o.imagePullSecretName(ctx, app.ID, ptype, image, cfg)
	if err != nil {
		return err
	}

	envSecretName, err := o.envSecretName(ctx, app, build, cfg, rel, ptype)
	if err != nil {
		return err
	}

	plan := GatherAppSettings(PlanInputs{
		App: app, Build: build, Config: cfg, Release: rel, Settings: settings,
		Ptype: ptype, Replicas: replicas, LimitPlan: limitPlan, Volumes: volumes,
		PullSecretName: pullSecretName,
	})

	if err := o.applyPlan(ctx, app.ID, plan, envSecretName); err != nil {
		return err
	}

	if firstTime && ptype == "web" {
		if err := o.bootstrapIngress(ctx, app, cfg, ptype); err != nil {
			return err
		}
	}

	if firstTime {
		o.verifyHealth(ctx, app, plan)
	}

	return nil
}

// imagePullSecretName materializes ptype's `.dockerconfigjson` Secret
// (explicit registry entry, falling back to the off-cluster registry)
// through the App Lifecycle Controller before the Deployment can
// reference it (spec.md §4.6 image_pull_secret). With no App
// Controller wired it falls back to the bare naming convention with
// no materialization, for tests that exercise the plan in isolation.
func (o *Orchestrator) imagePullSecretName(ctx context.Context, appID, ptype, image string, cfg *store.Config) (string, error) {
	if o.app != nil {
		return o.app.ImagePullSecretName(ctx, appID, ptype, image, cfg)
	}
	if cfg.Registry == nil {
		return "", nil
	}
	if _, ok := cfg.Registry[ptype]; !ok {
		return "", nil
	}
	return fmt.Sprintf("private-registry-%s", ptype), nil
}

// envSecretName materializes the `{app}-{ptype}-{version}-env` Secret
// through the App Lifecycle Controller (spec.md §4.5 secret_applied).
// With no App Controller wired it returns "", and applyPlan falls back
// to inlining the env map directly on the Deployment.
func (o *Orchestrator) envSecretName(ctx context.Context, app *store.App, build *store.Build, cfg *store.Config, rel *store.Release, ptype string) (string, error) {
	if o.app == nil {
		return "", nil
	}
	return o.app.SetApplicationConfig(ctx, app, build, cfg, rel, ptype)
}

// bootstrapIngress ensures the default web Service/Gateway/HTTPRoute
// exist after a ptype's first deploy (spec.md §4.6 default ingress).
// A missing App Controller or PORT config skips the bootstrap rather
// than failing the deploy.
func (o *Orchestrator) bootstrapIngress(ctx context.Context, app *store.App, cfg *store.Config, ptype string) error {
	if o.app == nil {
		return nil
	}
	port, ok := release.GetPort(cfg, ptype)
	if !ok {
		return nil
	}
	return o.app.EnsureDefaultIngress(ctx, app.ID, port)
}

func (o *Orchestrator) applyPlan(ctx context.Context, namespace string, plan Plan, envSecretName string) error {
	spec := k8s.DeploySpec{
		Name:                   fmt.Sprintf("%s-%s", namespace, plan.Ptype),
		Namespace:              namespace,
		AppID:                  namespace,
		Ptype:                  plan.Ptype,
		Image:                  plan.Image,
		Command:                plan.Command,
		Args:                   plan.Args,
		Replicas:               plan.Replicas,
		ReleaseVersion:         plan.Version,
		ReleaseSummary:         plan.ReleaseSummary,
		NodeSelector:           plan.NodeSelector,
		Resources:              plan.Resources,
		Annotations:            plan.Annotations,
		LivenessProbe:          plan.LivenessProbe,
		ReadinessProbe:         plan.ReadinessProbe,
		RuntimeClassName:       strPtr(plan.RuntimeClassName),
		DNSPolicy:              plan.DNSPolicy,
		PostStart:              plan.PostStart,
		PreStop:                plan.PreStop,
		RestartPolicy:          plan.RestartPolicy,
		DeployBatches:          plan.DeployBatches,
		DeployTimeoutSeconds:   plan.DeployTimeoutSeconds,
		RevisionHistoryLimit:   int32Ptr(plan.RevisionHistoryLimit),
		TerminationGracePeriod: int64Ptr(plan.TerminationGracePeriod),
		ImagePullSecretName:    plan.ImagePullSecretName,
		ImagePullPolicy:        plan.ImagePullPolicy,
		Volumes:                plan.Volumes,
		VolumeMounts:           plan.VolumeMounts,
		PodSecurityContext:     plan.PodSecurityContext,
		ContainerSecurityContext: plan.ContainerSecurityContext,
	}
	if envSecretName != "" {
		spec.EnvFromSecret = envSecretName
	} else {
		spec.Env = toEnvVars(plan.Env)
	}
	_, err := o.k8s.DeployDeployment(ctx, spec)
	return err
}

func toEnvVars(m map[string]string) []corev1.EnvVar {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]corev1.EnvVar, 0, len(keys))
	for _, k := range keys {
		out = append(out, corev1.EnvVar{Name: k, Value: m[k]})
	}
	return out
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func int32Ptr(n int32) *int32 { return &n }
func int64Ptr(n int64) *int64 { return &n }
