// Package release implements the Release Engine: versioning,
// rollback, and the build/config resolution helpers the Deploy
// Orchestrator calls into (spec.md §4.4).
package release

import (
	"context"
	"fmt"
	"time"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/lock"
	"github.com/drycc/controller/pkg/store"
)

// Engine is the Release Engine, scoped to one Entity Store.
type Engine struct {
	store *store.Store
	kv    lock.KV
}

// New constructs an Engine.
func New(s *store.Store, kv lock.KV) *Engine {
	return &Engine{store: s, kv: kv}
}

func (e *Engine) appLock(appID string) *lock.CacheLock {
	return lock.NewCacheLock(e.kv, fmt.Sprintf("app:lock:%s", appID))
}

// CreateFromBuild allocates the next version for appID using the
// given build, copying forward the app's latest config (the
// non-changed side), inside the app-level critical section.
func (e *Engine) CreateFromBuild(ctx context.Context, user, appID string, build *store.Build) (*store.Release, error) {
	return e.create(ctx, user, appID, build, "", BuildSummary(user, build.Sha))
}

// CreateFromConfig allocates the next version for appID using the
// given config, copying forward the app's latest build.
func (e *Engine) CreateFromConfig(ctx context.Context, user, appID string, cfg *store.Config) (*store.Release, error) {
	return e.create(ctx, user, appID, nil, cfg.ID, ConfigSummary(user))
}

func (e *Engine) create(ctx context.Context, user, appID string, build *store.Build, configID string, summary string) (*store.Release, error) {
	l := e.appLock(appID)
	ok, err := l.Acquire(ctx, true, 10*time.Second, 0)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ctlerr.New(ctlerr.ServiceUnavailable, "could not acquire app lock")
	}
	defer l.Release()

	maxVersion, err := e.store.Releases.MaxVersion(ctx, appID)
	if err != nil {
		return nil, err
	}

	if build == nil {
		if latest, lerr := e.store.Releases.Latest(ctx, appID); lerr == nil {
			if latest.Build != "" {
				b, berr := e.store.Builds.Get(ctx, latest.Build)
				if berr != nil {
					return nil, berr
				}
				build = b
			}
		}
	}
	if configID == "" {
		cfg, cerr := e.store.Configs.Latest(ctx, appID)
		if cerr != nil {
			return nil, cerr
		}
		configID = cfg.ID
	}

	rel := &store.Release{
		App:     appID,
		Version: maxVersion + 1,
		Config:  configID,
		State:   store.ReleaseCreated,
		Failed:  false,
		Summary: summary,
	}
	if build != nil {
		rel.Build = build.ID
	}
	if err := e.store.Releases.Create(ctx, rel); err != nil {
		return nil, err
	}
	return rel, nil
}

func shortSha(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// Latest returns the most recently created release of appID.
func (e *Engine) Latest(ctx context.Context, appID string) (*store.Release, error) {
	return e.store.Releases.Latest(ctx, appID)
}

// Previous returns the last non-failed release strictly before
// beforeVersion (0 means "before the current latest").
func (e *Engine) Previous(ctx context.Context, appID string, beforeVersion int) (*store.Release, error) {
	return e.store.Releases.Previous(ctx, appID, beforeVersion)
}

// RollbackTo creates a new release whose build+config equal the
// target version's, with the next version number. Fails with a
// generic "no build" error if the target release has no build.
func (e *Engine) RollbackTo(ctx context.Context, user, appID string, version int) (*store.Release, error) {
	target, err := e.store.Releases.Get(ctx, appID, version)
	if err != nil {
		return nil, err
	}
	if !target.HasBuild() {
		return nil, ctlerr.New(ctlerr.Drycc, "no build")
	}
	build, err := e.store.Builds.Get(ctx, target.Build)
	if err != nil {
		return nil, err
	}
	return e.create(ctx, user, appID, build, target.Config, RollbackSummary(version))
}

// AddCondition appends a Condition to the release's log.
func (e *Engine) AddCondition(ctx context.Context, rel *store.Release, state store.ReleaseState, action string, ptypes []string, exception error) error {
	cond := store.Condition{
		State:     state,
		Action:    action,
		Ptypes:    ptypes,
		Timestamp: time.Now(),
	}
	if exception != nil {
		cond.Exception = exception.Error()
	}
	rel.Conditions = append(rel.Conditions, cond)
	return e.store.Releases.UpdateState(ctx, rel.ID, state, state == store.ReleaseCrashed, rel.Conditions)
}

// Clean removes ptypes from deployed_ptypes that are no longer
// declared by the release's build.
func (e *Engine) Clean(ctx context.Context, rel *store.Release, declaredPtypes map[string]bool) error {
	kept := make([]string, 0, len(rel.DeployedPtypes))
	for _, p := range rel.DeployedPtypes {
		if declaredPtypes[p] {
			kept = append(kept, p)
		}
	}
	rel.DeployedPtypes = kept
	return e.store.Releases.UpdateDeployedPtypes(ctx, rel.ID, kept)
}

// Ptypes returns the set of ptype names a build declares, preferring
// dryccfile over procfile.
func Ptypes(build *store.Build) map[string]bool {
	out := map[string]bool{}
	if build == nil {
		return out
	}
	if len(build.Dryccfile) > 0 {
		for ptype := range build.Dryccfile {
			out[ptype] = true
		}
		return out
	}
	for ptype := range build.Procfile {
		out[ptype] = true
	}
	return out
}

