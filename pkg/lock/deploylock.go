package lock

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/drycc/controller/pkg/ctlerr"
)

const ptypesTTL = time.Hour

// DeployLock extends CacheLock with a side key tracking which ptypes
// of one app are currently mid-deploy, so two deploys of disjoint
// ptypes on the same app can proceed concurrently while overlapping
// ptypes cannot (spec.md §4.2).
type DeployLock struct {
	kv     KV
	appKey string
}

// NewDeployLock constructs a DeployLock for appKey (typically the
// app's id).
func NewDeployLock(kv KV, appKey string) *DeployLock {
	return &DeployLock{kv: kv, appKey: appKey}
}

func (d *DeployLock) ptypesKey() string {
	return fmt.Sprintf("ptypes:%s", d.appKey)
}

func (d *DeployLock) readSet() (map[string]bool, error) {
	raw, ok, err := d.kv.Get(d.ptypesKey())
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	if !ok {
		return set, nil
	}
	var ptypes []string
	if err := json.Unmarshal([]byte(raw), &ptypes); err != nil {
		return nil, fmt.Errorf("decode ptypes set: %w", err)
	}
	for _, p := range ptypes {
		set[p] = true
	}
	return set, nil
}

func (d *DeployLock) writeSet(set map[string]bool) error {
	ptypes := make([]string, 0, len(set))
	for p := range set {
		ptypes = append(ptypes, p)
	}
	sort.Strings(ptypes)
	raw, err := json.Marshal(ptypes)
	if err != nil {
		return err
	}
	return d.kv.Set(d.ptypesKey(), string(raw), ptypesTTL)
}

// Locked returns the subset of ptypes currently held.
func (d *DeployLock) Locked(ptypes []string) ([]string, error) {
	set, err := d.readSet()
	if err != nil {
		return nil, err
	}
	var held []string
	for _, p := range ptypes {
		if set[p] {
			held = append(held, p)
		}
	}
	return held, nil
}

// Acquire takes the app-level CacheLock, checks none of ptypes are
// already held (unless force), and if clear, unions them into the
// held set with a 1-hour TTL. The app-level lock is released before
// returning either way — only the ptypes entry persists across the
// deploy, guarded by its own TTL in case the caller crashes before
// calling Release.
func (d *DeployLock) Acquire(ctx context.Context, ptypes []string, force bool) error {
	appLock := NewCacheLock(d.kv, d.appKey)
	ok, err := appLock.Acquire(ctx, true, 10*time.Second, 0)
	if err != nil {
		return err
	}
	if !ok {
		return ctlerr.New(ctlerr.ServiceUnavailable, "could not acquire app lock")
	}
	defer appLock.Release()

	set, err := d.readSet()
	if err != nil {
		return err
	}

	if !force {
		for _, p := range ptypes {
			if set[p] {
				return ctlerr.Newf(ctlerr.Unprocessable, "ptype %q is already deploying", p)
			}
		}
	}

	for _, p := range ptypes {
		set[p] = true
	}
	return d.writeSet(set)
}

// Release removes ptypes from the held set, regardless of force.
func (d *DeployLock) Release(ptypes []string) error {
	set, err := d.readSet()
	if err != nil {
		return err
	}
	for _, p := range ptypes {
		delete(set, p)
	}
	return d.writeSet(set)
}
