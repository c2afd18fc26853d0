// Package memory implements pkg/store's interfaces in-process, backing
// unit tests that would otherwise need a live postgres instance (the
// same role k8s.io/client-go/kubernetes/fake plays for pkg/k8s).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/store"
)

// Apps implements store.AppStore.
type Apps struct {
	mu   sync.Mutex
	rows map[string]store.App
}

func NewApps() *Apps { return &Apps{rows: make(map[string]store.App)} }

func (a *Apps) Create(_ context.Context, app *store.App) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.rows[app.ID]; ok {
		return ctlerr.Newf(ctlerr.AlreadyExists, "app %q already exists", app.ID)
	}
	now := time.Now()
	app.Created, app.Updated = now, now
	a.rows[app.ID] = *app
	return nil
}

func (a *Apps) Get(_ context.Context, id string) (*store.App, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	row, ok := a.rows[id]
	if !ok {
		return nil, ctlerr.Newf(ctlerr.NotFound, "app %q not found", id)
	}
	return &row, nil
}

func (a *Apps) List(_ context.Context, owner string) ([]store.App, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []store.App
	for _, row := range a.rows {
		if owner == "" || row.Owner == owner {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (a *Apps) UpdateStructure(_ context.Context, id string, expectUpdated int64, structure map[string]int32) (*store.App, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	row, ok := a.rows[id]
	if !ok {
		return nil, ctlerr.Newf(ctlerr.NotFound, "app %q not found", id)
	}
	if expectUpdated != 0 && row.Updated.UnixNano() != expectUpdated {
		return nil, ctlerr.New(ctlerr.AlreadyExists, "app was concurrently modified")
	}
	row.Structure = structure
	row.Updated = time.Now()
	a.rows[id] = row
	return &row, nil
}

func (a *Apps) Delete(_ context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.rows, id)
	return nil
}

func (a *Apps) TransferOwner(_ context.Context, id, newOwner string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	row, ok := a.rows[id]
	if !ok {
		return ctlerr.Newf(ctlerr.NotFound, "app %q not found", id)
	}
	row.Owner = newOwner
	row.Updated = time.Now()
	a.rows[id] = row
	return nil
}

// Configs implements store.ConfigStore.
type Configs struct {
	mu   sync.Mutex
	rows []store.Config
}

func NewConfigs() *Configs { return &Configs{} }

func (c *Configs) Create(_ context.Context, cfg *store.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	cfg.Created = time.Now()
	c.rows = append(c.rows, *cfg)
	return nil
}

func (c *Configs) Latest(_ context.Context, app string) (*store.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.rows) - 1; i >= 0; i-- {
		if c.rows[i].App == app {
			row := c.rows[i]
			return &row, nil
		}
	}
	return nil, ctlerr.Newf(ctlerr.NotFound, "no config for app %q", app)
}

func (c *Configs) Get(_ context.Context, id string) (*store.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, row := range c.rows {
		if row.ID == id {
			r := row
			return &r, nil
		}
	}
	return nil, ctlerr.Newf(ctlerr.NotFound, "config %q not found", id)
}

// Builds implements store.BuildStore.
type Builds struct {
	mu   sync.Mutex
	rows []store.Build
}

func NewBuilds() *Builds { return &Builds{} }

func (b *Builds) Create(_ context.Context, build *store.Build) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if build.ID == "" {
		build.ID = uuid.NewString()
	}
	build.Created = time.Now()
	b.rows = append(b.rows, *build)
	return nil
}

func (b *Builds) Latest(_ context.Context, app string) (*store.Build, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.rows) - 1; i >= 0; i-- {
		if b.rows[i].App == app {
			row := b.rows[i]
			return &row, nil
		}
	}
	return nil, ctlerr.Newf(ctlerr.NotFound, "no build for app %q", app)
}

func (b *Builds) Get(_ context.Context, id string) (*store.Build, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, row := range b.rows {
		if row.ID == id {
			r := row
			return &r, nil
		}
	}
	return nil, ctlerr.Newf(ctlerr.NotFound, "build %q not found", id)
}

// Releases implements store.ReleaseStore.
type Releases struct {
	mu   sync.Mutex
	rows map[string]store.Release // keyed by ID
}

func NewReleases() *Releases { return &Releases{rows: make(map[string]store.Release)} }

func (r *Releases) Create(_ context.Context, rel *store.Release) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.App == rel.App && row.Version == rel.Version {
			return ctlerr.Newf(ctlerr.AlreadyExists, "release v%d of %q already exists", rel.Version, rel.App)
		}
	}
	if rel.ID == "" {
		rel.ID = uuid.NewString()
	}
	now := time.Now()
	rel.Created, rel.Updated = now, now
	r.rows[rel.ID] = *rel
	return nil
}

func (r *Releases) Get(_ context.Context, app string, version int) (*store.Release, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.App == app && row.Version == version {
			out := row
			return &out, nil
		}
	}
	return nil, ctlerr.Newf(ctlerr.NotFound, "release v%d of %q not found", version, app)
}

func (r *Releases) Latest(_ context.Context, app string) (*store.Release, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *store.Release
	for _, row := range r.rows {
		row := row
		if row.App != app {
			continue
		}
		if best == nil || row.Created.After(best.Created) {
			best = &row
		}
	}
	if best == nil {
		return nil, ctlerr.Newf(ctlerr.NotFound, "no release for app %q", app)
	}
	return best, nil
}

func (r *Releases) Previous(_ context.Context, app string, beforeVersion int) (*store.Release, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if beforeVersion == 0 {
		var latest *store.Release
		for _, row := range r.rows {
			row := row
			if row.App == app && (latest == nil || row.Created.After(latest.Created)) {
				latest = &row
			}
		}
		if latest == nil {
			return nil, ctlerr.Newf(ctlerr.NotFound, "no release for app %q", app)
		}
		beforeVersion = latest.Version
	}
	var best *store.Release
	for _, row := range r.rows {
		row := row
		if row.App != app || row.Failed || row.Version >= beforeVersion {
			continue
		}
		if best == nil || row.Version > best.Version {
			best = &row
		}
	}
	if best == nil {
		return nil, ctlerr.Newf(ctlerr.NotFound, "no previous successful release for app %q", app)
	}
	return best, nil
}

func (r *Releases) MaxVersion(_ context.Context, app string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, row := range r.rows {
		if row.App == app && row.Version > max {
			max = row.Version
		}
	}
	return max, nil
}

func (r *Releases) List(_ context.Context, app string) ([]store.Release, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []store.Release
	for _, row := range r.rows {
		if row.App == app {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (r *Releases) UpdateState(_ context.Context, id string, state store.ReleaseState, failed bool, conditions []store.Condition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return ctlerr.Newf(ctlerr.NotFound, "release %q not found", id)
	}
	row.State = state
	row.Failed = failed
	row.Conditions = conditions
	row.Updated = time.Now()
	r.rows[id] = row
	return nil
}

func (r *Releases) UpdateDeployedPtypes(_ context.Context, id string, ptypes []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return ctlerr.Newf(ctlerr.NotFound, "release %q not found", id)
	}
	row.DeployedPtypes = ptypes
	row.Updated = time.Now()
	r.rows[id] = row
	return nil
}

// AppSettingsStore implements store.AppSettingsStore.
type AppSettingsStore struct {
	mu   sync.Mutex
	rows []store.AppSettings
}

func NewAppSettingsStore() *AppSettingsStore { return &AppSettingsStore{} }

func (s *AppSettingsStore) Create(_ context.Context, settings *store.AppSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if settings.ID == "" {
		settings.ID = uuid.NewString()
	}
	settings.Created = time.Now()
	s.rows = append(s.rows, *settings)
	return nil
}

func (s *AppSettingsStore) Latest(_ context.Context, app string) (*store.AppSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].App == app {
			row := s.rows[i]
			return &row, nil
		}
	}
	return nil, ctlerr.Newf(ctlerr.NotFound, "no settings for app %q", app)
}

// Services implements store.ServiceStore.
type Services struct {
	mu   sync.Mutex
	rows map[string]store.Service // key "app/ptype"
}

func NewServices() *Services { return &Services{rows: make(map[string]store.Service)} }

func serviceKey(app, ptype string) string { return app + "/" + ptype }

func (s *Services) Upsert(_ context.Context, svc *store.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}
	s.rows[serviceKey(svc.App, svc.Ptype)] = *svc
	return nil
}

func (s *Services) Get(_ context.Context, app, ptype string) (*store.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[serviceKey(app, ptype)]
	if !ok {
		return nil, ctlerr.Newf(ctlerr.NotFound, "service %s/%s not found", app, ptype)
	}
	return &row, nil
}

func (s *Services) List(_ context.Context, app string) ([]store.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Service
	for _, row := range s.rows {
		if row.App == app {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ptype < out[j].Ptype })
	return out, nil
}

func (s *Services) Delete(_ context.Context, app, ptype string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, serviceKey(app, ptype))
	return nil
}

// Volumes implements store.VolumeStore.
type Volumes struct {
	mu   sync.Mutex
	rows map[string]store.Volume // key "app/name"
}

func NewVolumes() *Volumes { return &Volumes{rows: make(map[string]store.Volume)} }

func volumeKey(app, name string) string { return app + "/" + name }

func (v *Volumes) Create(_ context.Context, vol *store.Volume) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := volumeKey(vol.App, vol.Name)
	if _, ok := v.rows[key]; ok {
		return ctlerr.Newf(ctlerr.AlreadyExists, "volume %q already exists", vol.Name)
	}
	for _, row := range v.rows {
		if row.App != vol.App {
			continue
		}
		for ptype, path := range vol.Path {
			if row.Path[ptype] == path {
				return ctlerr.Newf(ctlerr.Drycc, "path %q already claimed for ptype %q", path, ptype)
			}
		}
	}
	if vol.ID == "" {
		vol.ID = uuid.NewString()
	}
	v.rows[key] = *vol
	return nil
}

func (v *Volumes) Update(_ context.Context, vol *store.Volume) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := volumeKey(vol.App, vol.Name)
	if _, ok := v.rows[key]; !ok {
		return ctlerr.Newf(ctlerr.NotFound, "volume %q not found", vol.Name)
	}
	v.rows[key] = *vol
	return nil
}

func (v *Volumes) Get(_ context.Context, app, name string) (*store.Volume, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	row, ok := v.rows[volumeKey(app, name)]
	if !ok {
		return nil, ctlerr.Newf(ctlerr.NotFound, "volume %q not found", name)
	}
	return &row, nil
}

func (v *Volumes) List(_ context.Context, app string) ([]store.Volume, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []store.Volume
	for _, row := range v.rows {
		if row.App == app {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (v *Volumes) Delete(_ context.Context, app, name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.rows, volumeKey(app, name))
	return nil
}

// Resources implements store.ResourceStore.
type Resources struct {
	mu   sync.Mutex
	rows map[string]store.Resource // key "app/name"
}

func NewResources() *Resources { return &Resources{rows: make(map[string]store.Resource)} }

func resourceKey(app, name string) string { return app + "/" + name }

func (r *Resources) Create(_ context.Context, res *store.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	res.Created = time.Now()
	r.rows[resourceKey(res.App, res.Name)] = *res
	return nil
}

func (r *Resources) Update(_ context.Context, res *store.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := resourceKey(res.App, res.Name)
	if _, ok := r.rows[key]; !ok {
		return ctlerr.Newf(ctlerr.NotFound, "resource %q not found", res.Name)
	}
	r.rows[key] = *res
	return nil
}

func (r *Resources) Get(_ context.Context, app, name string) (*store.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[resourceKey(app, name)]
	if !ok {
		return nil, ctlerr.Newf(ctlerr.NotFound, "resource %q not found", name)
	}
	return &row, nil
}

func (r *Resources) List(_ context.Context, app string) ([]store.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []store.Resource
	for _, row := range r.rows {
		if row.App == app {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Resources) Delete(_ context.Context, app, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, resourceKey(app, name))
	return nil
}

// LimitPlans implements store.LimitPlanStore.
type LimitPlans struct {
	mu   sync.Mutex
	rows map[string]store.LimitPlan
}

func NewLimitPlans(seed ...store.LimitPlan) *LimitPlans {
	rows := make(map[string]store.LimitPlan, len(seed))
	for _, p := range seed {
		rows[p.ID] = p
	}
	return &LimitPlans{rows: rows}
}

func (l *LimitPlans) Get(_ context.Context, id string) (*store.LimitPlan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[id]
	if !ok {
		return nil, ctlerr.Newf(ctlerr.NotFound, "limit plan %q not found", id)
	}
	return &row, nil
}

func (l *LimitPlans) List(_ context.Context) ([]store.LimitPlan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []store.LimitPlan
	for _, row := range l.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Gateways implements store.GatewayStore.
type Gateways struct {
	mu       sync.Mutex
	gateways map[string]store.Gateway
	routes   map[string]store.Route
}

func NewGateways() *Gateways {
	return &Gateways{gateways: make(map[string]store.Gateway), routes: make(map[string]store.Route)}
}

func (g *Gateways) UpsertGateway(_ context.Context, gw *store.Gateway) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gw.ID == "" {
		gw.ID = uuid.NewString()
	}
	g.gateways[gw.App+"/"+gw.Name] = *gw
	return nil
}

func (g *Gateways) GetGateway(_ context.Context, app, name string) (*store.Gateway, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	row, ok := g.gateways[app+"/"+name]
	if !ok {
		return nil, ctlerr.Newf(ctlerr.NotFound, "gateway %q not found", name)
	}
	return &row, nil
}

func (g *Gateways) UpsertRoute(_ context.Context, r *store.Route) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	g.routes[r.App+"/"+r.Name] = *r
	return nil
}

func (g *Gateways) GetRoute(_ context.Context, app, name string) (*store.Route, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	row, ok := g.routes[app+"/"+name]
	if !ok {
		return nil, ctlerr.Newf(ctlerr.NotFound, "route %q not found", name)
	}
	return &row, nil
}

// Tokens implements store.TokenStore.
type Tokens struct {
	mu   sync.Mutex
	rows map[string]store.Token
}

func NewTokens() *Tokens { return &Tokens{rows: make(map[string]store.Token)} }

func (t *Tokens) Upsert(_ context.Context, tok *store.Token) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	tok.Created = time.Now()
	t.rows[tok.Key] = *tok
	return nil
}

func (t *Tokens) Get(_ context.Context, key string) (*store.Token, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[key]
	if !ok {
		return nil, ctlerr.Newf(ctlerr.NotFound, "token %q not found", key)
	}
	return &row, nil
}

// New assembles a fully in-memory store.Store, wiring every entity
// store implemented in this package.
func New() *store.Store {
	return &store.Store{
		Apps:        NewApps(),
		Configs:     NewConfigs(),
		Builds:      NewBuilds(),
		Releases:    NewReleases(),
		AppSettings: NewAppSettingsStore(),
		Services:    NewServices(),
		Volumes:     NewVolumes(),
		Resources:   NewResources(),
		LimitPlans:  NewLimitPlans(),
		Gateways:    NewGateways(),
		Tokens:      NewTokens(),
	}
}
