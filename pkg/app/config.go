package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/release"
	"github.com/drycc/controller/pkg/store"
)

// SetApplicationConfig materializes the (release, ptype) env
// projection as a k8s Secret named `{app}-{ptype}-{version}-env`,
// with keys lowercased and `_` replaced by `-`, sorted. Create-or-update
// is idempotent: calling it twice yields identical data and labels
// (spec.md §4.6 set_application_config, §8 "env idempotency").
func (c *Controller) SetApplicationConfig(ctx context.Context, app *store.App, build *store.Build, cfg *store.Config, rel *store.Release, ptype string) (string, error) {
	name := fmt.Sprintf("%s-%s-v%d-env", app.ID, ptype, rel.Version)
	env := release.Env(app, build, cfg, rel, ptype)

	data := make(map[string][]byte, len(env))
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		secretKey := strings.ReplaceAll(strings.ToLower(k), "_", "-")
		data[secretKey] = []byte(env[k])
	}

	labels := map[string]string{"app": app.ID, "type": ptype, "heritage": "drycc"}
	if _, err := c.k8s.EnsureSecret(ctx, app.ID, name, corev1.SecretTypeOpaque, data, labels); err != nil {
		return "", ctlerr.Wrap(ctlerr.ServiceUnavailable, "materialize env secret", err)
	}
	return name, nil
}
