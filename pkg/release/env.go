package release

import (
	"fmt"
	"time"

	"github.com/drycc/controller/pkg/store"
)

// Env computes the env map for (release, ptype): Config values whose
// group is "global" or ptype win first, then the computed defaults
// below are applied last so user values can never shadow them
// (spec.md §4.7).
func Env(app *store.App, build *store.Build, cfg *store.Config, rel *store.Release, ptype string) map[string]string {
	env := map[string]string{}
	for _, v := range cfg.Values {
		if v.Group == "global" || v.Group == ptype {
			env[v.Name] = v.Value
		}
	}

	env["DRYCC_APP"] = app.ID
	env["WORKFLOW_RELEASE"] = fmt.Sprintf("v%d", rel.Version)
	env["WORKFLOW_RELEASE_SUMMARY"] = rel.Summary
	env["WORKFLOW_RELEASE_CREATED_AT"] = rel.Created.Format(time.RFC3339)
	if build != nil {
		env["SOURCE_VERSION"] = build.Sha
	}
	if port, ok := GetPort(cfg, ptype); ok {
		env["PORT"] = fmt.Sprintf("%d", port)
	}

	return env
}
