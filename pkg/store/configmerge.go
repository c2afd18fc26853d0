package store

import (
	"sort"

	"github.com/drycc/controller/pkg/ctlerr"
)

// mergePolicy is how one Config attribute combines a previous value
// with an incoming patch. Reimplemented as an explicit table instead
// of iterating named attributes reflectively, per the Design Note on
// dynamic dispatch over entity attributes.
type mergePolicy int

const (
	// policyMapMerge merges maps key-by-key; a null value deletes the
	// key, failing if the key was not already present.
	policyMapMerge mergePolicy = iota
	// policyValuesMerge merges the ordered EnvValue list by name.
	policyValuesMerge
)

// ConfigPatch is the set of changes a config save request may carry;
// nil fields are left untouched, matching "save only the attributes
// the caller named."
type ConfigPatch struct {
	Values                 []EnvValuePatch
	Limits                 map[string]*string
	Registry               map[string]*RegistryAuth
	Healthcheck            map[string]*Healthcheck
	Tags                   map[string]map[string]string
	LifecyclePostStart     map[string]*string
	LifecyclePreStop       map[string]*string
	TerminationGracePeriod map[string]*int64
}

// EnvValuePatch is one `{name, value, group}` entry of a config save;
// a nil Value unsets the key.
type EnvValuePatch struct {
	Name  string
	Value *string
	Group string
}

// MergeConfig applies patch over previous, returning a new Config.
// Every attribute is merged by its own explicit block below; unsetting a
// key (null value) that was not present in previous fails with
// Unprocessable (spec.md §3 Config invariant, §8 testable property).
func MergeConfig(previous *Config, patch ConfigPatch) (*Config, error) {
	out := *previous
	out.ID = ""

	if patch.Values != nil {
		merged, err := mergeValues(previous.Values, patch.Values)
		if err != nil {
			return nil, err
		}
		out.Values = merged
	}
	if patch.Limits != nil {
		merged, err := mergeStringMap(previous.Limits, patch.Limits, "limits")
		if err != nil {
			return nil, err
		}
		out.Limits = merged
	}
	if patch.Registry != nil {
		merged, err := mergeRegistry(previous.Registry, patch.Registry)
		if err != nil {
			return nil, err
		}
		out.Registry = merged
	}
	if patch.Healthcheck != nil {
		merged, err := mergeHealthcheck(previous.Healthcheck, patch.Healthcheck)
		if err != nil {
			return nil, err
		}
		out.Healthcheck = merged
	}
	if patch.Tags != nil {
		// tags has no null-unset semantics in the source data (a ptype's
		// tag map is replaced wholesale), so merge at the ptype level only.
		merged := map[string]map[string]string{}
		for k, v := range previous.Tags {
			merged[k] = v
		}
		for k, v := range patch.Tags {
			merged[k] = v
		}
		out.Tags = merged
	}
	if patch.LifecyclePostStart != nil {
		merged, err := mergeStringMap(previous.LifecyclePostStart, patch.LifecyclePostStart, "lifecycle_post_start")
		if err != nil {
			return nil, err
		}
		out.LifecyclePostStart = merged
	}
	if patch.LifecyclePreStop != nil {
		merged, err := mergeStringMap(previous.LifecyclePreStop, patch.LifecyclePreStop, "lifecycle_pre_stop")
		if err != nil {
			return nil, err
		}
		out.LifecyclePreStop = merged
	}
	if patch.TerminationGracePeriod != nil {
		merged, err := mergeInt64Map(previous.TerminationGracePeriod, patch.TerminationGracePeriod, "termination_grace_period")
		if err != nil {
			return nil, err
		}
		out.TerminationGracePeriod = merged
	}

	return &out, nil
}

func mergeValues(previous []EnvValue, patch []EnvValuePatch) ([]EnvValue, error) {
	merged := make(map[string]EnvValue, len(previous))
	for _, v := range previous {
		merged[v.Name] = v
	}
	for _, p := range patch {
		if p.Value == nil {
			if _, ok := merged[p.Name]; !ok {
				return nil, ctlerr.Newf(ctlerr.Unprocessable, "%s does not exist under values", p.Name)
			}
			delete(merged, p.Name)
			continue
		}
		merged[p.Name] = EnvValue{Name: p.Name, Value: *p.Value, Group: p.Group}
	}
	out := make([]EnvValue, 0, len(merged))
	for _, v := range merged {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func mergeStringMap(previous map[string]string, patch map[string]*string, attr string) (map[string]string, error) {
	merged := make(map[string]string, len(previous))
	for k, v := range previous {
		merged[k] = v
	}
	for k, v := range patch {
		if v == nil {
			if _, ok := merged[k]; !ok {
				return nil, ctlerr.Newf(ctlerr.Unprocessable, "%s does not exist under %s", k, attr)
			}
			delete(merged, k)
			continue
		}
		merged[k] = *v
	}
	return merged, nil
}

func mergeInt64Map(previous map[string]int64, patch map[string]*int64, attr string) (map[string]int64, error) {
	merged := make(map[string]int64, len(previous))
	for k, v := range previous {
		merged[k] = v
	}
	for k, v := range patch {
		if v == nil {
			if _, ok := merged[k]; !ok {
				return nil, ctlerr.Newf(ctlerr.Unprocessable, "%s does not exist under %s", k, attr)
			}
			delete(merged, k)
			continue
		}
		merged[k] = *v
	}
	return merged, nil
}

func mergeRegistry(previous map[string]RegistryAuth, patch map[string]*RegistryAuth) (map[string]RegistryAuth, error) {
	merged := make(map[string]RegistryAuth, len(previous))
	for k, v := range previous {
		merged[k] = v
	}
	for k, v := range patch {
		if v == nil {
			if _, ok := merged[k]; !ok {
				return nil, ctlerr.Newf(ctlerr.Unprocessable, "%s does not exist under registry", k)
			}
			delete(merged, k)
			continue
		}
		merged[k] = *v
	}
	return merged, nil
}

func mergeHealthcheck(previous map[string]Healthcheck, patch map[string]*Healthcheck) (map[string]Healthcheck, error) {
	merged := make(map[string]Healthcheck, len(previous))
	for k, v := range previous {
		merged[k] = v
	}
	for k, v := range patch {
		if v == nil {
			if _, ok := merged[k]; !ok {
				return nil, ctlerr.Newf(ctlerr.Unprocessable, "%s does not exist under healthcheck", k)
			}
			delete(merged, k)
			continue
		}
		merged[k] = *v
	}
	return merged, nil
}
