package release

import (
	"github.com/drycc/controller/pkg/store"
)

// pipelineDeploy returns the dryccfile pipeline's deploy entry for
// ptype, if declared.
func pipelineDeploy(build *store.Build, ptype string) (store.DeployStep, bool) {
	if build == nil {
		return store.DeployStep{}, false
	}
	step, ok := build.Dryccfile[ptype]
	if !ok {
		return store.DeployStep{}, false
	}
	return step.Deploy, true
}

// GetDeployImage resolves the image for ptype: dryccfile deploy entry,
// else the build's top-level image.
func GetDeployImage(build *store.Build, ptype string) string {
	if step, ok := pipelineDeploy(build, ptype); ok && step.Image != "" {
		return step.Image
	}
	if build != nil {
		return build.Image
	}
	return ""
}

// GetDeployCommand resolves the container command for ptype:
// dryccfile deploy entry, then procfile[ptype] split as a shell
// command, else nil (image ENTRYPOINT applies).
func GetDeployCommand(build *store.Build, ptype string) []string {
	if step, ok := pipelineDeploy(build, ptype); ok && len(step.Command) > 0 {
		return step.Command
	}
	if build != nil {
		if cmd, ok := build.Procfile[ptype]; ok && cmd != "" {
			return []string{"/bin/sh", "-c", cmd}
		}
	}
	return nil
}

// GetDeployArgs resolves the container args for ptype from the
// dryccfile deploy entry only; procfile commands carry no separate
// args.
func GetDeployArgs(build *store.Build, ptype string) []string {
	if step, ok := pipelineDeploy(build, ptype); ok {
		return step.Args
	}
	return nil
}

// GetPort resolves the container port for ptype from the PORT env
// var in the ptype's (or global) config values.
func GetPort(cfg *store.Config, ptype string) (int32, bool) {
	for _, v := range cfg.Values {
		if v.Name != "PORT" {
			continue
		}
		if v.Group != "global" && v.Group != ptype {
			continue
		}
		port, ok := atoi32(v.Value)
		if ok {
			return port, true
		}
	}
	return 0, false
}

func atoi32(s string) (int32, bool) {
	var n int32
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int32(r-'0')
	}
	return n, true
}

// Runner is a resolved pipeline run step ready for job submission.
type Runner struct {
	Ptype   string
	Image   string
	Command []string
	Args    []string
	Timeout int32
}

// GetRunners returns the pipeline `run` steps declared for the given
// ptypes, empty when the build has none.
func GetRunners(build *store.Build, ptypes []string) []Runner {
	if build == nil {
		return nil
	}
	var out []Runner
	for _, ptype := range ptypes {
		step, ok := build.Dryccfile[ptype]
		if !ok || step.Run == nil {
			continue
		}
		out = append(out, Runner{
			Ptype:   ptype,
			Image:   step.Run.Image,
			Command: step.Run.Command,
			Args:    step.Run.Args,
			Timeout: step.Run.Timeout,
		})
	}
	return out
}
