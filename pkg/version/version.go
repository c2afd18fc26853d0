// Package version carries build-time version metadata, set via
// -ldflags at build time. Mirrors the teacher's version package
// referenced from its cmd/root.go.
package version

var (
	// Version is the controller's semantic version, set at build time.
	Version = "dev"
	// BinaryName identifies the process in logs and the User-Agent
	// sent to the Kubernetes API server.
	BinaryName = "drycc-controller"
	// GitCommit is the commit the binary was built from.
	GitCommit = "unknown"
)
