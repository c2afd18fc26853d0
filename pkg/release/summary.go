package release

import "fmt"

// BuildSummary formats the user-facing summary for a build-triggered
// release.
func BuildSummary(user, sha string) string {
	return fmt.Sprintf("%s deployed %s", user, shortSha(sha))
}

// ConfigSummary formats the user-facing summary for a config-triggered
// release.
func ConfigSummary(user string) string {
	return fmt.Sprintf("%s changed config", user)
}

// RollbackSummary formats the user-facing summary for a rollback.
func RollbackSummary(version int) string {
	return fmt.Sprintf("rollback to v%d", version)
}
