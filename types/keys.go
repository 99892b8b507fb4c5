package types

import "strings"

// Natural keys are derived from the package identifier (and version for
// changelogs). The namespace is never encoded in the key: each namespace has
// its own map.

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DashboardKey is the key of a package summary.
func DashboardKey(pkg string) string {
	return normalize(pkg)
}

// TimelineKey is the key of a package's version timeline.
func TimelineKey(pkg string) string {
	return normalize(pkg)
}

// ChangelogKey is the key of the release notes of one version.
func ChangelogKey(pkg, version string) string {
	return normalize(pkg) + "@" + strings.TrimPrefix(strings.TrimSpace(version), "v")
}
