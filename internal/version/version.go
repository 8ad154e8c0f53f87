// Package version tracks the server release version.
package version

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// Version is the service version, bumped on release.
var Version = "0.3.1"

// DevVersion is the developing version.
var DevVersion = "0.3.2"

func GetCurrentVersion(mode string) string {
	if mode == "dev" {
		return DevVersion
	}
	return Version
}

// IsVersionGreaterOrEqualThan returns true when version >= target.
func IsVersionGreaterOrEqualThan(version, target string) bool {
	return semver.Compare(fmt.Sprintf("v%s", version), fmt.Sprintf("v%s", target)) >= 0
}

// IsVersionGreaterThan returns true when version > target.
func IsVersionGreaterThan(version, target string) bool {
	return semver.Compare(fmt.Sprintf("v%s", version), fmt.Sprintf("v%s", target)) > 0
}
