package abi

import (
	"fmt"
	"strings"

	"github.com/blang/semver/v4"
)

// VersionPrefix prefixes every ABI version string.
const VersionPrefix = "eosio::abi/"

// DefaultVersion is assigned to JSON inputs that omit a version.
const DefaultVersion = VersionPrefix + "1.1"

var (
	// variants were introduced in 1.1, action results in 1.2.
	variantsSince      = semver.MustParse("1.1.0")
	actionResultsSince = semver.MustParse("1.2.0")
)

// ParseVersion parses an ABI version string such as "eosio::abi/1.2".
func ParseVersion(version string) (semver.Version, error) {
	rest, ok := strings.CutPrefix(version, VersionPrefix)
	if !ok || rest == "" {
		return semver.Version{}, fmt.Errorf("%w: %q", ErrUnsupportedVersion, version)
	}
	v, err := semver.ParseTolerant(rest)
	if err != nil {
		return semver.Version{}, fmt.Errorf("%w: %q: %v", ErrUnsupportedVersion, version, err)
	}
	return v, nil
}

// SemVer returns the parsed version of a, or the zero version if it is malformed.
func (a *ABI) SemVer() semver.Version {
	v, err := ParseVersion(a.Version)
	if err != nil {
		return semver.Version{}
	}
	return v
}

func (a *ABI) hasVariantsSection() bool {
	return len(a.Variants) > 0 || len(a.ActionResults) > 0 || a.SemVer().GTE(variantsSince)
}

func (a *ABI) hasActionResultsSection() bool {
	return len(a.ActionResults) > 0 || a.SemVer().GTE(actionResultsSince)
}
