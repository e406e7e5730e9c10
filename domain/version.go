package domain

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ParseReleaseVersion normalizes operator input into a ReleaseVersion.
// Accepted forms: "1.2.3", "v1.2.3", "1.2.3-rc.1", "v1.2.3-rc.1",
// "1.2.3+build.5", "v1.2.3+build.5". Prerelease and build metadata are
// preserved verbatim; the tag is always "v" + the canonical version.
func ParseReleaseVersion(raw string) (ReleaseVersion, error) {
	withoutV := strings.TrimPrefix(raw, "v")

	// "vv1.2.3" almost always indicates a typo; reject it explicitly
	// instead of letting the parser produce a confusing message.
	if strings.HasPrefix(raw, "v") && strings.HasPrefix(withoutV, "v") {
		return ReleaseVersion{}, fmt.Errorf(
			"%w: %q: remove the extra leading 'v'. Example: v1.2.3",
			ErrInvalidVersion, raw,
		)
	}

	parsed, err := semver.StrictNewVersion(withoutV)
	if err != nil {
		return ReleaseVersion{}, fmt.Errorf(
			"%w: %q. Expected SemVer like '1.2.3', 'v1.2.3', '1.2.3-rc.1', or 'v1.2.3-rc.1'",
			ErrInvalidVersion, raw,
		)
	}

	version := parsed.String()
	return ReleaseVersion{
		Tag:     "v" + version,
		Version: version,
	}, nil
}
