package domain

import "strings"

// versionPlaceholder is the substitution marker used in asset filename
// templates, e.g. "truthdb-v{version}-x86_64-linux-gnu.tar.gz".
const versionPlaceholder = "{version}"

// AssetTable maps a repository name to the artifact filename templates its
// release is expected to publish. Repos producing no externally-polled
// artifact have no entry.
type AssetTable map[string][]string

// ExpectedFor expands the templates for one repository with the release
// version (without the leading "v"). A nil slice means no asset-wait step.
func (t AssetTable) ExpectedFor(repo, version string) []string {
	templates, ok := t[repo]
	if !ok {
		return nil
	}

	expected := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		expected = append(expected, strings.ReplaceAll(tmpl, versionPlaceholder, version))
	}
	return expected
}
