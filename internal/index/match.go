package index

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"repogen/internal/version"
)

// NewestMatch returns the name, relative to dir, of the file matching
// pattern with the greatest version. The version of a match is the text
// after its last "-" with the extension removed. It returns "" when nothing
// matches.
func NewestMatch(dir, pattern string) (string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return "", fmt.Errorf("invalid archive pattern %q", pattern)
	}
	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return "", fmt.Errorf("match %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return "", nil
	}

	versions := make([]string, len(matches))
	for i, m := range matches {
		versions[i] = versionOf(m)
	}
	newest := version.Newest(versions)
	for i, v := range versions {
		if v == newest {
			return matches[i], nil
		}
	}
	return matches[0], nil
}

func versionOf(name string) string {
	base := path.Base(name)
	base = strings.TrimSuffix(base, path.Ext(base))
	if i := strings.LastIndex(base, "-"); i >= 0 {
		return base[i+1:]
	}
	return base
}
