// Package version compares plugin release strings using numeric,
// dot-delimited semantics.
package version

import (
	"strconv"
	"strings"
)

// Parse extracts the numeric components of v. Any run of non-digit
// characters acts as a separator, so "v1.2.3b" yields [1 2 3]. Fragments that
// do not fit in an int are dropped.
func Parse(v string) []int {
	var parts []int
	current := strings.Builder{}
	flush := func() {
		if current.Len() == 0 {
			return
		}
		if val, err := strconv.Atoi(current.String()); err == nil {
			parts = append(parts, val)
		}
		current.Reset()
	}
	for _, r := range v {
		if r >= '0' && r <= '9' {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return parts
}

// Compare returns -1, 0 or +1 depending on whether a denotes an older, equal
// or newer release than b. Missing components count as zero, so "1.2" and
// "1.2.0" are equal.
func Compare(a, b string) int {
	aParts := Parse(a)
	bParts := Parse(b)
	n := len(aParts)
	if len(bParts) > n {
		n = len(bParts)
	}
	for i := 0; i < n; i++ {
		av, bv := component(aParts, i), component(bParts, i)
		if av > bv {
			return 1
		}
		if av < bv {
			return -1
		}
	}
	return 0
}

// IsNewer reports whether a is a strictly greater release than b.
func IsNewer(a, b string) bool {
	return Compare(a, b) > 0
}

// Newest returns the greatest version in versions. Ties keep the earliest
// element. An empty slice yields "".
func Newest(versions []string) string {
	best := ""
	for i, v := range versions {
		if i == 0 || IsNewer(v, best) {
			best = v
		}
	}
	return best
}

func component(parts []int, i int) int {
	if i < len(parts) {
		return parts[i]
	}
	return 0
}
