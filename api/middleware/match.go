package middleware

import (
	"net/http"
	"strings"
)

type routeMatcher func(string) bool

func matchExact(path string) routeMatcher {
	return func(candidate string) bool {
		return candidate == path
	}
}

func matchPrefixSuffix(prefix, suffix string) routeMatcher {
	return func(candidate string) bool {
		if !strings.HasPrefix(candidate, prefix) || !strings.HasSuffix(candidate, suffix) {
			return false
		}
		return len(candidate) > len(prefix)+len(suffix)
	}
}

// requestPath matches on the raw URL path rather than the chi route pattern;
// inside a Use chain the pattern still ends in the group wildcard and never
// equals the final route.
func requestPath(r *http.Request) string {
	return r.URL.Path
}
