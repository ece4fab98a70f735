package extract

import (
	"path"
	"strings"
)

// matchPattern reports whether urlPath matches a glob pattern.
//   - "/admin/*" matches "/admin" and everything below it
//   - "*.pdf" matches any path ending in ".pdf"
//   - other patterns use path.Match, where * does not cross "/"
func matchPattern(pattern, urlPath string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/") {
			return true
		}
	}
	if ext, ok := strings.CutPrefix(pattern, "*."); ok && !strings.ContainsAny(ext, "*?[") {
		if strings.HasSuffix(urlPath, "."+ext) {
			return true
		}
	}
	matched, err := path.Match(pattern, urlPath)
	return err == nil && matched
}

// shouldFollow applies ignore patterns first; when follow patterns are set
// the path must also match one of them.
func shouldFollow(urlPath string, ignore, follow []string) bool {
	for _, p := range ignore {
		if matchPattern(p, urlPath) {
			return false
		}
	}
	if len(follow) == 0 {
		return true
	}
	for _, p := range follow {
		if matchPattern(p, urlPath) {
			return true
		}
	}
	return false
}
