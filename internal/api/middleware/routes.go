package middleware

import (
	"path"
	"strings"
)

// PublicRoutes is the static allow-list of paths that skip token handling.
//
// Supported patterns:
//
//	/health         exact path
//	/swagger/**     the prefix itself and everything below it
//	/static/*.css   path.Match glob, single segment wildcards
type PublicRoutes struct {
	exact    map[string]struct{}
	prefixes []string
	globs    []string
}

func NewPublicRoutes(patterns ...string) *PublicRoutes {
	r := &PublicRoutes{exact: make(map[string]struct{})}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
		case strings.HasSuffix(p, "/**"):
			r.prefixes = append(r.prefixes, strings.TrimSuffix(p, "/**"))
		case strings.ContainsAny(p, "*?["):
			if _, err := path.Match(p, ""); err == nil {
				r.globs = append(r.globs, p)
			}
		default:
			r.exact[normalize(p)] = struct{}{}
		}
	}
	return r
}

// Match reports whether urlPath is public.
func (r *PublicRoutes) Match(urlPath string) bool {
	if r == nil {
		return false
	}
	p := normalize(urlPath)
	if _, ok := r.exact[p]; ok {
		return true
	}
	for _, prefix := range r.prefixes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	for _, g := range r.globs {
		if ok, _ := path.Match(g, p); ok {
			return true
		}
	}
	return false
}

func normalize(p string) string {
	if p == "" {
		return "/"
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}
