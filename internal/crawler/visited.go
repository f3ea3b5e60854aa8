package crawler

import (
	"net/url"
	"strings"
)

// visitedSet tracks the normalized URLs already attempted during one crawl
// session. It lives only for the session and is never persisted.
type visitedSet struct {
	keys map[string]struct{}
}

func newVisitedSet() *visitedSet {
	return &visitedSet{keys: make(map[string]struct{})}
}

func (s *visitedSet) Seen(u *url.URL) bool {
	_, ok := s.keys[canonicalKey(u)]
	return ok
}

// Add marks a URL visited. It reports false when the URL was already present.
func (s *visitedSet) Add(u *url.URL) bool {
	key := canonicalKey(u)
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

func (s *visitedSet) Len() int {
	return len(s.keys)
}

// canonicalKey normalizes a URL so trivially different spellings of the same
// page share one visited entry.
func canonicalKey(u *url.URL) string {
	if u == nil {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = "http"
	}
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && port != defaultPortForScheme(scheme) {
		host = host + ":" + port
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	key := scheme + "://" + host + path
	if q := u.RawQuery; q != "" {
		key += "?" + q
	}
	return key
}

func defaultPortForScheme(scheme string) string {
	switch scheme {
	case "http":
		return "80"
	case "https":
		return "443"
	default:
		return ""
	}
}
