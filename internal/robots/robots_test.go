package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/mitchwxyz/DomainTools/internal/config"
)

func target(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func newServer(t *testing.T, robotsBody string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			if hits != nil {
				hits.Add(1)
			}
			w.Write([]byte(robotsBody))
			return
		}
		w.Write([]byte("ok"))
	}))
}

func TestAllowedAppliesDisallowRules(t *testing.T) {
	server := newServer(t, "User-agent: *\nDisallow: /private\n", nil)
	defer server.Close()

	agent := NewAgent(config.RobotsConfig{
		Respect:   true,
		UserAgent: "test-bot",
	}, server.Client())

	if !agent.Allowed(context.Background(), target(t, server.URL+"/public")) {
		t.Fatal("expected /public allowed")
	}
	if agent.Allowed(context.Background(), target(t, server.URL+"/private/page")) {
		t.Fatal("expected /private disallowed")
	}
}

func TestAllowedCachesRules(t *testing.T) {
	var hits atomic.Int32
	server := newServer(t, "User-agent: *\nAllow: /\n", &hits)
	defer server.Close()

	agent := NewAgent(config.RobotsConfig{
		Respect:   true,
		UserAgent: "test-bot",
	}, server.Client())

	for i := 0; i < 3; i++ {
		agent.Allowed(context.Background(), target(t, server.URL+"/page"))
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected 1 robots.txt fetch, got %d", got)
	}
}

func TestAllowedFailsOpenOnFetchError(t *testing.T) {
	agent := NewAgent(config.RobotsConfig{
		Respect:   true,
		UserAgent: "test-bot",
	}, &http.Client{})

	if !agent.Allowed(context.Background(), target(t, "http://127.0.0.1:1/page")) {
		t.Fatal("unreachable robots.txt should fail open")
	}
}

func TestAllowedSkipsWhenNotRespecting(t *testing.T) {
	agent := NewAgent(config.RobotsConfig{Respect: false}, nil)
	if !agent.Allowed(context.Background(), target(t, "https://example.com/anything")) {
		t.Fatal("expected everything allowed when not respecting robots")
	}
}

func TestAllowedHonoursOverrides(t *testing.T) {
	server := newServer(t, "User-agent: *\nDisallow: /\n", nil)
	defer server.Close()

	u := target(t, server.URL+"/page")
	agent := NewAgent(config.RobotsConfig{
		Respect:   true,
		UserAgent: "test-bot",
		Overrides: []string{u.Hostname()},
	}, server.Client())

	if !agent.Allowed(context.Background(), u) {
		t.Fatal("override host should bypass robots rules")
	}
}
