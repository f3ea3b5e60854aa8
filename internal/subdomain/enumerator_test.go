package subdomain

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchwxyz/DomainTools/internal/config"
	"github.com/mitchwxyz/DomainTools/pkg/types"
)

// fakeResolver resolves only the hosts it knows about.
type fakeResolver struct {
	addrs map[string]string
}

func (f fakeResolver) Resolve(_ context.Context, host string) (string, error) {
	if ip, ok := f.addrs[host]; ok {
		return ip, nil
	}
	return "", ErrUnresolved
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeWordlist(t *testing.T, words string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(path, []byte(words), 0o644); err != nil {
		t.Fatalf("write wordlist: %v", err)
	}
	return path
}

func TestEnumerateResolvesCandidates(t *testing.T) {
	resolver := fakeResolver{addrs: map[string]string{
		"example.com":     "93.184.216.34",
		"www.example.com": "93.184.216.34",
		"api.example.com": "10.0.0.5",
	}}
	cfg := config.SubdomainConfig{
		WordlistPath: writeWordlist(t, "www\napi\nmail\n"),
		Concurrency:  2,
	}
	enum := NewEnumerator(cfg, resolver, nil, quietLogger())

	results, err := enum.Enumerate(context.Background(), "example.com", false)
	if err != nil {
		t.Fatalf("enumerate: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 resolved hosts, got %v", results)
	}
	if results["www.example.com"] != "93.184.216.34" {
		t.Fatalf("unexpected address for www: %v", results)
	}
	if _, ok := results["mail.example.com"]; ok {
		t.Fatal("unresolved host should be omitted by default")
	}
}

func TestEnumerateIncludesUnresolvedWhenAsked(t *testing.T) {
	resolver := fakeResolver{addrs: map[string]string{
		"example.com":     "93.184.216.34",
		"www.example.com": "93.184.216.34",
	}}
	cfg := config.SubdomainConfig{
		WordlistPath: writeWordlist(t, "www\nmail\n"),
		Concurrency:  2,
	}
	enum := NewEnumerator(cfg, resolver, nil, quietLogger())

	results, err := enum.Enumerate(context.Background(), "example.com", true)
	if err != nil {
		t.Fatalf("enumerate: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected both candidates reported, got %v", results)
	}
	if results["mail.example.com"] != types.Unresolved {
		t.Fatalf("expected unresolved sentinel for mail, got %q", results["mail.example.com"])
	}
}

func TestEnumerateFailsFastOnUnresolvableBase(t *testing.T) {
	enum := NewEnumerator(config.SubdomainConfig{
		WordlistPath: writeWordlist(t, "www\n"),
		Concurrency:  2,
	}, fakeResolver{}, nil, quietLogger())

	if _, err := enum.Enumerate(context.Background(), "no-such-domain.invalid", false); err == nil {
		t.Fatal("expected error when the base domain does not resolve")
	}
}

func TestEnumerateRejectsEmptyBase(t *testing.T) {
	enum := NewEnumerator(config.SubdomainConfig{Concurrency: 1}, fakeResolver{}, nil, quietLogger())
	if _, err := enum.Enumerate(context.Background(), "  ", false); err == nil {
		t.Fatal("expected error for empty base domain")
	}
}

func TestSortedResultsOrdersByHost(t *testing.T) {
	rows := SortedResults(map[string]string{
		"www.example.com":  "1.1.1.1",
		"api.example.com":  "2.2.2.2",
		"mail.example.com": types.Unresolved,
	})
	want := []string{"api.example.com", "mail.example.com", "www.example.com"}
	for i, host := range want {
		if rows[i].Host != host {
			t.Fatalf("expected order %v, got %v", want, rows)
		}
	}
	if rows[1].Resolved() {
		t.Fatal("mail should report unresolved")
	}
}

func TestGroupByIPOmitsUnresolved(t *testing.T) {
	grouped := GroupByIP(map[string]string{
		"www.example.com":  "1.1.1.1",
		"api.example.com":  "1.1.1.1",
		"mail.example.com": types.Unresolved,
	})
	hosts, ok := grouped["1.1.1.1"]
	if !ok || len(hosts) != 2 {
		t.Fatalf("expected two hosts behind 1.1.1.1, got %v", grouped)
	}
	if hosts[0] != "api.example.com" || hosts[1] != "www.example.com" {
		t.Fatalf("expected sorted hosts, got %v", hosts)
	}
	if len(grouped) != 1 {
		t.Fatalf("unresolved entries must not group, got %v", grouped)
	}
}

func TestLoadWordlistSkipsCommentsAndBlanks(t *testing.T) {
	path := writeWordlist(t, "# comment\nwww\n\n  api  \n")
	words, err := LoadWordlist(path)
	if err != nil {
		t.Fatalf("load wordlist: %v", err)
	}
	if len(words) != 2 || words[0] != "www" || words[1] != "api" {
		t.Fatalf("unexpected words %v", words)
	}
}

func TestLoadWordlistDefaultsToEmbedded(t *testing.T) {
	words, err := LoadWordlist("")
	if err != nil {
		t.Fatalf("load embedded wordlist: %v", err)
	}
	if len(words) == 0 {
		t.Fatal("embedded wordlist should not be empty")
	}
	found := false
	for _, w := range words {
		if w == "www" {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("embedded wordlist should contain www")
	}
}
