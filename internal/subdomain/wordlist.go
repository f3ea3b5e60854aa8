package subdomain

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed wordlists/subdomains.txt
var defaultWordlist string

// LoadWordlist reads newline-delimited candidate prefixes from path, or the
// bundled default list when path is empty.
func LoadWordlist(path string) ([]string, error) {
	raw := defaultWordlist
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read wordlist: %w", err)
		}
		raw = string(data)
	}

	var words []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("wordlist is empty")
	}
	return words, nil
}
