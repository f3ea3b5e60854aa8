// Package grouper clusters content records into near-duplicate groups using
// pairwise fuzzy text similarity against each group's representative.
package grouper

import (
	"strings"
	"sync"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/mitchwxyz/DomainTools/pkg/types"
)

// DefaultThreshold is the similarity score a record must reach against a
// group's representative to join that group.
const DefaultThreshold = 85

// Group is an ordered set of records sharing high textual similarity. The
// representative is the first record inserted and is never replaced; every
// member scored at least the threshold against it at insertion time. Members
// are therefore representative-similar, not guaranteed pairwise-similar.
type Group struct {
	Representative types.ContentRecord
	Members        []types.ContentRecord
}

// Grouper accumulates groups with first-fit assignment: an incoming record
// joins the first group (in creation order) whose representative it matches,
// or founds a new group. Insertions are serialized, so concurrent callers
// cannot create two groups for the same content.
type Grouper struct {
	mu        sync.Mutex
	threshold int
	groups    []*Group
}

// New builds a grouper with the given similarity threshold in [0,100].
// Out-of-range values fall back to DefaultThreshold.
func New(threshold int) *Grouper {
	if threshold < 0 || threshold > 100 {
		threshold = DefaultThreshold
	}
	return &Grouper{threshold: threshold}
}

// Add places the record into the first matching group, creating a new group
// with the record as representative when none matches.
func (g *Grouper) Add(record types.ContentRecord) {
	text := strings.ToLower(record.Text)

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, group := range g.groups {
		reference := strings.ToLower(group.Representative.Text)
		if fuzzy.Ratio(text, reference) >= g.threshold {
			group.Members = append(group.Members, record)
			return
		}
	}
	g.groups = append(g.groups, &Group{
		Representative: record,
		Members:        []types.ContentRecord{record},
	})
}

// Groups returns the accumulated groups in creation order.
func (g *Grouper) Groups() []Group {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Group, len(g.groups))
	for i, group := range g.groups {
		members := make([]types.ContentRecord, len(group.Members))
		copy(members, group.Members)
		out[i] = Group{Representative: group.Representative, Members: members}
	}
	return out
}

// Similarity scores two texts in [0,100] after lower-casing, the same metric
// Add uses against representatives.
func Similarity(a, b string) int {
	return fuzzy.Ratio(strings.ToLower(a), strings.ToLower(b))
}

// AverageSimilarity computes the mean pairwise similarity among a group's
// members. Groups with fewer than two members score 100.
func AverageSimilarity(g Group) float64 {
	n := len(g.Members)
	if n < 2 {
		return 100
	}
	total := 0
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			total += Similarity(g.Members[i].Text, g.Members[j].Text)
			pairs++
		}
	}
	return float64(total) / float64(pairs)
}
