// Package linker resolves company mentions in notice text to known job
// records using token-set fuzzy matching.
package linker

import (
	"sort"
	"strings"
)

// DefaultThreshold is the minimum score (exclusive) for a match to be
// accepted.
const DefaultThreshold = 80

// Candidate is a known entity the linker can resolve mentions to.
type Candidate struct {
	// Key is the stable identifier used for deterministic tie-breaking.
	Key string
	// DisplayName is the text the mention is scored against.
	DisplayName string
}

// Match is an accepted link between a mention and a candidate.
type Match struct {
	Candidate Candidate
	Score     int
	Mention   string
}

// Linker scores mentions against a fixed candidate set.
type Linker struct {
	candidates []Candidate
	threshold  int
}

// New builds a linker over the given candidates. A non-positive threshold
// falls back to DefaultThreshold.
func New(candidates []Candidate, threshold int) *Linker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Linker{candidates: candidates, threshold: threshold}
}

// Best returns the highest-scoring candidate across all mentions, or ok=false
// when no candidate clears the threshold. Score ties break on the
// lexicographically smaller candidate key so reruns link identically.
func (l *Linker) Best(mentions []string) (Match, bool) {
	var best Match
	found := false
	for _, mention := range mentions {
		if strings.TrimSpace(mention) == "" {
			continue
		}
		for _, cand := range l.candidates {
			score := TokenSetRatio(mention, cand.DisplayName)
			if score <= l.threshold {
				continue
			}
			if !found || score > best.Score ||
				(score == best.Score && cand.Key < best.Candidate.Key) {
				best = Match{Candidate: cand, Score: score, Mention: mention}
				found = true
			}
		}
	}
	return best, found
}

// TokenSetRatio scores two strings 0-100 by comparing their token sets:
// the shared-token core against each core-plus-remainder combination, taking
// the best ratio. Word order and duplicate tokens do not affect the score.
func TokenSetRatio(a, b string) int {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var shared, onlyA, onlyB []string
	for tok := range ta {
		if tb[tok] {
			shared = append(shared, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range tb {
		if !ta[tok] {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(shared)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	core := strings.Join(shared, " ")
	sa := strings.TrimSpace(core + " " + strings.Join(onlyA, " "))
	sb := strings.TrimSpace(core + " " + strings.Join(onlyB, " "))

	best := ratio(core, sa)
	if r := ratio(core, sb); r > best {
		best = r
	}
	if r := ratio(sa, sb); r > best {
		best = r
	}
	return best
}

// ratio is a similarity score 0-100 based on the longest common subsequence
// of the two strings.
func ratio(a, b string) int {
	if a == b {
		return 100
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ra := []rune(a)
	rb := []rune(b)
	lcs := lcsLength(ra, rb)
	return 200 * lcs / (len(ra) + len(rb))
}

func lcsLength(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(normalize(s)) {
		set[tok] = true
	}
	return set
}

func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}
