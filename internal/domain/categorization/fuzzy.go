package categorization

import (
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Suggestion is a rule that nearly matches some details.
type Suggestion struct {
	Rule     Rule `json:"rule"`
	Index    int  `json:"index"`
	Score    int  `json:"score"`    // 0-100, higher is closer
	Distance int  `json:"distance"` // Levenshtein distance between pattern and details
}

// Suggester ranks rules by similarity to details that no rule matched exactly. It
// catches spelling drift in statements such as "Customer Transfer Fuliza M Pesa".
type Suggester struct {
	rules []fuzzyRule
	mu    sync.RWMutex
}

type fuzzyRule struct {
	rule       Rule
	index      int
	normalized string
}

// NewSuggester builds a suggester over rules.
func NewSuggester(rules []Rule) *Suggester {
	s := &Suggester{}
	s.Build(rules)
	return s
}

// Build replaces the rule set.
func (s *Suggester) Build(rules []Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules = make([]fuzzyRule, 0, len(rules))
	for i, r := range rules {
		p := strings.ToLower(strings.TrimSpace(r.Pattern))
		if p == "" || p == strings.ToLower(Uncategorized) {
			continue
		}
		s.rules = append(s.rules, fuzzyRule{rule: r, index: i, normalized: p})
	}
}

// Suggest returns up to limit rules scoring at least threshold against details,
// best first. Ties keep table order.
func (s *Suggester) Suggest(details string, threshold, limit int) []Suggestion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.rules) == 0 {
		return nil
	}

	// Compare against the leading words only; counterparty names and account
	// numbers after the pattern would otherwise dominate the distance.
	cleaned := Clean(details)

	var out []Suggestion
	for _, fr := range s.rules {
		head := leadingWords(cleaned, strings.Count(fr.normalized, " ")+1)
		score := fuzzyScore(head, fr.normalized)
		if score < threshold {
			continue
		}
		out = append(out, Suggestion{
			Rule:     fr.rule,
			Index:    fr.index,
			Score:    score,
			Distance: levenshteinDistance(head, fr.normalized),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// GroupSimilar clusters details whose similarity reaches threshold. The first member
// of each group is its key.
func GroupSimilar(details []string, threshold int) map[string][]string {
	groups := make(map[string][]string)
	assigned := make([]bool, len(details))

	for i, d := range details {
		if assigned[i] {
			continue
		}
		group := []string{d}
		assigned[i] = true
		ci := Clean(d)

		for j := i + 1; j < len(details); j++ {
			if assigned[j] {
				continue
			}
			if fuzzyScore(ci, Clean(details[j])) >= threshold {
				group = append(group, details[j])
				assigned[j] = true
			}
		}
		groups[d] = group
	}
	return groups
}

func leadingWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}

// fuzzyScore is a 0-100 similarity combining containment, edit distance and
// subsequence rank.
func fuzzyScore(s1, s2 string) int {
	if s1 == s2 {
		return 100
	}
	if s1 == "" || s2 == "" {
		return 0
	}

	if strings.Contains(s1, s2) {
		return 75 + (25 * len(s2) / len(s1))
	}
	if strings.Contains(s2, s1) {
		return 75 + (25 * len(s1) / len(s2))
	}

	distance := levenshteinDistance(s1, s2)
	maxLen := max(len(s1), len(s2))
	levenshteinScore := 100 * (maxLen - distance) / maxLen

	rankScore := 0
	if rank := fuzzy.RankMatch(s2, s1); rank >= 0 && rank < len(s1) {
		rankScore = 60 - (rank * 40 / len(s1))
	}

	return max(levenshteinScore, rankScore)
}

func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}
