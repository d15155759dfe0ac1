package categorization

import (
	"sort"
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// Shadow reports a rule that can never win because an earlier rule's pattern is a
// substring of its own: any details containing Rule.Pattern also contain
// By.Pattern, and By is tried first.
type Shadow struct {
	Index   int  `json:"index"`
	Rule    Rule `json:"rule"`
	ByIndex int  `json:"by_index"`
	By      Rule `json:"by"`
	// SameCategory is set when both rules assign the same category, so the
	// shadowed rule is redundant rather than wrong.
	SameCategory bool `json:"same_category"`
}

// Auditor finds ordering problems in a rule table with a single Aho-Corasick
// automaton over all patterns.
type Auditor struct {
	rules     []Rule
	positions []int // index of each rule in the table given to NewAuditor
	patterns  []string
	matcher   *ahocorasick.Matcher
	mu        sync.Mutex // Matcher keeps per-match state and is not safe for concurrent use
}

// NewAuditor compiles rules. Rules with an empty pattern are ignored.
func NewAuditor(rules []Rule) *Auditor {
	a := &Auditor{}
	for pos, r := range rules {
		p := strings.ToLower(r.Pattern)
		if p == "" {
			continue
		}
		a.rules = append(a.rules, r)
		a.positions = append(a.positions, pos)
		a.patterns = append(a.patterns, p)
	}
	if len(a.patterns) > 0 {
		a.matcher = ahocorasick.NewStringMatcher(a.patterns)
	}
	return a
}

// Shadowed lists every rule hidden by an earlier one, ordered by rule position.
// Each shadowed rule is reported once, against the earliest rule that hides it.
func (a *Auditor) Shadowed() []Shadow {
	if a.matcher == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var out []Shadow
	for j, p := range a.patterns {
		hits := a.matcher.Match([]byte(p))
		if len(hits) == 0 {
			continue
		}
		sort.Ints(hits)

		for _, i := range hits {
			if i >= j {
				break
			}
			out = append(out, Shadow{
				Index:        a.positions[j],
				Rule:         a.rules[j],
				ByIndex:      a.positions[i],
				By:           a.rules[i],
				SameCategory: a.rules[i].Category == a.rules[j].Category,
			})
			break
		}
	}
	return out
}

// RuleMatch is a rule whose pattern occurs in some details.
type RuleMatch struct {
	Index int  `json:"index"`
	Rule  Rule `json:"rule"`
}

// Matching returns every rule whose pattern occurs in the cleaned details, in table
// order. The first entry is the rule Categorize applies, before the M-Kopa override.
func (a *Auditor) Matching(details string) []RuleMatch {
	if a.matcher == nil {
		return nil
	}

	a.mu.Lock()
	hits := a.matcher.Match([]byte(Clean(details)))
	a.mu.Unlock()

	sort.Ints(hits)
	out := make([]RuleMatch, len(hits))
	for k, i := range hits {
		out[k] = RuleMatch{Index: a.positions[i], Rule: a.rules[i]}
	}
	return out
}

// FindShadowedRules audits rules for entries that can never match.
func FindShadowedRules(rules []Rule) []Shadow {
	return NewAuditor(rules).Shadowed()
}
