package categorization

import (
	"strings"
	"sync"
	"unicode"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/statement"
)

// Categorizer assigns a category to transaction details using an ordered rule table.
// Rules are tried in order and the first whose pattern occurs in the cleaned details
// wins. It is safe for concurrent use and can be rebuilt with new rules.
type Categorizer struct {
	rules []compiledRule
	mu    sync.RWMutex
}

type compiledRule struct {
	Rule
	pattern       string // lowercased Pattern
	paybillTarget bool   // category names a paybill, eligible for the M-Kopa override
}

// NewCategorizer builds a categorizer over rules. A nil or empty table makes every
// transaction Uncategorized.
func NewCategorizer(rules []Rule) *Categorizer {
	c := &Categorizer{}
	c.Build(rules)
	return c
}

// NewDefaultCategorizer builds a categorizer over the built-in table.
func NewDefaultCategorizer() *Categorizer {
	return NewCategorizer(defaultRules)
}

// Build replaces the rule table. Rules with an empty pattern are skipped.
func (c *Categorizer) Build(rules []Rule) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		pattern := strings.ToLower(r.Pattern)
		if pattern == "" {
			continue
		}
		compiled = append(compiled, compiledRule{
			Rule:          r,
			pattern:       pattern,
			paybillTarget: strings.Contains(strings.ToLower(r.Category), "paybill"),
		})
	}

	c.mu.Lock()
	c.rules = compiled
	c.mu.Unlock()
}

// Rules returns the active table in evaluation order.
func (c *Categorizer) Rules() []Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = r.Rule
	}
	return out
}

// Categorize returns the category of raw transaction details.
func (c *Categorizer) Categorize(details string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.categorize(Clean(details))
}

func (c *Categorizer) categorize(cleaned string) string {
	for _, r := range c.rules {
		if !strings.Contains(cleaned, r.pattern) {
			continue
		}
		if r.paybillTarget && strings.Contains(cleaned, "m-kopa") {
			return MKopaCategory
		}
		return r.Category
	}
	return Uncategorized
}

// CategorizeLedger sets Category on every transaction of ledger and returns how many
// ended up Uncategorized.
func (c *Categorizer) CategorizeLedger(ledger *statement.Ledger) int {
	if ledger == nil {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	uncategorized := 0
	for i := range ledger.Transactions {
		tx := &ledger.Transactions[i]
		tx.Category = c.categorize(Clean(tx.Details))
		if tx.Category == Uncategorized {
			uncategorized++
		}
	}
	return uncategorized
}

// RuleCount returns the number of active rules.
func (c *Categorizer) RuleCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rules)
}

// Clean canonicalizes details for matching. A line break that follows whitespace is
// removed, any other line break becomes a space, carriage returns are dropped and the
// result is lowercased.
func Clean(details string) string {
	var b strings.Builder
	b.Grow(len(details))

	prevSpace := false
	for _, r := range details {
		switch {
		case r == '\n' && prevSpace:
		case r == '\n':
			b.WriteByte(' ')
		case r == '\r':
		default:
			b.WriteRune(r)
		}
		prevSpace = unicode.IsSpace(r)
	}

	return strings.ToLower(b.String())
}
