package insights

import (
	"sort"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/categorization"
	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/statement"
)

// similarDetails is the fuzzy score at which two uncategorized details share a group.
const similarDetails = 80

// DetailGroup is a cluster of near-identical details no rule matched, a hint for the
// next rule to add.
type DetailGroup struct {
	Example  string `json:"example"`
	Count    int    `json:"count"`
	Variants int    `json:"variants"`
}

// uncategorizedGroups clusters the details of Uncategorized transactions, largest
// group first.
func uncategorizedGroups(ledger *statement.Ledger, n int) []DetailGroup {
	counts := make(map[string]int)
	for _, tx := range ledger.Transactions {
		if tx.Category == categorization.Uncategorized {
			counts[tx.Details]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	distinct := make([]string, 0, len(counts))
	for d := range counts {
		distinct = append(distinct, d)
	}
	sort.Strings(distinct)

	groups := make([]DetailGroup, 0)
	for example, members := range categorization.GroupSimilar(distinct, similarDetails) {
		g := DetailGroup{Example: example, Variants: len(members)}
		for _, m := range members {
			g.Count += counts[m]
		}
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Example < groups[j].Example
	})
	return head(groups, n)
}
