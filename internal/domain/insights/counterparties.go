package insights

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/import/normalizer"
	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/statement"
	"github.com/FACorreiaa/mpesa-analyzer/pkg/money"
)

// CounterpartyStat aggregates the transfers with one sender or recipient.
type CounterpartyStat struct {
	Name    string       `json:"name"`
	Count   int          `json:"count"`
	Total   *money.Money `json:"total"`
	Average *money.Money `json:"average"`
}

type counterpartyTotal struct {
	name   string
	count  int
	amount decimal.Decimal
}

// counterparties groups the person-to-person transfers of kind in sub by extracted
// name. Transfers without a masked number and name are left out.
func (g *Generator) counterparties(sub statement.SubLedger, kind normalizer.TransferKind) []counterpartyTotal {
	byName := make(map[string]*counterpartyTotal)
	for _, tx := range sub.Transactions {
		info := g.extractor.Extract(tx.Details)
		if info.Kind != kind || info.Name == "" {
			continue
		}
		t, ok := byName[info.Name]
		if !ok {
			t = &counterpartyTotal{name: info.Name}
			byName[info.Name] = t
		}
		t.count++
		t.amount = t.amount.Add(amountOf(tx, sub.Direction))
	}

	out := make([]counterpartyTotal, 0, len(byName))
	for _, t := range byName {
		out = append(out, *t)
	}
	return out
}

func (t counterpartyTotal) stat() CounterpartyStat {
	avg := decimal.Zero
	if t.count > 0 {
		avg = t.amount.Div(decimal.NewFromInt(int64(t.count)))
	}
	return CounterpartyStat{
		Name:    t.name,
		Count:   t.count,
		Total:   money.KESFromDecimal(t.amount),
		Average: money.KESFromDecimal(avg),
	}
}

func byAmount(totals []counterpartyTotal, n int) []CounterpartyStat {
	sorted := append([]counterpartyTotal(nil), totals...)
	sort.Slice(sorted, func(i, j int) bool {
		if c := sorted[i].amount.Cmp(sorted[j].amount); c != 0 {
			return c > 0
		}
		return sorted[i].name < sorted[j].name
	})
	return toStats(head(sorted, n))
}

func byFrequency(totals []counterpartyTotal, n int) []CounterpartyStat {
	sorted := append([]counterpartyTotal(nil), totals...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].name < sorted[j].name
	})
	return toStats(head(sorted, n))
}

func toStats(totals []counterpartyTotal) []CounterpartyStat {
	out := make([]CounterpartyStat, len(totals))
	for i, t := range totals {
		out[i] = t.stat()
	}
	return out
}
