// Package insights builds the statement report: totals, category rankings, volume over
// time, counterparties, charges, activity heatmaps, balance and savings series, and
// spending archetypes.
package insights

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/import/normalizer"
	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/statement"
	"github.com/FACorreiaa/mpesa-analyzer/pkg/money"
)

// Period is the bucket size of a volume series.
type Period string

const (
	PeriodDaily    Period = "Daily"
	PeriodMonthly  Period = "Monthly"
	PeriodHalfYear Period = "6 Months"
	PeriodYearly   Period = "Yearly"
)

// ParsePeriod accepts the display names and their lowercase short forms.
func ParsePeriod(s string) (Period, error) {
	switch s {
	case "Daily", "daily", "day":
		return PeriodDaily, nil
	case "Monthly", "monthly", "month":
		return PeriodMonthly, nil
	case "6 Months", "half", "halfyear", "6m":
		return PeriodHalfYear, nil
	case "Yearly", "yearly", "year":
		return PeriodYearly, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Key returns the bucket t falls in, e.g. "2024-03-07", "2024-03", "2024-1H", "2024".
func (p Period) Key(t time.Time) string {
	switch p {
	case PeriodMonthly:
		return t.Format("2006-01")
	case PeriodHalfYear:
		return fmt.Sprintf("%d-%dH", t.Year(), (int(t.Month())-1)/6+1)
	case PeriodYearly:
		return t.Format("2006")
	default:
		return t.Format("2006-01-02")
	}
}

// Overview holds the headline totals. TotalOutgoing is an absolute value.
type Overview struct {
	TotalTransactions int          `json:"total_transactions"`
	IncomingCount     int          `json:"incoming_count"`
	OutgoingCount     int          `json:"outgoing_count"`
	Excluded          int          `json:"excluded"`
	TotalIncoming     *money.Money `json:"total_incoming"`
	TotalOutgoing     *money.Money `json:"total_outgoing"`
	Net               *money.Money `json:"net"`
}

// CategoryStat is one row of a category ranking.
type CategoryStat struct {
	Category string       `json:"category"`
	Count    int          `json:"count"`
	Amount   *money.Money `json:"amount"`
}

// PeriodCount is the number of transactions in one bucket.
type PeriodCount struct {
	Period string `json:"period"`
	Count  int    `json:"count"`
}

// Report is everything the statement report shows.
type Report struct {
	Overview Overview `json:"overview"`

	TopIncomingByVolume []CategoryStat `json:"top_incoming_by_volume"`
	TopOutgoingByVolume []CategoryStat `json:"top_outgoing_by_volume"`
	TopIncomingByValue  []CategoryStat `json:"top_incoming_by_value"`
	TopOutgoingByValue  []CategoryStat `json:"top_outgoing_by_value"`

	Period         Period        `json:"period"`
	IncomingVolume []PeriodCount `json:"incoming_volume"`
	OutgoingVolume []PeriodCount `json:"outgoing_volume"`

	TopSenders         []CounterpartyStat `json:"top_senders"`
	TopRecipients      []CounterpartyStat `json:"top_recipients"`
	FrequentSenders    []CounterpartyStat `json:"frequent_senders"`
	FrequentRecipients []CounterpartyStat `json:"frequent_recipients"`

	Charges         []ChargeBucket    `json:"charges"`
	IncomingHeatmap []HeatCell        `json:"incoming_heatmap"`
	OutgoingHeatmap []HeatCell        `json:"outgoing_heatmap"`
	Balance         []BalancePoint    `json:"balance"`
	Cumulative      []CumulativePoint `json:"cumulative"`
	Savings         []SavingsPoint    `json:"savings"`

	Archetypes    []Archetype   `json:"archetypes"`
	Highlights    []string      `json:"highlights"`
	Uncategorized []DetailGroup `json:"uncategorized,omitempty"`
}

// Options tune report generation.
type Options struct {
	TopCategories     int
	TopCounterparties int
	Period            Period
}

// DefaultOptions returns the report defaults: top 5 categories, top 10 counterparties,
// daily volume.
func DefaultOptions() Options {
	return Options{TopCategories: 5, TopCounterparties: 10, Period: PeriodDaily}
}

// Generator builds reports from partitioned ledgers.
type Generator struct {
	opts      Options
	extractor *normalizer.CounterpartyExtractor
}

// NewGenerator creates a report generator. Zero option fields take their defaults.
func NewGenerator(opts Options) *Generator {
	def := DefaultOptions()
	if opts.TopCategories <= 0 {
		opts.TopCategories = def.TopCategories
	}
	if opts.TopCounterparties <= 0 {
		opts.TopCounterparties = def.TopCounterparties
	}
	if opts.Period == "" {
		opts.Period = def.Period
	}
	return &Generator{opts: opts, extractor: normalizer.NewCounterpartyExtractor()}
}

// Build computes the report of one statement. ledger is the full categorized ledger;
// incoming and outgoing are its partition.
func (g *Generator) Build(ledger *statement.Ledger, incoming, outgoing statement.SubLedger, excluded int) *Report {
	r := &Report{
		Overview: overview(ledger, incoming, outgoing, excluded),
		Period:   g.opts.Period,
	}

	r.TopIncomingByVolume = topByVolume(incoming, g.opts.TopCategories)
	r.TopOutgoingByVolume = topByVolume(outgoing, g.opts.TopCategories)
	r.TopIncomingByValue = topByValue(incoming, g.opts.TopCategories)
	r.TopOutgoingByValue = topByValue(outgoing, g.opts.TopCategories)

	r.IncomingVolume = VolumeByPeriod(incoming.Transactions, g.opts.Period)
	r.OutgoingVolume = VolumeByPeriod(outgoing.Transactions, g.opts.Period)

	senders := g.counterparties(incoming, normalizer.TransferReceive)
	recipients := g.counterparties(outgoing, normalizer.TransferSend)
	r.TopSenders = byAmount(senders, g.opts.TopCounterparties)
	r.TopRecipients = byAmount(recipients, g.opts.TopCounterparties)
	r.FrequentSenders = byFrequency(senders, g.opts.TopCounterparties)
	r.FrequentRecipients = byFrequency(recipients, g.opts.TopCounterparties)

	r.Charges = chargesByMonth(outgoing)
	r.IncomingHeatmap = heatmap(incoming)
	r.OutgoingHeatmap = heatmap(outgoing)
	r.Balance = balanceSeries(ledger)
	r.Cumulative = cumulative(incoming, outgoing)
	r.Savings = savings(incoming, outgoing)

	r.Archetypes = DetectArchetypes(StatsFrom(outgoing))
	r.Highlights = highlights(r)
	r.Uncategorized = uncategorizedGroups(ledger, g.opts.TopCounterparties)
	return r
}

func overview(ledger *statement.Ledger, incoming, outgoing statement.SubLedger, excluded int) Overview {
	in := sumAmounts(incoming.Transactions, statement.DirectionIncoming)
	out := sumAmounts(outgoing.Transactions, statement.DirectionOutgoing)
	return Overview{
		TotalTransactions: ledger.Len(),
		IncomingCount:     incoming.Len(),
		OutgoingCount:     outgoing.Len(),
		Excluded:          excluded,
		TotalIncoming:     money.KESFromDecimal(in),
		TotalOutgoing:     money.KESFromDecimal(out),
		Net:               money.KESFromDecimal(in.Sub(out)),
	}
}

// amountOf returns the side's amount of tx as a non-negative value. Withdrawals are
// printed negative; reporting flips them here and nowhere else.
func amountOf(tx statement.Transaction, dir statement.Direction) decimal.Decimal {
	if dir == statement.DirectionOutgoing {
		return tx.Withdrawn.Decimal.Abs()
	}
	return tx.PaidIn.Decimal
}

func sumAmounts(txs []statement.Transaction, dir statement.Direction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(amountOf(tx, dir))
	}
	return total
}

type categoryTotal struct {
	count  int
	amount decimal.Decimal
}

func categoryTotals(sub statement.SubLedger) map[string]*categoryTotal {
	totals := make(map[string]*categoryTotal)
	for _, tx := range sub.Transactions {
		t, ok := totals[tx.Category]
		if !ok {
			t = &categoryTotal{}
			totals[tx.Category] = t
		}
		t.count++
		t.amount = t.amount.Add(amountOf(tx, sub.Direction))
	}
	return totals
}

func categoryStats(sub statement.SubLedger) []CategoryStat {
	totals := categoryTotals(sub)
	stats := make([]CategoryStat, 0, len(totals))
	for name, t := range totals {
		stats = append(stats, CategoryStat{Category: name, Count: t.count, Amount: money.KESFromDecimal(t.amount)})
	}
	return stats
}

func topByVolume(sub statement.SubLedger, n int) []CategoryStat {
	stats := categoryStats(sub)
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Category < stats[j].Category
	})
	return head(stats, n)
}

func topByValue(sub statement.SubLedger, n int) []CategoryStat {
	stats := categoryStats(sub)
	sort.Slice(stats, func(i, j int) bool {
		if c := stats[i].Amount.Compare(stats[j].Amount); c != 0 {
			return c > 0
		}
		return stats[i].Category < stats[j].Category
	})
	return head(stats, n)
}

// VolumeByPeriod counts transactions per bucket in chronological order. Transactions
// whose completion time did not parse are skipped.
func VolumeByPeriod(txs []statement.Transaction, p Period) []PeriodCount {
	counts := make(map[string]int)
	for _, tx := range txs {
		if tx.CompletionTime.IsZero() {
			continue
		}
		counts[p.Key(tx.CompletionTime)]++
	}

	out := make([]PeriodCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, PeriodCount{Period: k, Count: c})
	}
	// Keys of one period sort lexically in time order.
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
