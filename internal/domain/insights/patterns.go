package insights

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/statement"
	"github.com/FACorreiaa/mpesa-analyzer/pkg/money"
)

// Transaction cost categories reported as charges.
var ChargeCategories = []string{"Charges (Till)", "Charges (Send Money)", "Charges (Paybill)"}

// Savings categories.
const (
	CategorySavingsDeposit    = "M-Shwari Deposit"
	CategorySavingsWithdrawal = "M-Shwari Withdrawal"
)

// ChargeBucket is the total of one charge category in one month.
type ChargeBucket struct {
	Month    string       `json:"month"`
	Category string       `json:"category"`
	Amount   *money.Money `json:"amount"`
}

// HeatCell is the amount moved in one weekday and hour slot. Weekday is Mon..Sun.
type HeatCell struct {
	Weekday string       `json:"weekday"`
	Hour    int          `json:"hour"`
	Amount  *money.Money `json:"amount"`
}

// BalancePoint is the balance printed on one transaction.
type BalancePoint struct {
	Time    time.Time       `json:"time"`
	Balance decimal.Decimal `json:"balance"`
}

// CumulativePoint holds running totals of money received and spent.
type CumulativePoint struct {
	Time      time.Time    `json:"time"`
	PaidIn    *money.Money `json:"paid_in"`
	Withdrawn *money.Money `json:"withdrawn"`
}

// SavingsKind tells deposits from withdrawals in a savings series.
type SavingsKind string

const (
	SavingsDeposit    SavingsKind = "deposit"
	SavingsWithdrawal SavingsKind = "withdrawal"
)

// SavingsPoint is one M-Shwari movement.
type SavingsPoint struct {
	Time   time.Time    `json:"time"`
	Kind   SavingsKind  `json:"kind"`
	Amount *money.Money `json:"amount"`
}

var weekdays = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// weekdayIndex numbers days from Monday.
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func isCharge(category string) bool {
	for _, c := range ChargeCategories {
		if c == category {
			return true
		}
	}
	return false
}

func chargesByMonth(outgoing statement.SubLedger) []ChargeBucket {
	type key struct{ month, category string }
	totals := make(map[key]decimal.Decimal)
	for _, tx := range outgoing.Transactions {
		if tx.CompletionTime.IsZero() || !isCharge(tx.Category) {
			continue
		}
		k := key{PeriodMonthly.Key(tx.CompletionTime), tx.Category}
		totals[k] = totals[k].Add(amountOf(tx, statement.DirectionOutgoing))
	}

	out := make([]ChargeBucket, 0, len(totals))
	for k, v := range totals {
		out = append(out, ChargeBucket{Month: k.month, Category: k.category, Amount: money.KESFromDecimal(v)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// heatmap sums amounts per weekday and hour. Empty slots are omitted.
func heatmap(sub statement.SubLedger) []HeatCell {
	var grid [7][24]decimal.Decimal
	var seen [7][24]bool
	for _, tx := range sub.Transactions {
		if tx.CompletionTime.IsZero() {
			continue
		}
		d, h := weekdayIndex(tx.CompletionTime), tx.CompletionTime.Hour()
		grid[d][h] = grid[d][h].Add(amountOf(tx, sub.Direction))
		seen[d][h] = true
	}

	var out []HeatCell
	for d := range grid {
		for h := range grid[d] {
			if !seen[d][h] {
				continue
			}
			out = append(out, HeatCell{Weekday: weekdays[d], Hour: h, Amount: money.KESFromDecimal(grid[d][h])})
		}
	}
	return out
}

// balanceSeries lists printed balances in completion time order.
func balanceSeries(ledger *statement.Ledger) []BalancePoint {
	if ledger == nil {
		return nil
	}
	var out []BalancePoint
	for _, tx := range ledger.Transactions {
		if tx.CompletionTime.IsZero() || !tx.Balance.Valid {
			continue
		}
		out = append(out, BalancePoint{Time: tx.CompletionTime, Balance: tx.Balance.Decimal})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// cumulative merges both sub-ledgers in time order and keeps running totals, with
// withdrawals counted as positive spending.
func cumulative(incoming, outgoing statement.SubLedger) []CumulativePoint {
	type event struct {
		at  time.Time
		in  decimal.Decimal
		out decimal.Decimal
	}
	var events []event
	for _, tx := range incoming.Transactions {
		if !tx.CompletionTime.IsZero() {
			events = append(events, event{at: tx.CompletionTime, in: amountOf(tx, statement.DirectionIncoming)})
		}
	}
	for _, tx := range outgoing.Transactions {
		if !tx.CompletionTime.IsZero() {
			events = append(events, event{at: tx.CompletionTime, out: amountOf(tx, statement.DirectionOutgoing)})
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].at.Before(events[j].at) })

	out := make([]CumulativePoint, len(events))
	in, spent := decimal.Zero, decimal.Zero
	for i, e := range events {
		in = in.Add(e.in)
		spent = spent.Add(e.out)
		out[i] = CumulativePoint{Time: e.at, PaidIn: money.KESFromDecimal(in), Withdrawn: money.KESFromDecimal(spent)}
	}
	return out
}

// savings lists M-Shwari deposits (money leaving M-PESA) and withdrawals (money
// coming back) in time order.
func savings(incoming, outgoing statement.SubLedger) []SavingsPoint {
	var out []SavingsPoint
	for _, tx := range outgoing.Transactions {
		if tx.Category == CategorySavingsDeposit && !tx.CompletionTime.IsZero() {
			out = append(out, SavingsPoint{
				Time:   tx.CompletionTime,
				Kind:   SavingsDeposit,
				Amount: money.KESFromDecimal(amountOf(tx, statement.DirectionOutgoing)),
			})
		}
	}
	for _, tx := range incoming.Transactions {
		if tx.Category == CategorySavingsWithdrawal && !tx.CompletionTime.IsZero() {
			out = append(out, SavingsPoint{
				Time:   tx.CompletionTime,
				Kind:   SavingsWithdrawal,
				Amount: money.KESFromDecimal(amountOf(tx, statement.DirectionIncoming)),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}
