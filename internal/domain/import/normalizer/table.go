// Package normalizer turns extracted statement tables into a typed ledger and cleans
// counterparty names out of transaction details.
package normalizer

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/statement"
	"github.com/FACorreiaa/mpesa-analyzer/pkg/money"
)

// completionTimeLayouts are tried in order when reading the Completion Time column.
var completionTimeLayouts = []string{
	statement.CompletionTimeLayout,
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

// amountColumns hold amounts; an empty cell there means "no amount", not a broken row.
var amountColumns = map[string]bool{
	statement.ColumnPaidIn:    true,
	statement.ColumnWithdrawn: true,
	statement.ColumnBalance:   true,
}

// Stats counts what happened to the rows of one statement.
type Stats struct {
	TablesSeen          int `json:"tables_seen"`
	RowsSeen            int `json:"rows_seen"`
	RowsKept            int `json:"rows_kept"`
	RowsDropped         int `json:"rows_dropped"`
	RowsMisaligned      int `json:"rows_misaligned"`
	AmountParseFailures int `json:"amount_parse_failures"`
	TimeParseFailures   int `json:"time_parse_failures"`
}

// Result is the output of Normalize.
type Result struct {
	Summary *statement.SummaryTable
	Ledger  statement.Ledger
	Stats   Stats
}

// Normalizer builds ledgers from raw pages. The zero value reads times in UTC.
type Normalizer struct {
	loc *time.Location
}

// New returns a normalizer that reads completion times in loc.
func New(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

// Normalize builds a ledger from pages using UTC for completion times.
func Normalize(pages []statement.RawPage) Result {
	return New(time.UTC).Normalize(pages)
}

// Normalize captures the first table of the first page as the summary and merges
// every other table into one ledger, in page order then row order.
//
// Each table's first row is its header and its last header is renamed Balance. The
// first ledger table fixes the column set; columns of later tables are matched by
// position, and rows whose width differs are dropped as misaligned. A row with an
// absent cell, or an empty cell outside the amount columns, is dropped. A
// "Statement Verification Code" column is removed from the result.
func (n *Normalizer) Normalize(pages []statement.RawPage) Result {
	var (
		res    Result
		schema []string
	)

	for _, page := range pages {
		for ti, table := range page.Tables {
			if page.Index == 0 && ti == 0 && res.Summary == nil {
				res.Summary = summaryFrom(table)
				continue
			}
			if len(table) == 0 {
				continue
			}
			res.Stats.TablesSeen++

			header := renameLast(table.Header())
			if schema == nil {
				schema = header
			}

			for _, row := range table[1:] {
				res.Stats.RowsSeen++
				if len(row) != len(schema) {
					res.Stats.RowsMisaligned++
					res.Stats.RowsDropped++
					continue
				}
				if !complete(schema, row) {
					res.Stats.RowsDropped++
					continue
				}
				res.Ledger.Transactions = append(res.Ledger.Transactions, n.transaction(schema, row, &res.Stats))
				res.Stats.RowsKept++
			}
		}
	}

	res.Ledger.Columns = withoutColumn(schema, statement.ColumnVerificationCode)
	return res
}

func summaryFrom(table statement.RawTable) *statement.SummaryTable {
	s := &statement.SummaryTable{}
	if len(table) == 0 {
		return s
	}
	s.Header = make([]string, len(table[0]))
	for i, c := range table[0] {
		if c != nil {
			s.Header[i] = *c
		}
	}
	s.Rows = table[1:]
	return s
}

// renameLast returns the header as strings with its last entry replaced by Balance.
func renameLast(header []*string) []string {
	out := make([]string, len(header))
	for i, c := range header {
		if c != nil {
			out[i] = strings.TrimSpace(*c)
		}
	}
	if len(out) > 0 {
		out[len(out)-1] = statement.ColumnBalance
	}
	return out
}

func complete(schema []string, row []*string) bool {
	for i, c := range row {
		if c == nil {
			return false
		}
		if strings.TrimSpace(*c) == "" && !amountColumns[schema[i]] {
			return false
		}
	}
	return true
}

func (n *Normalizer) transaction(schema []string, row []*string, stats *Stats) statement.Transaction {
	var tx statement.Transaction

	for i, name := range schema {
		value := *row[i]
		switch name {
		case statement.ColumnReceiptNo:
			tx.ReceiptNo = strings.TrimSpace(value)
		case statement.ColumnCompletionTime:
			tx.RawCompletionTime = strings.TrimSpace(value)
			t, ok := n.parseTime(tx.RawCompletionTime)
			if !ok {
				stats.TimeParseFailures++
			}
			tx.CompletionTime = t
		case statement.ColumnDetails:
			tx.Details = value
		case statement.ColumnTransactionStatus:
			status := strings.TrimSpace(value)
			tx.TransactionStatus = &status
		case statement.ColumnPaidIn:
			tx.PaidIn = amount(value, stats)
		case statement.ColumnWithdrawn:
			tx.Withdrawn = amount(value, stats)
		case statement.ColumnBalance:
			tx.Balance = amount(value, stats)
		case statement.ColumnVerificationCode:
		default:
			tx.Extra = append(tx.Extra, statement.Field{Name: name, Value: value})
		}
	}
	return tx
}

// amount converts a cell; empty or unparsable cells are the missing marker.
func amount(cell string, stats *Stats) decimal.NullDecimal {
	if strings.TrimSpace(cell) == "" {
		return decimal.NullDecimal{}
	}
	d, err := money.ParseAmount(cell)
	if err != nil {
		stats.AmountParseFailures++
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func (n *Normalizer) parseTime(s string) (time.Time, bool) {
	return ParseCompletionTime(s, n.loc)
}

// ParseCompletionTime reads a Completion Time cell in loc (UTC when nil). The zero time
// and false are returned for text in no known layout.
func ParseCompletionTime(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range completionTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func withoutColumn(columns []string, drop string) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if c != drop {
			out = append(out, c)
		}
	}
	return out
}
