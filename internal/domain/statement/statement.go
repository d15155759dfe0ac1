// Package statement holds the M-PESA statement data model shared by the extraction,
// normalization, categorization and reporting stages, plus the metadata extractor and
// the ledger partitioner.
package statement

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Canonical column names of a normalized M-PESA ledger.
const (
	ColumnReceiptNo         = "Receipt No."
	ColumnCompletionTime    = "Completion Time"
	ColumnDetails           = "Details"
	ColumnTransactionStatus = "Transaction Status"
	ColumnPaidIn            = "Paid In"
	ColumnWithdrawn         = "Withdrawn"
	ColumnBalance           = "Balance"

	// ColumnVerificationCode is an extraction artifact: trailing page content that
	// spills into the last table as an extra column.
	ColumnVerificationCode = "Statement Verification Code"
)

// CompletionTimeLayout is how statements print the completion time column.
const CompletionTimeLayout = "2006-01-02 15:04:05"

// ErrNoPages is returned when a document has no pages to read.
var ErrNoPages = errors.New("statement has no pages")

// Document is the capability the pipeline needs from a PDF library.
// Page indices are zero-based.
type Document interface {
	PageCount() int
	// PageText returns nil when the page carries no extractable text.
	PageText(i int) (*string, error)
	PageTables(i int) ([]RawTable, error)
}

// RawTable is a table as extracted from a page: rows of cells, header first.
// A nil cell means the extractor produced no value for that position.
type RawTable [][]*string

// Header returns the header row, or nil for an empty table.
func (t RawTable) Header() []*string {
	if len(t) == 0 {
		return nil
	}
	return t[0]
}

// RawPage is one document page as produced by the extractor.
type RawPage struct {
	Index  int
	Text   *string
	Tables []RawTable
}

// ReadPages pulls text and tables for every page of doc, in page order.
func ReadPages(doc Document) ([]RawPage, error) {
	n := doc.PageCount()
	if n <= 0 {
		return nil, ErrNoPages
	}

	pages := make([]RawPage, 0, n)
	for i := 0; i < n; i++ {
		text, err := doc.PageText(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read text of page %d: %w", i+1, err)
		}
		tables, err := doc.PageTables(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read tables of page %d: %w", i+1, err)
		}
		pages = append(pages, RawPage{Index: i, Text: text, Tables: tables})
	}
	return pages, nil
}

// SummaryTable is the first table of the first page. It is reported as-is and never
// merged into the ledger.
type SummaryTable struct {
	Header []string    `json:"header"`
	Rows   [][]*string `json:"rows"`
}

// Field is a pass-through ledger column the pipeline does not interpret.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Transaction is one normalized ledger row.
type Transaction struct {
	ReceiptNo string `json:"receipt_no,omitempty"`
	// CompletionTime is zero when RawCompletionTime could not be parsed.
	CompletionTime    time.Time           `json:"completion_time"`
	RawCompletionTime string              `json:"raw_completion_time"`
	Details           string              `json:"details"`
	TransactionStatus *string             `json:"transaction_status,omitempty"`
	PaidIn            decimal.NullDecimal `json:"paid_in"`
	Withdrawn         decimal.NullDecimal `json:"withdrawn"`
	Balance           decimal.NullDecimal `json:"balance"`
	Category          string              `json:"category"`
	Extra             []Field             `json:"extra,omitempty"`
}

// Ledger is the unified, ordered transaction list of one statement together with the
// column set it was built from.
type Ledger struct {
	Columns      []string      `json:"columns"`
	Transactions []Transaction `json:"transactions"`
}

// Len returns the number of transactions in the ledger.
func (l *Ledger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Transactions)
}

// HasColumn reports whether name is part of the ledger schema.
func (l *Ledger) HasColumn(name string) bool {
	for _, c := range l.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Direction identifies a sub-ledger.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// SubLedger is one side of a partitioned ledger.
type SubLedger struct {
	Direction    Direction     `json:"direction"`
	Columns      []string      `json:"columns"`
	Transactions []Transaction `json:"transactions"`
}

// Len returns the number of transactions in the sub-ledger.
func (s SubLedger) Len() int {
	return len(s.Transactions)
}
