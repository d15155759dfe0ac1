package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/import/normalizer"
	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/statement"
	"github.com/FACorreiaa/mpesa-analyzer/pkg/money"
)

// ColumnCategory is appended to exported ledgers after the normalized columns.
const ColumnCategory = "Category"

// ParseError represents a parsing error for a specific row
type ParseError struct {
	Row     int
	Column  string
	Message string
	RawData string
}

func (e ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	return fmt.Sprintf("row %d, column %s: %s", e.Row, e.Column, e.Message)
}

// ReadResult contains the ledger read back from an export
type ReadResult struct {
	Ledger     statement.Ledger
	Errors     []ParseError
	TotalRows  int
	ParsedRows int
	// TimeParseFailures counts kept rows whose completion time did not parse.
	TimeParseFailures int
}

func (r *ReadResult) add(tx *statement.Transaction) {
	if tx.CompletionTime.IsZero() && tx.RawCompletionTime != "" {
		r.TimeParseFailures++
	}
	r.Ledger.Transactions = append(r.Ledger.Transactions, *tx)
	r.ParsedRows++
}

// WriteLedgerCSV writes the ledger as a flat CSV: one header row with the ledger columns
// plus Category, then one row per transaction. Missing amounts are empty cells.
func WriteLedgerCSV(w io.Writer, ledger *statement.Ledger) error {
	writer := gocsv.DefaultCSVWriter(w)

	header := append(append([]string{}, ledger.Columns...), ColumnCategory)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range ledger.Transactions {
		if err := writer.Write(ledgerRecord(header, &ledger.Transactions[i])); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

func ledgerRecord(header []string, tx *statement.Transaction) []string {
	record := make([]string, len(header))
	for i, col := range header {
		switch col {
		case statement.ColumnReceiptNo:
			record[i] = tx.ReceiptNo
		case statement.ColumnCompletionTime:
			record[i] = tx.RawCompletionTime
		case statement.ColumnDetails:
			record[i] = tx.Details
		case statement.ColumnTransactionStatus:
			if tx.TransactionStatus != nil {
				record[i] = *tx.TransactionStatus
			}
		case statement.ColumnPaidIn:
			record[i] = formatAmount(tx.PaidIn)
		case statement.ColumnWithdrawn:
			record[i] = formatAmount(tx.Withdrawn)
		case statement.ColumnBalance:
			record[i] = formatAmount(tx.Balance)
		case ColumnCategory:
			record[i] = tx.Category
		default:
			for _, f := range tx.Extra {
				if f.Name == col {
					record[i] = f.Value
					break
				}
			}
		}
	}
	return record
}

func formatAmount(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	// At least two places, never rounded.
	if d.Decimal.Exponent() < -2 {
		return d.Decimal.String()
	}
	return d.Decimal.StringFixed(2)
}

// ReadLedgerCSV reads a ledger written by WriteLedgerCSV. Completion times are read in
// loc; a time in no known layout keeps its raw text and a zero time, as the normalizer
// does, and is counted in TimeParseFailures. Rows with unreadable amounts are reported
// in Errors and skipped.
func ReadLedgerCSV(r io.Reader, loc *time.Location) (*ReadResult, error) {
	reader := gocsv.LazyCSVReader(r)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read header: empty file")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if !contains(header, statement.ColumnDetails) {
		return nil, fmt.Errorf("failed to read header: no %q column", statement.ColumnDetails)
	}

	result := &ReadResult{
		Ledger: statement.Ledger{Columns: withoutColumn(header, ColumnCategory)},
	}

	rowNum := 1
	for {
		record, err := reader.Read()
		rowNum++
		if errors.Is(err, io.EOF) {
			break
		}
		result.TotalRows++
		if err != nil && !errors.Is(err, csv.ErrFieldCount) {
			result.Errors = append(result.Errors, ParseError{Row: rowNum, Message: err.Error()})
			continue
		}
		if len(record) != len(header) {
			result.Errors = append(result.Errors, ParseError{
				Row:     rowNum,
				Message: fmt.Sprintf("expected %d fields, got %d", len(header), len(record)),
			})
			continue
		}

		tx, parseErr := processRecord(header, record, rowNum, loc)
		if parseErr != nil {
			result.Errors = append(result.Errors, *parseErr)
			continue
		}
		result.add(tx)
	}

	return result, nil
}

// processRecord converts one CSV record to a transaction
func processRecord(header, record []string, rowNum int, loc *time.Location) (*statement.Transaction, *ParseError) {
	tx := &statement.Transaction{}

	for i, col := range header {
		value := record[i]
		switch col {
		case statement.ColumnReceiptNo:
			tx.ReceiptNo = strings.TrimSpace(value)
		case statement.ColumnCompletionTime:
			tx.RawCompletionTime = strings.TrimSpace(value)
			tx.CompletionTime, _ = normalizer.ParseCompletionTime(tx.RawCompletionTime, loc)
		case statement.ColumnDetails:
			tx.Details = value
		case statement.ColumnTransactionStatus:
			status := strings.TrimSpace(value)
			tx.TransactionStatus = &status
		case statement.ColumnPaidIn, statement.ColumnWithdrawn, statement.ColumnBalance:
			amount, err := parseAmount(value)
			if err != nil {
				return nil, &ParseError{Row: rowNum, Column: col, Message: err.Error(), RawData: value}
			}
			switch col {
			case statement.ColumnPaidIn:
				tx.PaidIn = amount
			case statement.ColumnWithdrawn:
				tx.Withdrawn = amount
			default:
				tx.Balance = amount
			}
		case ColumnCategory:
			tx.Category = strings.TrimSpace(value)
		default:
			tx.Extra = append(tx.Extra, statement.Field{Name: col, Value: value})
		}
	}
	return tx, nil
}

func parseAmount(cell string) (decimal.NullDecimal, error) {
	if strings.TrimSpace(cell) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := money.ParseAmount(cell)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
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
