package parser

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/statement"
)

// Sheet names of an exported workbook.
const (
	SheetLedger   = "Ledger"
	SheetIncoming = "Incoming"
	SheetOutgoing = "Outgoing"
	SheetSummary  = "Summary"
)

// Workbook is what WriteWorkbook exports. Empty parts get no sheet, except the ledger.
type Workbook struct {
	Ledger   *statement.Ledger
	Incoming statement.SubLedger
	Outgoing statement.SubLedger
	Summary  *statement.SummaryTable
}

// WriteWorkbook writes the ledger, both sub-ledgers and the summary table as XLSX.
// Amount cells are numeric; missing amounts are blank.
func WriteWorkbook(w io.Writer, wb Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetLedger); err != nil {
		return fmt.Errorf("failed to name ledger sheet: %w", err)
	}

	var ledger statement.Ledger
	if wb.Ledger != nil {
		ledger = *wb.Ledger
	}
	columns := append(append([]string{}, ledger.Columns...), ColumnCategory)
	if err := writeTransactions(f, SheetLedger, columns, ledger.Transactions, bold); err != nil {
		return err
	}

	for _, sub := range []statement.SubLedger{wb.Incoming, wb.Outgoing} {
		if len(sub.Columns) == 0 {
			continue
		}
		name := SheetIncoming
		if sub.Direction == statement.DirectionOutgoing {
			name = SheetOutgoing
		}
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
		cols := append(append([]string{}, sub.Columns...), ColumnCategory)
		if err := writeTransactions(f, name, cols, sub.Transactions, bold); err != nil {
			return err
		}
	}

	if wb.Summary != nil {
		if err := writeSummary(f, wb.Summary, bold); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeTransactions(f *excelize.File, sheet string, columns []string, txs []statement.Transaction, headerStyle int) error {
	if err := setRow(f, sheet, 1, toCells(columns)); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}

	for i := range txs {
		record := ledgerRecord(columns, &txs[i])
		cells := make([]interface{}, len(record))
		for j, col := range columns {
			cells[j] = record[j]
			if !isAmountColumn(col) {
				continue
			}
			amount := amountOf(&txs[i], col)
			if amount.Valid {
				cells[j] = amount.Decimal.InexactFloat64()
			}
		}
		if err := setRow(f, sheet, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, summary *statement.SummaryTable, headerStyle int) error {
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", SheetSummary, err)
	}
	if err := setRow(f, SheetSummary, 1, toCells(summary.Header)); err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetSummary, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", SheetSummary, err)
	}
	for i, row := range summary.Rows {
		cells := make([]interface{}, len(row))
		for j, c := range row {
			if c != nil {
				cells[j] = *c
			} else {
				cells[j] = ""
			}
		}
		if err := setRow(f, SheetSummary, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func isAmountColumn(col string) bool {
	return col == statement.ColumnPaidIn || col == statement.ColumnWithdrawn || col == statement.ColumnBalance
}

func amountOf(tx *statement.Transaction, col string) decimal.NullDecimal {
	switch col {
	case statement.ColumnPaidIn:
		return tx.PaidIn
	case statement.ColumnWithdrawn:
		return tx.Withdrawn
	default:
		return tx.Balance
	}
}

// ReadWorkbook reads the ledger sheet of a workbook written by WriteWorkbook, or the
// first sheet of any other workbook whose header carries the ledger columns.
func ReadWorkbook(r io.Reader, loc *time.Location) (*ReadResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := findLedgerSheet(f)
	if sheetName == "" {
		return nil, fmt.Errorf("no suitable sheet found")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheetName)
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	if !contains(header, statement.ColumnDetails) {
		return nil, fmt.Errorf("sheet %s has no %q column", sheetName, statement.ColumnDetails)
	}

	result := &ReadResult{
		Ledger: statement.Ledger{Columns: withoutColumn(header, ColumnCategory)},
	}

	for i := 1; i < len(rows); i++ {
		rowNum := i + 1 // 1-indexed
		result.TotalRows++

		// GetRows drops trailing empty cells
		record := rows[i]
		if len(record) < len(header) {
			record = append(record, make([]string, len(header)-len(record))...)
		}
		if len(record) > len(header) {
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

// findLedgerSheet prefers the Ledger sheet and falls back to the first sheet
func findLedgerSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}
	for _, sheet := range sheets {
		if strings.EqualFold(sheet, SheetLedger) {
			return sheet
		}
	}
	return sheets[0]
}
