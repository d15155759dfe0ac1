// Package sniffer tells statement PDFs apart from ledger exports before they are
// parsed, and checks that a CSV export carries the ledger columns.
package sniffer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/statement"
)

// Format is the kind of file a user handed in.
type Format string

const (
	FormatUnknown Format = "unknown"
	FormatPDF     Format = "pdf"
	FormatXLSX    Format = "xlsx"
	FormatCSV     Format = "csv"
)

var (
	ErrEmptyFile      = errors.New("file is empty")
	ErrNoHeadersFound = errors.New("could not find ledger headers")
	ErrNotCommaCSV    = errors.New("ledger CSV must be comma separated")
)

// requiredColumns must appear in the header of a ledger export.
var requiredColumns = []string{
	statement.ColumnReceiptNo,
	statement.ColumnCompletionTime,
	statement.ColumnDetails,
}

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
)

// Result describes a sniffed file.
type Result struct {
	Format    Format
	Delimiter rune     // CSV only
	Headers   []string // CSV only, trimmed
}

// Sniff identifies data from its first bytes. A PDF header may be preceded by junk,
// as some mail clients prepend bytes, so the first KiB is searched for it.
func Sniff(data []byte) (*Result, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	switch {
	case bytes.Contains(head, pdfMagic):
		return &Result{Format: FormatPDF}, nil
	case bytes.HasPrefix(data, zipMagic):
		// Any zip is taken for a workbook; excelize reports anything else.
		return &Result{Format: FormatXLSX}, nil
	}

	line := firstLine(data)
	delimiter, count := detectDelimiter(line)
	if count == 0 {
		return &Result{Format: FormatUnknown}, nil
	}

	reader := csv.NewReader(strings.NewReader(line))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	headers, err := reader.Read()
	if err != nil {
		return &Result{Format: FormatUnknown}, nil
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}
	return &Result{Format: FormatCSV, Delimiter: delimiter, Headers: headers}, nil
}

// CheckLedgerCSV verifies that a sniffed CSV can be read back as a ledger.
func (r *Result) CheckLedgerCSV() error {
	if r.Format != FormatCSV {
		return fmt.Errorf("expected a CSV ledger, got %s", r.Format)
	}
	if r.Delimiter != ',' {
		return fmt.Errorf("%w: found %q", ErrNotCommaCSV, r.Delimiter)
	}
	var missing []string
	for _, col := range requiredColumns {
		if !contains(r.Headers, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrNoHeadersFound, strings.Join(missing, ", "))
	}
	return nil
}

func firstLine(data []byte) string {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[:i]
	}
	return cleanLine(string(data))
}

func cleanLine(line string) string {
	line = strings.TrimRight(line, "\r")
	line = strings.TrimPrefix(line, "\uFEFF")
	return strings.TrimSpace(line)
}

func detectDelimiter(line string) (rune, int) {
	delimiters := []rune{',', ';', '\t', '|'}
	bestDelimiter := rune(0)
	bestCount := 0
	for _, d := range delimiters {
		count := strings.Count(line, string(d))
		if count > bestCount {
			bestCount = count
			bestDelimiter = d
		}
	}
	return bestDelimiter, bestCount
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
