// Package parser reads M-PESA statement PDFs into pages of text and tables, and writes
// or reads back normalized ledgers as CSV and XLSX.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ledongthuc/pdf"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/statement"
)

var (
	// ErrProtectedDocument indicates an encrypted PDF that could not be opened.
	ErrProtectedDocument = errors.New("document is password protected")
	// ErrInvalidDocument indicates bytes that are not a readable PDF.
	ErrInvalidDocument = errors.New("document is not a readable PDF")
	// ErrPageOutOfRange indicates a page index outside the document.
	ErrPageOutOfRange = errors.New("page index out of range")
)

// Option configures a PDFDocument.
type Option func(*PDFDocument)

// WithPassword opens encrypted statements with password.
func WithPassword(password string) Option {
	return func(d *PDFDocument) {
		d.password = password
	}
}

// WithLayout overrides the default layout thresholds.
func WithLayout(cfg LayoutConfig) Option {
	return func(d *PDFDocument) {
		d.layout = cfg
	}
}

// PDFDocument exposes a PDF as statement pages. It reconstructs text lines and tables
// from glyph positions.
type PDFDocument struct {
	reader   *pdf.Reader
	password string
	layout   LayoutConfig

	mu    sync.Mutex
	pages map[int][]line
}

var _ statement.Document = (*PDFDocument)(nil)

// Open reads the PDF structure from r. Encrypted documents need WithPassword.
func Open(r io.ReaderAt, size int64, opts ...Option) (doc *PDFDocument, err error) {
	doc = &PDFDocument{
		layout: DefaultLayoutConfig(),
		pages:  make(map[int][]line),
	}
	for _, opt := range opts {
		opt(doc)
	}

	// the pdf package panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("%w: %v", ErrInvalidDocument, r)
		}
	}()

	tried := false
	password := func() string {
		if tried {
			return ""
		}
		tried = true
		return doc.password
	}

	reader, err := pdf.NewReaderEncrypted(r, size, password)
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return nil, fmt.Errorf("%w: %v", ErrProtectedDocument, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	doc.reader = reader
	return doc, nil
}

// OpenBytes opens an in-memory PDF.
func OpenBytes(data []byte, opts ...Option) (*PDFDocument, error) {
	return Open(bytes.NewReader(data), int64(len(data)), opts...)
}

// OpenFile reads and opens the PDF at path.
func OpenFile(path string, opts ...Option) (*PDFDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return OpenBytes(data, opts...)
}

// PageCount returns the number of pages.
func (d *PDFDocument) PageCount() int {
	return d.reader.NumPage()
}

// PageText returns the page as plain text, or nil for a page without text.
func (d *PDFDocument) PageText(i int) (*string, error) {
	lines, err := d.lines(i)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}
	text := layoutText(lines)
	return &text, nil
}

// PageTables returns the tables of page i in top-to-bottom order.
func (d *PDFDocument) PageTables(i int) ([]statement.RawTable, error) {
	lines, err := d.lines(i)
	if err != nil {
		return nil, err
	}
	return layoutTables(lines, d.layout), nil
}

func (d *PDFDocument) lines(i int) ([]line, error) {
	if i < 0 || i >= d.PageCount() {
		return nil, fmt.Errorf("%w: %d", ErrPageOutOfRange, i)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if lines, ok := d.pages[i]; ok {
		return lines, nil
	}

	texts, err := pageTexts(d.reader.Page(i + 1))
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", i+1, err)
	}
	lines := layoutLines(texts, d.layout)
	d.pages[i] = lines
	return lines, nil
}

func pageTexts(p pdf.Page) (texts []pdf.Text, err error) {
	if p.V.IsNull() {
		return nil, ErrInvalidDocument
	}
	defer func() {
		if r := recover(); r != nil {
			texts, err = nil, fmt.Errorf("%w: %v", ErrInvalidDocument, r)
		}
	}()
	return p.Content().Text, nil
}
