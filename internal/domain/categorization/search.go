package categorization

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/statement"
)

// SearchDocument is the indexed form of one categorized transaction.
type SearchDocument struct {
	ID          string    `json:"id"`
	StatementID string    `json:"statement_id"`
	ReceiptNo   string    `json:"receipt_no"`
	Details     string    `json:"details"`
	Category    string    `json:"category"`
	Direction   string    `json:"direction"` // "incoming", "outgoing" or "" when neither
	Amount      float64   `json:"amount"`
	CompletedAt time.Time `json:"completed_at"`
}

// SearchResult is a hit with its relevance score.
type SearchResult struct {
	Document SearchDocument
	Score    float64
}

// SearchIndex provides full-text search over categorized ledgers using Bleve.
type SearchIndex struct {
	index   bleve.Index
	indexMu sync.RWMutex
	path    string // empty for in-memory
}

// NewSearchIndex opens the index at path, creating it if needed. An empty path
// creates an in-memory index.
func NewSearchIndex(path string) (*SearchIndex, error) {
	si := &SearchIndex{path: path}

	var (
		index bleve.Index
		err   error
	)

	indexMapping := buildIndexMapping()

	if path == "" {
		index, err = bleve.NewMemOnly(indexMapping)
	} else if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		if mkdirErr := os.MkdirAll(filepath.Dir(path), 0o755); mkdirErr != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", mkdirErr)
		}
		index, err = bleve.New(path, indexMapping)
	} else {
		index, err = bleve.Open(path)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create/open index: %w", err)
	}

	si.index = index
	return si, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = simple.Name

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	numericFieldMapping := bleve.NewNumericFieldMapping()
	dateFieldMapping := bleve.NewDateTimeFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("statement_id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("receipt_no", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("details", textFieldMapping)
	docMapping.AddFieldMappingsAt("category", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("direction", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("amount", numericFieldMapping)
	docMapping.AddFieldMappingsAt("completed_at", dateFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name

	return indexMapping
}

// IndexLedger indexes every transaction of a categorized ledger under statementID.
// Re-indexing the same statement replaces its documents.
func (si *SearchIndex) IndexLedger(statementID string, ledger *statement.Ledger) error {
	if ledger == nil {
		return nil
	}

	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	batch := si.index.NewBatch()
	for i, tx := range ledger.Transactions {
		doc := documentFor(statementID, i, tx)
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("failed to index transaction %s: %w", doc.ID, err)
		}
	}

	if err := si.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch index: %w", err)
	}
	return nil
}

func documentFor(statementID string, pos int, tx statement.Transaction) SearchDocument {
	doc := SearchDocument{
		ID:          statementID + "_" + strconv.Itoa(pos),
		StatementID: statementID,
		ReceiptNo:   tx.ReceiptNo,
		Details:     Clean(tx.Details),
		Category:    tx.Category,
		CompletedAt: tx.CompletionTime,
	}

	switch {
	case tx.PaidIn.Valid && !tx.Withdrawn.Valid:
		doc.Direction = string(statement.DirectionIncoming)
		doc.Amount = tx.PaidIn.Decimal.InexactFloat64()
	case tx.Withdrawn.Valid && !tx.PaidIn.Valid:
		doc.Direction = string(statement.DirectionOutgoing)
		doc.Amount = tx.Withdrawn.Decimal.Abs().InexactFloat64()
	}
	return doc
}

// Search runs a match query over details with one edit of typo tolerance.
func (si *SearchIndex) Search(text string, limit int) ([]SearchResult, error) {
	q := bleve.NewMatchQuery(text)
	q.SetField("details")
	q.SetFuzziness(1)
	return si.run(q, limit, "search")
}

// SearchWithPrefix finds transactions whose details contain a word starting with prefix.
func (si *SearchIndex) SearchWithPrefix(prefix string, limit int) ([]SearchResult, error) {
	q := bleve.NewPrefixQuery(prefix)
	q.SetField("details")
	return si.run(q, limit, "prefix search")
}

// SearchFuzzy runs a fuzzy term query with fuzziness clamped to Bleve's 0-2 range.
func (si *SearchIndex) SearchFuzzy(term string, fuzziness, limit int) ([]SearchResult, error) {
	q := bleve.NewFuzzyQuery(term)
	q.SetField("details")
	q.SetFuzziness(min(max(fuzziness, 0), 2))
	return si.run(q, limit, "fuzzy search")
}

// SearchAdvanced accepts Bleve query-string syntax, e.g. `+details:kplc category:"Business Spending (Paybill)"`.
func (si *SearchIndex) SearchAdvanced(queryString string, limit int) ([]SearchResult, error) {
	return si.run(bleve.NewQueryStringQuery(queryString), limit, "advanced search")
}

// SearchByCategory returns transactions with exactly the given category.
func (si *SearchIndex) SearchByCategory(category string, limit int) ([]SearchResult, error) {
	q := bleve.NewTermQuery(category)
	q.SetField("category")
	if limit <= 0 {
		limit = 100
	}
	return si.run(q, limit, "category search")
}

// SearchAmountRange returns transactions whose absolute amount lies in [lo, hi].
func (si *SearchIndex) SearchAmountRange(lo, hi float64, limit int) ([]SearchResult, error) {
	inclusive := true
	q := bleve.NewNumericRangeInclusiveQuery(&lo, &hi, &inclusive, &inclusive)
	q.SetField("amount")
	return si.run(q, limit, "amount search")
}

func (si *SearchIndex) run(q query.Query, limit int, op string) ([]SearchResult, error) {
	si.indexMu.RLock()
	defer si.indexMu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"*"}

	res, err := si.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}
	return convertResults(res), nil
}

func convertResults(res *bleve.SearchResult) []SearchResult {
	results := make([]SearchResult, 0, len(res.Hits))

	for _, hit := range res.Hits {
		doc := SearchDocument{ID: hit.ID}

		if v, ok := hit.Fields["statement_id"].(string); ok {
			doc.StatementID = v
		}
		if v, ok := hit.Fields["receipt_no"].(string); ok {
			doc.ReceiptNo = v
		}
		if v, ok := hit.Fields["details"].(string); ok {
			doc.Details = v
		}
		if v, ok := hit.Fields["category"].(string); ok {
			doc.Category = v
		}
		if v, ok := hit.Fields["direction"].(string); ok {
			doc.Direction = v
		}
		if v, ok := hit.Fields["amount"].(float64); ok {
			doc.Amount = v
		}
		if v, ok := hit.Fields["completed_at"].(string); ok {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				doc.CompletedAt = t
			}
		}

		results = append(results, SearchResult{Document: doc, Score: hit.Score})
	}
	return results
}

// DocumentCount returns the number of indexed transactions.
func (si *SearchIndex) DocumentCount() (uint64, error) {
	si.indexMu.RLock()
	defer si.indexMu.RUnlock()
	return si.index.DocCount()
}

// DeleteStatement removes every transaction indexed under statementID.
func (si *SearchIndex) DeleteStatement(statementID string) error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	q := bleve.NewTermQuery(statementID)
	q.SetField("statement_id")
	req := bleve.NewSearchRequest(q)
	req.Size = 10000

	res, err := si.index.Search(req)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	batch := si.index.NewBatch()
	for _, hit := range res.Hits {
		batch.Delete(hit.ID)
	}
	if err := si.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

// Close closes the index.
func (si *SearchIndex) Close() error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	if si.index != nil {
		return si.index.Close()
	}
	return nil
}
