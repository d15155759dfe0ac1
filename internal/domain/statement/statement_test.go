package statement

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDocument struct {
	texts   []*string
	tables  [][]RawTable
	textErr error
}

func (d *fakeDocument) PageCount() int { return len(d.texts) }

func (d *fakeDocument) PageText(i int) (*string, error) {
	if d.textErr != nil {
		return nil, d.textErr
	}
	return d.texts[i], nil
}

func (d *fakeDocument) PageTables(i int) ([]RawTable, error) {
	if i >= len(d.tables) {
		return nil, nil
	}
	return d.tables[i], nil
}

func TestReadPages(t *testing.T) {
	t.Run("no pages", func(t *testing.T) {
		_, err := ReadPages(&fakeDocument{})
		assert.ErrorIs(t, err, ErrNoPages)
	})

	t.Run("pages in order", func(t *testing.T) {
		header := RawTable{{ptr("Receipt No."), ptr("Details")}}
		doc := &fakeDocument{
			texts:  []*string{ptr("first"), nil, ptr("last")},
			tables: [][]RawTable{{header}},
		}

		pages, err := ReadPages(doc)
		require.NoError(t, err)
		require.Len(t, pages, 3)
		assert.Equal(t, 0, pages[0].Index)
		assert.Equal(t, "first", *pages[0].Text)
		assert.Nil(t, pages[1].Text)
		assert.Equal(t, 2, pages[2].Index)
		require.Len(t, pages[0].Tables, 1)
		assert.Equal(t, "Receipt No.", *pages[0].Tables[0].Header()[0])
	})

	t.Run("page error wrapped", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := ReadPages(&fakeDocument{texts: []*string{nil}, textErr: boom})
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "page 1")
	})
}

func TestLedgerHasColumn(t *testing.T) {
	l := &Ledger{Columns: []string{ColumnDetails, ColumnBalance}}
	assert.True(t, l.HasColumn(ColumnBalance))
	assert.False(t, l.HasColumn(ColumnWithdrawn))
	assert.Nil(t, RawTable{}.Header())
}
