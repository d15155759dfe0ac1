package normalizer

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/statement"
)

func s(v string) *string { return &v }

func row(cells ...string) []*string {
	out := make([]*string, len(cells))
	for i, c := range cells {
		out[i] = s(c)
	}
	return out
}

var ledgerHeader = row("Receipt No.", "Completion Time", "Details", "Transaction Status", "Paid In", "Withdrawn", "Balance")

func summaryTable() statement.RawTable {
	return statement.RawTable{
		row("TRANSACTION TYPE", "PAID IN", "PAID OUT"),
		row("SEND MONEY:", "0.00", "1,200.00"),
	}
}

func TestNormalize_SummaryAndLedger(t *testing.T) {
	pages := []statement.RawPage{
		{
			Index: 0,
			Tables: []statement.RawTable{
				summaryTable(),
				{
					ledgerHeader,
					row("SBE1", "2024-02-14 10:30:05", "Funds received from - 0722******000 JANE", "Completed", "3,000.00", "", "4,500.00"),
					row("SBE2", "2024-02-14 09:01:00", "Pay Bill to 888880 - KPLC", "Completed", "", "-1,500.00", "1,500.00"),
				},
			},
		},
		{
			Index: 1,
			Tables: []statement.RawTable{
				{
					// later pages repeat the header, sometimes with the last label lost
					row("Receipt No.", "Completion Time", "Details", "Transaction Status", "Paid In", "Withdrawn", ""),
					row("SBE3", "2024-02-13 08:00:00", "Airtime Purchase", "Completed", "", "-50.00", "3,000.00"),
				},
			},
		},
	}

	res := Normalize(pages)

	t.Run("summary is the first table of page 0", func(t *testing.T) {
		require.NotNil(t, res.Summary)
		assert.Equal(t, []string{"TRANSACTION TYPE", "PAID IN", "PAID OUT"}, res.Summary.Header)
		require.Len(t, res.Summary.Rows, 1)
		assert.Equal(t, "SEND MONEY:", *res.Summary.Rows[0][0])
	})

	t.Run("rows in page order", func(t *testing.T) {
		require.Len(t, res.Ledger.Transactions, 3)
		assert.Equal(t, "SBE1", res.Ledger.Transactions[0].ReceiptNo)
		assert.Equal(t, "SBE2", res.Ledger.Transactions[1].ReceiptNo)
		assert.Equal(t, "SBE3", res.Ledger.Transactions[2].ReceiptNo)
	})

	t.Run("columns", func(t *testing.T) {
		assert.Equal(t, []string{
			"Receipt No.", "Completion Time", "Details", "Transaction Status", "Paid In", "Withdrawn", "Balance",
		}, res.Ledger.Columns)
	})

	t.Run("amounts", func(t *testing.T) {
		first := res.Ledger.Transactions[0]
		require.True(t, first.PaidIn.Valid)
		assert.True(t, decimal.NewFromInt(3000).Equal(first.PaidIn.Decimal))
		assert.False(t, first.Withdrawn.Valid)
		assert.True(t, decimal.NewFromInt(4500).Equal(first.Balance.Decimal))

		second := res.Ledger.Transactions[1]
		assert.False(t, second.PaidIn.Valid)
		assert.True(t, decimal.NewFromInt(-1500).Equal(second.Withdrawn.Decimal))
	})

	t.Run("completion time", func(t *testing.T) {
		tx := res.Ledger.Transactions[0]
		assert.Equal(t, time.Date(2024, 2, 14, 10, 30, 5, 0, time.UTC), tx.CompletionTime)
		assert.Equal(t, "2024-02-14 10:30:05", tx.RawCompletionTime)
		require.NotNil(t, tx.TransactionStatus)
		assert.Equal(t, "Completed", *tx.TransactionStatus)
	})

	t.Run("stats", func(t *testing.T) {
		assert.Equal(t, Stats{TablesSeen: 2, RowsSeen: 3, RowsKept: 3}, res.Stats)
	})
}

func TestNormalize_DropsIncompleteRows(t *testing.T) {
	pages := []statement.RawPage{{
		Index: 1,
		Tables: []statement.RawTable{{
			ledgerHeader,
			row("R1", "2024-01-01 10:00:00", "Airtime Purchase", "Completed", "", "-10.00", "90.00"),
			{s("R2"), nil, s("continuation"), s(""), s(""), s(""), s("")},
			row("R3", "2024-01-01 11:00:00", "Buy Bundles", "Completed", "", "-20.00", "70.00"),
		}},
	}}

	res := Normalize(pages)

	require.Len(t, res.Ledger.Transactions, 2)
	assert.Equal(t, "R1", res.Ledger.Transactions[0].ReceiptNo)
	assert.Equal(t, "R3", res.Ledger.Transactions[1].ReceiptNo)
	assert.Equal(t, 1, res.Stats.RowsDropped)
	assert.Equal(t, 2, res.Stats.RowsKept)
}

func TestNormalize_DropsEmptyNonAmountCell(t *testing.T) {
	tests := []struct {
		name  string
		blank func([]*string)
	}{
		{"receipt", func(r []*string) { *r[0] = "" }},
		{"completion time", func(r []*string) { *r[1] = "" }},
		{"details", func(r []*string) { *r[2] = "  " }},
		{"status", func(r []*string) { *r[3] = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broken := row("R2", "2024-01-01 10:30:00", "Buy Bundles", "Completed", "", "-5.00", "85.00")
			tt.blank(broken)
			pages := []statement.RawPage{{
				Index: 1,
				Tables: []statement.RawTable{{
					ledgerHeader,
					row("R1", "2024-01-01 10:00:00", "Airtime Purchase", "Completed", "", "-10.00", "90.00"),
					broken,
					row("R3", "2024-01-01 11:00:00", "Buy Bundles", "Completed", "", "-20.00", "70.00"),
				}},
			}}

			res := Normalize(pages)

			assert.Equal(t, 3, res.Stats.RowsSeen)
			assert.Equal(t, 2, res.Stats.RowsKept)
			assert.Equal(t, 1, res.Stats.RowsDropped)
			require.Len(t, res.Ledger.Transactions, 2)
			assert.Equal(t, "R1", res.Ledger.Transactions[0].ReceiptNo)
			assert.Equal(t, "R3", res.Ledger.Transactions[1].ReceiptNo)
		})
	}
}

func TestNormalize_EmptyCellPolicy(t *testing.T) {
	pages := []statement.RawPage{{
		Index: 2,
		Tables: []statement.RawTable{{
			ledgerHeader,
			row("R1", "2024-01-01 10:00:00", "", "Completed", "", "-10.00", "90.00"),
			row("R2", "2024-01-01 10:00:00", "Details", "Completed", "", "", ""),
			row("R3", "2024-01-01 10:00:00", "Details", "Completed", "0.00", "", "90.00"),
		}},
	}}

	res := Normalize(pages)

	require.Len(t, res.Ledger.Transactions, 2, "empty details drops the row, empty amounts do not")

	neither := res.Ledger.Transactions[0]
	assert.Equal(t, "R2", neither.ReceiptNo)
	assert.False(t, neither.PaidIn.Valid)
	assert.False(t, neither.Withdrawn.Valid)
	assert.False(t, neither.Balance.Valid)

	zero := res.Ledger.Transactions[1]
	require.True(t, zero.PaidIn.Valid, "zero is present, not missing")
	assert.True(t, zero.PaidIn.Decimal.IsZero())
}

func TestNormalize_Coercion(t *testing.T) {
	pages := []statement.RawPage{{
		Index: 1,
		Tables: []statement.RawTable{{
			ledgerHeader,
			row("R1", "14/02/2024 10:30", "Pay Bill", "Completed", "Ksh 1,250.50", "n/a", "KES 2,000"),
			row("R2", "not a time", "Pay Bill", "Completed", "", "-5", "1"),
		}},
	}}

	res := New(time.FixedZone("EAT", 3*60*60)).Normalize(pages)
	require.Len(t, res.Ledger.Transactions, 2)

	first := res.Ledger.Transactions[0]
	assert.True(t, decimal.RequireFromString("1250.5").Equal(first.PaidIn.Decimal))
	assert.False(t, first.Withdrawn.Valid, "unparsable amount is missing")
	assert.True(t, decimal.NewFromInt(2000).Equal(first.Balance.Decimal))
	assert.Equal(t, 3*60*60, offset(first.CompletionTime))

	second := res.Ledger.Transactions[1]
	assert.True(t, second.CompletionTime.IsZero())
	assert.Equal(t, "not a time", second.RawCompletionTime)

	assert.Equal(t, 1, res.Stats.AmountParseFailures)
	assert.Equal(t, 1, res.Stats.TimeParseFailures)
}

func offset(t time.Time) int {
	_, off := t.Zone()
	return off
}

func TestNormalize_Misaligned(t *testing.T) {
	pages := []statement.RawPage{
		{Index: 1, Tables: []statement.RawTable{{
			ledgerHeader,
			row("R1", "2024-01-01 10:00:00", "Airtime Purchase", "Completed", "", "-10.00", "90.00"),
		}}},
		{Index: 2, Tables: []statement.RawTable{{
			row("Receipt No.", "Completion Time", "Details", "Paid In", "Balance"),
			row("R2", "2024-01-01 11:00:00", "Airtime Purchase", "", "80.00"),
		}}},
	}

	res := Normalize(pages)
	require.Len(t, res.Ledger.Transactions, 1)
	assert.Equal(t, 1, res.Stats.RowsMisaligned)
	assert.Equal(t, 1, res.Stats.RowsDropped)
}

func TestNormalize_VerificationCodeColumn(t *testing.T) {
	pages := []statement.RawPage{{
		Index: 1,
		Tables: []statement.RawTable{{
			row("Receipt No.", "Completion Time", "Details", "Statement Verification Code", "Paid In", "Withdrawn", "Balance"),
			row("R1", "2024-01-01 10:00:00", "Airtime Purchase", "AB12CD34", "", "-10.00", "90.00"),
		}},
	}}

	res := Normalize(pages)
	assert.NotContains(t, res.Ledger.Columns, statement.ColumnVerificationCode)
	require.Len(t, res.Ledger.Transactions, 1)
	assert.Empty(t, res.Ledger.Transactions[0].Extra)
}

func TestNormalize_PassThroughColumns(t *testing.T) {
	pages := []statement.RawPage{{
		Index: 1,
		Tables: []statement.RawTable{{
			row("Receipt No.", "Completion Time", "Details", "Channel", "Paid In", "Withdrawn", "Bal"),
			row("R1", "2024-01-01 10:00:00", "Airtime Purchase", "USSD", "", "-10.00", "90.00"),
		}},
	}}

	res := Normalize(pages)
	require.Len(t, res.Ledger.Transactions, 1)
	assert.Equal(t, []statement.Field{{Name: "Channel", Value: "USSD"}}, res.Ledger.Transactions[0].Extra)
	assert.Nil(t, res.Ledger.Transactions[0].TransactionStatus)
	assert.Equal(t, "Balance", res.Ledger.Columns[6])
}

func TestNormalize_Empty(t *testing.T) {
	res := Normalize(nil)
	assert.Nil(t, res.Summary)
	assert.Zero(t, res.Ledger.Len())

	t.Run("summary only", func(t *testing.T) {
		res := Normalize([]statement.RawPage{{Index: 0, Tables: []statement.RawTable{summaryTable()}}})
		assert.NotNil(t, res.Summary)
		assert.Zero(t, res.Ledger.Len())
		assert.Equal(t, 0, res.Stats.TablesSeen)
	})

	t.Run("tables off page 0 are never the summary", func(t *testing.T) {
		res := Normalize([]statement.RawPage{{Index: 1, Tables: []statement.RawTable{{
			ledgerHeader,
			row("R1", "2024-01-01 10:00:00", "Airtime Purchase", "Completed", "", "-10.00", "90.00"),
		}}}})
		assert.Nil(t, res.Summary)
		assert.Equal(t, 1, res.Ledger.Len())
	})
}

func TestNormalize_GeneratedLedger(t *testing.T) {
	gen := statement.NewTestDataGeneratorWithSeed(11)
	src := gen.Ledger(40, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	table := statement.RawTable{ledgerHeader}
	for _, tx := range src.Transactions {
		paidIn, withdrawn := "", ""
		if tx.PaidIn.Valid {
			paidIn = tx.PaidIn.Decimal.StringFixed(2)
		}
		if tx.Withdrawn.Valid {
			withdrawn = tx.Withdrawn.Decimal.StringFixed(2)
		}
		table = append(table, row(tx.ReceiptNo, tx.RawCompletionTime, tx.Details, *tx.TransactionStatus,
			paidIn, withdrawn, tx.Balance.Decimal.StringFixed(2)))
	}

	res := Normalize([]statement.RawPage{{Index: 1, Tables: []statement.RawTable{table}}})
	require.Equal(t, src.Len(), res.Ledger.Len())

	for i, tx := range res.Ledger.Transactions {
		want := src.Transactions[i]
		assert.Equal(t, want.ReceiptNo, tx.ReceiptNo)
		assert.Equal(t, want.Details, tx.Details)
		assert.True(t, want.CompletionTime.Equal(tx.CompletionTime))
		assert.Equal(t, want.PaidIn.Valid, tx.PaidIn.Valid)
		assert.Equal(t, want.Withdrawn.Valid, tx.Withdrawn.Valid)
	}
}
