package statement

import "github.com/shopspring/decimal"

// Columns each sub-ledger leaves out.
var (
	incomingDropped = []string{ColumnBalance, ColumnWithdrawn}
	outgoingDropped = []string{ColumnBalance, ColumnPaidIn, ColumnTransactionStatus}
)

// Partition splits a categorized ledger into incoming (Paid In present) and outgoing
// (Withdrawn present) sub-ledgers, preserving ledger order. Rows with both or neither
// amount are left out of both and counted in excluded.
func Partition(ledger *Ledger) (incoming, outgoing SubLedger, excluded int) {
	incoming = SubLedger{Direction: DirectionIncoming}
	outgoing = SubLedger{Direction: DirectionOutgoing}
	if ledger == nil {
		return incoming, outgoing, 0
	}

	incoming.Columns = withoutColumns(ledger.Columns, incomingDropped)
	outgoing.Columns = withoutColumns(ledger.Columns, outgoingDropped)

	for _, tx := range ledger.Transactions {
		switch {
		case tx.PaidIn.Valid && !tx.Withdrawn.Valid:
			tx.Balance = decimal.NullDecimal{}
			tx.Withdrawn = decimal.NullDecimal{}
			incoming.Transactions = append(incoming.Transactions, tx)
		case tx.Withdrawn.Valid && !tx.PaidIn.Valid:
			tx.Balance = decimal.NullDecimal{}
			tx.PaidIn = decimal.NullDecimal{}
			tx.TransactionStatus = nil
			outgoing.Transactions = append(outgoing.Transactions, tx)
		default:
			excluded++
		}
	}

	return incoming, outgoing, excluded
}

func withoutColumns(columns, drop []string) []string {
	out := make([]string, 0, len(columns))
outer:
	for _, c := range columns {
		for _, d := range drop {
			if c == d {
				continue outer
			}
		}
		out = append(out, c)
	}
	return out
}
