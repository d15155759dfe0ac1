package statement

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// TestDataGenerator produces realistic M-PESA statement content using gofakeit.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(0)}
}

// NewTestDataGeneratorWithSeed creates a generator with a fixed seed for reproducibility.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

var incomingTemplates = []string{
	"Funds received from - %s %s",
	"Business Payment from %s - %s via API",
	"Salary Payment from %s - %s",
	"Merchant Customer Payment from %s - %s",
	"Small Business Payment to %s - %s",
	"M-Shwari Withdraw %s %s",
}

var outgoingTemplates = []string{
	"Customer Transfer to - %s %s",
	"Pay Bill to %s - %s Acc. 0123",
	"Pay Bill Online to %s - %s",
	"Merchant Payment to %s - %s",
	"Customer Withdrawal At Agent Till %s - %s",
	"Airtime Purchase %s %s",
	"Customer Transfer of Funds Charge %s %s",
	"M-Shwari Deposit %s %s",
}

// MaskedPhone returns a number in the statement's masked form, e.g. "254******123".
func (g *TestDataGenerator) MaskedPhone() string {
	return fmt.Sprintf("%03d******%03d", g.faker.Number(254, 254), g.faker.Number(0, 999))
}

// Counterparty returns an upper-case person or business name.
func (g *TestDataGenerator) Counterparty() string {
	if g.faker.Bool() {
		return strings.ToUpper(g.faker.Name())
	}
	return strings.ToUpper(g.faker.Company())
}

// Details generates details text for the given direction, with line breaks where the
// PDF cell would wrap.
func (g *TestDataGenerator) Details(dir Direction) string {
	templates := outgoingTemplates
	if dir == DirectionIncoming {
		templates = incomingTemplates
	}
	tmpl := templates[g.faker.Number(0, len(templates)-1)]
	return g.Wrap(fmt.Sprintf(tmpl, g.MaskedPhone(), g.Counterparty()))
}

// Wrap breaks s at random word boundaries the way table cells wrap, sometimes
// leaving trailing whitespace before the break.
func (g *TestDataGenerator) Wrap(s string) string {
	words := strings.Fields(s)
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			switch g.faker.Number(0, 5) {
			case 0:
				b.WriteString("\n")
			case 1:
				b.WriteString(" \n")
			case 2:
				b.WriteString("\r\n")
			default:
				b.WriteString(" ")
			}
		}
		b.WriteString(w)
	}
	return b.String()
}

// Amount returns a positive amount in shillings with two decimal places.
func (g *TestDataGenerator) Amount(lo, hi float64) decimal.Decimal {
	return decimal.NewFromFloat(g.faker.Float64Range(lo, hi)).Round(2)
}

// ReceiptNo returns a 10-character M-PESA receipt number.
func (g *TestDataGenerator) ReceiptNo() string {
	return strings.ToUpper(g.faker.Regex(`[A-Z]{3}[0-9][A-Z0-9]{6}`))
}

// Transaction generates one completed transaction moving in dir.
func (g *TestDataGenerator) Transaction(dir Direction, at time.Time) Transaction {
	completed := "Completed"
	tx := Transaction{
		ReceiptNo:         g.ReceiptNo(),
		CompletionTime:    at,
		RawCompletionTime: at.Format(CompletionTimeLayout),
		Details:           g.Details(dir),
		TransactionStatus: &completed,
	}
	if dir == DirectionIncoming {
		tx.PaidIn = decimal.NewNullDecimal(g.Amount(10, 50000))
	} else {
		tx.Withdrawn = decimal.NewNullDecimal(g.Amount(1, 20000).Neg())
	}
	return tx
}

// Ledger generates n transactions in reverse chronological order, as statements list
// them, with a running balance.
func (g *TestDataGenerator) Ledger(n int, end time.Time) *Ledger {
	l := &Ledger{
		Columns: []string{
			ColumnReceiptNo, ColumnCompletionTime, ColumnDetails, ColumnTransactionStatus,
			ColumnPaidIn, ColumnWithdrawn, ColumnBalance,
		},
		Transactions: make([]Transaction, n),
	}

	balance := g.Amount(1000, 100000)
	at := end
	for i := 0; i < n; i++ {
		dir := DirectionOutgoing
		if g.faker.Bool() {
			dir = DirectionIncoming
		}
		tx := g.Transaction(dir, at)
		tx.Balance = decimal.NewNullDecimal(balance)
		if dir == DirectionIncoming {
			balance = balance.Sub(tx.PaidIn.Decimal)
		} else {
			balance = balance.Sub(tx.Withdrawn.Decimal)
		}
		l.Transactions[i] = tx
		at = at.Add(-time.Duration(g.faker.Number(5, 60*24)) * time.Minute)
	}
	return l
}
