package categorization

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/statement"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name    string
		details string
		want    string
	}{
		{"break after space is removed", "Pay Bill to \nKPLC", "pay bill to kplc"},
		{"bare break becomes space", "Pay Bill\nto KPLC", "pay bill to kplc"},
		{"carriage return removed", "Pay Bill\r\nto", "pay billto"},
		{"break after break is removed", "Pay\n\nBill", "pay bill"},
		{"leading break becomes space", "\nPay", " pay"},
		{"tab counts as whitespace", "Pay\t\nBill", "pay\tbill"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.details))
		})
	}
}

func TestClean_Idempotent(t *testing.T) {
	gen := statement.NewTestDataGeneratorWithSeed(42)

	for i := 0; i < 500; i++ {
		dir := statement.DirectionOutgoing
		if i%2 == 0 {
			dir = statement.DirectionIncoming
		}
		details := gen.Details(dir)
		once := Clean(details)
		assert.Equal(t, once, Clean(once), "details %q", details)
		assert.NotContains(t, once, "\n")
		assert.NotContains(t, once, "\r")
	}
}

func TestCategorizer_Categorize(t *testing.T) {
	c := NewDefaultCategorizer()

	tests := []struct {
		name    string
		details string
		want    string
	}{
		{"send money", "Customer Transfer to - 2547******123 JOHN DOE", "Send Money to Individual"},
		{"received", "Funds received from - 2547******890 JANE DOE", "Funds From Individual"},
		{"paybill", "Pay Bill to 888880 - KPLC PREPAID Acc. 12345", "Business Spending (Paybill)"},
		{"wrapped paybill", "Pay Bill\nto 888880 - KPLC", "Business Spending (Paybill)"},
		{"wrapped after space", "Customer Transfer \nto - 0722******000 AMOS", "Send Money to Individual"},
		{"fuliza paybill", "Pay Bill Fuliza M-Pesa to 123 - SAFARICOM", "Fuliza Spending (Business Paybill)"},
		{"agent withdrawal charge wins over agent till", "Customer Withdrawal At Agent Till Withdrawal Charge", "Charges (Agent Withdrawal)"},
		{"case insensitive", "MERCHANT PAYMENT TO 5555 - NAIVAS", "Business Spending (Till)"},
		{"airtime", "Airtime Purchase", "Airtime/Data Spending"},
		{"unknown", "Something else entirely", Uncategorized},
		{"empty", "", Uncategorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Categorize(tt.details))
		})
	}
}

func TestCategorizer_FirstMatchWins(t *testing.T) {
	c := NewDefaultCategorizer()

	t.Run("earlier broad rule shadows later narrow rule", func(t *testing.T) {
		// "merchant payment" precedes "merchant payment fuliza"
		assert.Equal(t, "Business Spending (Till)", c.Categorize("Merchant Payment Fuliza to 5555 - SHOP"))
		// "airtime purchase" precedes "airtime purchase reversal"
		assert.Equal(t, "Airtime/Data Spending", c.Categorize("Airtime Purchase Reversal"))
	})

	t.Run("fuliza paybill wins over generic paybill", func(t *testing.T) {
		tests := []string{
			"Pay Bill to 123 Pay Bill Fuliza M-Pesa to 456 - KPLC",
			"Pay Bill Fuliza M-Pesa to 456 - KPLC Pay Bill to 123",
			"Pay Bill to 123 Pay Bill Online Fuliza M-Pesa to 456 - ZUKU",
		}
		for _, details := range tests {
			assert.Equal(t, "Fuliza Spending (Business Paybill)", c.Categorize(details), details)
		}
	})

	t.Run("m-kopa still overrides fuliza paybill", func(t *testing.T) {
		assert.Equal(t, MKopaCategory, c.Categorize("Pay Bill Fuliza M-Pesa to 998877 - M-KOPA"))
	})

	t.Run("order is the only tiebreaker", func(t *testing.T) {
		rules := []Rule{
			{Pattern: "transfer", Category: "A"},
			{Pattern: "customer transfer", Category: "B"},
		}
		assert.Equal(t, "A", NewCategorizer(rules).Categorize("Customer Transfer"))

		rules[0], rules[1] = rules[1], rules[0]
		assert.Equal(t, "B", NewCategorizer(rules).Categorize("Customer Transfer"))
	})
}

func TestCategorizer_MKopaOverride(t *testing.T) {
	c := NewDefaultCategorizer()

	t.Run("paybill to m-kopa", func(t *testing.T) {
		assert.Equal(t, MKopaCategory, c.Categorize("Pay Bill to KPLC PREPAID\n012345 M-KOPA SOLAR"))
	})

	t.Run("online paybill to m-kopa", func(t *testing.T) {
		assert.Equal(t, MKopaCategory, c.Categorize("Pay Bill Online to 111999 - M-KOPA KENYA"))
	})

	t.Run("non paybill category keeps its category", func(t *testing.T) {
		assert.Equal(t, "Send Money to Individual", c.Categorize("Customer Transfer to M-KOPA AGENT"))
	})

	t.Run("paybill charge category is overridden too", func(t *testing.T) {
		assert.Equal(t, MKopaCategory, c.Categorize("Pay Bill Charge M-KOPA"))
	})

	t.Run("standalone m-kopa rule", func(t *testing.T) {
		assert.Equal(t, MKopaCategory, c.Categorize("Lipa M-KOPA deposit"))
	})

	t.Run("override needs a match first", func(t *testing.T) {
		c := NewCategorizer([]Rule{{Pattern: "pay bill", Category: "Paybill"}})
		assert.Equal(t, Uncategorized, c.Categorize("M-KOPA"))
		assert.Equal(t, MKopaCategory, c.Categorize("pay bill m-kopa"))
	})
}

func TestCategorizer_Totality(t *testing.T) {
	c := NewDefaultCategorizer()
	known := map[string]bool{Uncategorized: true, MKopaCategory: true}
	for _, r := range DefaultRules() {
		known[r.Category] = true
	}

	gen := statement.NewTestDataGeneratorWithSeed(7)
	for i := 0; i < 300; i++ {
		details := gen.Wrap(gen.Counterparty() + " " + gen.Details(statement.DirectionOutgoing))
		got := c.Categorize(details)
		assert.True(t, known[got], "unexpected category %q", got)
	}
}

func TestCategorizer_EmptyTable(t *testing.T) {
	c := NewCategorizer(nil)
	assert.Equal(t, 0, c.RuleCount())
	assert.Equal(t, Uncategorized, c.Categorize("Pay Bill to KPLC"))

	c = NewCategorizer([]Rule{{Pattern: "", Category: "Everything"}})
	assert.Equal(t, 0, c.RuleCount())
	assert.Equal(t, Uncategorized, c.Categorize("anything"))
}

func TestCategorizer_Build(t *testing.T) {
	c := NewCategorizer([]Rule{{Pattern: "kplc", Category: "Power"}})
	assert.Equal(t, "Power", c.Categorize("Pay Bill to KPLC"))

	c.Build(DefaultRules())
	assert.Equal(t, "Business Spending (Paybill)", c.Categorize("Pay Bill to KPLC"))
	require.Len(t, c.Rules(), len(DefaultRules()))
}

func TestCategorizer_CategorizeLedger(t *testing.T) {
	c := NewDefaultCategorizer()
	gen := statement.NewTestDataGeneratorWithSeed(3)
	ledger := gen.Ledger(50, time.Date(2024, 3, 31, 18, 0, 0, 0, time.UTC))
	ledger.Transactions[0].Details = "unrecognized"

	uncategorized := c.CategorizeLedger(ledger)
	assert.GreaterOrEqual(t, uncategorized, 1)

	for _, tx := range ledger.Transactions {
		assert.NotEmpty(t, tx.Category)
		assert.Equal(t, c.Categorize(tx.Details), tx.Category)
	}

	assert.Equal(t, 0, c.CategorizeLedger(nil))
}

func TestCategorizer_Concurrent(t *testing.T) {
	c := NewDefaultCategorizer()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%4 == 0 {
				c.Build(DefaultRules())
				return
			}
			assert.Equal(t, "Airtime/Data Spending", c.Categorize("Airtime Purchase"))
		}(i)
	}
	wg.Wait()
}

func BenchmarkCategorize(b *testing.B) {
	c := NewDefaultCategorizer()
	gen := statement.NewTestDataGeneratorWithSeed(1)
	details := make([]string, 1000)
	for i := range details {
		details[i] = gen.Details(statement.DirectionOutgoing)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Categorize(details[i%len(details)])
	}
}

func BenchmarkCategorizeLedger(b *testing.B) {
	c := NewDefaultCategorizer()
	ledger := &statement.Ledger{Transactions: make([]statement.Transaction, 1000)}
	for i := range ledger.Transactions {
		ledger.Transactions[i].Details = fmt.Sprintf("Customer Transfer to - 2547******%03d %s", i%1000, strings.Repeat("X", i%20))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.CategorizeLedger(ledger)
	}
}
