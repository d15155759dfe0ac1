package categorization

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules()
	require.Len(t, rules, 44)
	require.NoError(t, ValidateRules(rules))

	assert.Equal(t, "Withdrawal Charge", rules[0].Pattern)
	assert.Equal(t, "M-KOPA", rules[len(rules)-1].Pattern)

	t.Run("returns a copy", func(t *testing.T) {
		rules[0].Category = "mutated"
		assert.Equal(t, "Charges (Agent Withdrawal)", DefaultRules()[0].Category)
	})
}

func TestLoadRules(t *testing.T) {
	t.Run("keeps file order", func(t *testing.T) {
		src := `
rules:
  - pattern: Pay Bill to
    category: Bills
    description: paybill spend
  - pattern: Pay Bill Fuliza
    category: Fuliza Bills
`
		rules, err := LoadRules(strings.NewReader(src))
		require.NoError(t, err)
		require.Len(t, rules, 2)
		assert.Equal(t, Rule{Pattern: "Pay Bill to", Category: "Bills", Description: "paybill spend"}, rules[0])
		assert.Equal(t, "Fuliza Bills", rules[1].Category)
	})

	t.Run("empty document", func(t *testing.T) {
		_, err := LoadRules(strings.NewReader(""))
		assert.ErrorIs(t, err, ErrEmptyRuleTable)
	})

	t.Run("no rules", func(t *testing.T) {
		_, err := LoadRules(strings.NewReader("rules: []\n"))
		assert.ErrorIs(t, err, ErrEmptyRuleTable)
	})

	t.Run("empty pattern", func(t *testing.T) {
		_, err := LoadRules(strings.NewReader("rules:\n  - pattern: \"\"\n    category: X\n"))
		assert.ErrorIs(t, err, ErrInvalidRule)
	})

	t.Run("missing category", func(t *testing.T) {
		_, err := LoadRules(strings.NewReader("rules:\n  - pattern: foo\n"))
		assert.ErrorIs(t, err, ErrInvalidRule)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := LoadRules(strings.NewReader("rules:\n  - pattern: foo\n    categry: X\n"))
		assert.Error(t, err)
	})
}

func TestWriteRules_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRules(&buf, DefaultRules()))

	rules, err := LoadRules(&buf)
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)
}

func TestLoadRulesFile(t *testing.T) {
	t.Run("empty path gives defaults", func(t *testing.T) {
		rules, err := LoadRulesFile("")
		require.NoError(t, err)
		assert.Equal(t, DefaultRules(), rules)
	})

	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte("rules:\n  - pattern: kplc\n    category: Power\n"), 0o644))

		rules, err := LoadRulesFile(path)
		require.NoError(t, err)
		assert.Equal(t, []Rule{{Pattern: "kplc", Category: "Power"}}, rules)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRulesFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
