package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/statement"
)

func TestDetectArchetypes(t *testing.T) {
	tests := []struct {
		name  string
		stats *SpendingStats
		want  []string
	}{
		{
			name: "fuliza and sender",
			stats: &SpendingStats{
				TotalSpendMinor: 100000,
				CategorySpend: map[string]int64{
					"Fuliza Funds to Individual": 30000,
					"Send Money to Individual":   40000,
					"Business Spending (Till)":   30000,
				},
			},
			want: []string{ArchetypeGenerousSender, ArchetypeFulizaRegular},
		},
		{
			name: "night owl only",
			stats: &SpendingStats{
				TotalSpendMinor:   100000,
				CategorySpend:     map[string]int64{"Business Spending (Till)": 100000},
				NightSpendPercent: 45,
			},
			want: []string{ArchetypeNightOwl},
		},
		{
			name:  "no spending",
			stats: &SpendingStats{CategorySpend: map[string]int64{}},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectArchetypes(tt.stats)
			var ids []string
			for i, a := range got {
				ids = append(ids, a.ID)
				assert.Equal(t, i+1, a.Rank)
				assert.NotEmpty(t, a.Description)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestDetectArchetypes_KeepsTopThree(t *testing.T) {
	stats := &SpendingStats{
		TotalSpendMinor: 100000,
		CategorySpend: map[string]int64{
			"Fuliza Funds to Individual": 50000,
			"Agent Withdrawals":          50000,
		},
		NightSpendPercent:   90,
		WeekendSpendPercent: 80,
	}
	got := DetectArchetypes(stats)
	require.Len(t, got, 3)
	assert.Equal(t, ArchetypeNightOwl, got[0].ID)
	assert.Equal(t, ArchetypeWeekendWarrior, got[1].ID)
}

func TestStatsFrom(t *testing.T) {
	outgoing := statement.SubLedger{
		Direction: statement.DirectionOutgoing,
		Transactions: []statement.Transaction{
			out("2024-01-06 23:30:00", "Buy Bundles", "Airtime/Data Spending", 100), // Saturday night
			out("2024-01-08 12:00:00", "Buy Bundles", "Airtime/Data Spending", 300), // Monday noon
		},
	}

	stats := StatsFrom(outgoing)
	assert.Equal(t, int64(40000), stats.TotalSpendMinor)
	assert.Equal(t, int64(40000), stats.CategorySpend["Airtime/Data Spending"])
	assert.InDelta(t, 25.0, stats.WeekendSpendPercent, 0.001)
	assert.InDelta(t, 25.0, stats.NightSpendPercent, 0.001)
	assert.Equal(t, 2, stats.TransactionCount)
}
