package insights

import (
	"fmt"
	"sort"
	"strings"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/statement"
	"github.com/FACorreiaa/mpesa-analyzer/pkg/money"
)

// ArchetypeID constants
const (
	ArchetypeFulizaRegular  = "fuliza_regular"
	ArchetypeNightOwl       = "night_owl"
	ArchetypeWeekendWarrior = "weekend_warrior"
	ArchetypeAirtimeTopper  = "airtime_topper"
	ArchetypeSteadySaver    = "steady_saver"
	ArchetypeBillPayer      = "bill_payer"
	ArchetypeCashCarrier    = "cash_carrier"
	ArchetypeGenerousSender = "generous_sender"
)

// Archetype represents a behavioral archetype
type Archetype struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Emoji       string `json:"emoji"`
	Description string `json:"description"`
	Rank        int    `json:"rank"`
	// Share is the percentage of spending behind the match.
	Share float64 `json:"share"`
}

// ArchetypeRule defines a rule for detecting an archetype
type ArchetypeRule struct {
	ID          string
	Title       string
	Emoji       string
	Description func(stats *SpendingStats, share float64) string
	Matcher     func(stats *SpendingStats) (bool, float64) // Returns match and share
}

// SpendingStats contains aggregated outgoing amounts for archetype detection, in
// minor units.
type SpendingStats struct {
	TotalSpendMinor     int64
	CategorySpend       map[string]int64
	WeekendSpendPercent float64
	NightSpendPercent   float64 // Spend from 10pm to 5am
	TransactionCount    int
}

// share returns the percentage of total spend that went to categories.
func (s *SpendingStats) share(categories ...string) (float64, int64) {
	var sum int64
	for _, c := range categories {
		sum += s.CategorySpend[c]
	}
	if s.TotalSpendMinor == 0 {
		return 0, sum
	}
	return float64(sum) / float64(s.TotalSpendMinor) * 100, sum
}

// matchingShare is share over every category whose name contains substr.
func (s *SpendingStats) matchingShare(substr string) (float64, int64) {
	var names []string
	for c := range s.CategorySpend {
		if strings.Contains(c, substr) {
			names = append(names, c)
		}
	}
	return s.share(names...)
}

func kes(minor int64) string {
	return money.New(minor, money.KES).Display()
}

// archetypeRules defines all archetype detection rules
var archetypeRules = []ArchetypeRule{
	{
		ID:    ArchetypeFulizaRegular,
		Title: "Fuliza Regular",
		Emoji: "💳",
		Description: func(s *SpendingStats, share float64) string {
			return fmt.Sprintf("%.0f%% of your spending went through Fuliza", share)
		},
		Matcher: func(s *SpendingStats) (bool, float64) {
			share, _ := s.matchingShare("Fuliza")
			return share >= 20, share
		},
	},
	{
		ID:    ArchetypeNightOwl,
		Title: "Night Owl",
		Emoji: "🦉",
		Description: func(s *SpendingStats, share float64) string {
			return fmt.Sprintf("%.0f%% of your spending happens after 10pm", share)
		},
		Matcher: func(s *SpendingStats) (bool, float64) {
			return s.NightSpendPercent >= 30, s.NightSpendPercent
		},
	},
	{
		ID:    ArchetypeWeekendWarrior,
		Title: "Weekend Warrior",
		Emoji: "🎉",
		Description: func(s *SpendingStats, share float64) string {
			return fmt.Sprintf("%.0f%% of your spending is on weekends", share)
		},
		Matcher: func(s *SpendingStats) (bool, float64) {
			return s.WeekendSpendPercent >= 60, s.WeekendSpendPercent
		},
	},
	{
		ID:    ArchetypeAirtimeTopper,
		Title: "Airtime Topper",
		Emoji: "📱",
		Description: func(s *SpendingStats, share float64) string {
			_, sum := s.share("Airtime/Data Spending", "Fuliza Airtime Purchase")
			return fmt.Sprintf("You spent %s on airtime and bundles", kes(sum))
		},
		Matcher: func(s *SpendingStats) (bool, float64) {
			share, sum := s.share("Airtime/Data Spending", "Fuliza Airtime Purchase")
			return sum >= 200000, share // KSh 2,000+
		},
	},
	{
		ID:    ArchetypeSteadySaver,
		Title: "Steady Saver",
		Emoji: "🏦",
		Description: func(s *SpendingStats, share float64) string {
			_, sum := s.share(CategorySavingsDeposit, "Deposit to M-Shwari Locked Savings")
			return fmt.Sprintf("You moved %s into M-Shwari", kes(sum))
		},
		Matcher: func(s *SpendingStats) (bool, float64) {
			share, _ := s.share(CategorySavingsDeposit, "Deposit to M-Shwari Locked Savings")
			return share >= 10, share
		},
	},
	{
		ID:    ArchetypeBillPayer,
		Title: "Bill Payer",
		Emoji: "🧾",
		Description: func(s *SpendingStats, share float64) string {
			return fmt.Sprintf("%.0f%% of your spending goes to Paybill numbers", share)
		},
		Matcher: func(s *SpendingStats) (bool, float64) {
			share, _ := s.share("Business Spending (Paybill)", "Fuliza Spending (Business Paybill)")
			return share >= 30, share
		},
	},
	{
		ID:    ArchetypeCashCarrier,
		Title: "Cash Carrier",
		Emoji: "💵",
		Description: func(s *SpendingStats, share float64) string {
			return fmt.Sprintf("%.0f%% of your money left as cash at agents", share)
		},
		Matcher: func(s *SpendingStats) (bool, float64) {
			share, _ := s.share("Agent Withdrawals")
			return share >= 30, share
		},
	},
	{
		ID:    ArchetypeGenerousSender,
		Title: "Generous Sender",
		Emoji: "🤝",
		Description: func(s *SpendingStats, share float64) string {
			return fmt.Sprintf("%.0f%% of your spending was sent to people", share)
		},
		Matcher: func(s *SpendingStats) (bool, float64) {
			share, _ := s.share("Send Money to Individual", "Fuliza Funds to Individual")
			return share >= 40, share
		},
	},
}

// StatsFrom aggregates the outgoing sub-ledger for archetype detection.
func StatsFrom(outgoing statement.SubLedger) *SpendingStats {
	stats := &SpendingStats{CategorySpend: make(map[string]int64)}
	var weekend, night int64
	for _, tx := range outgoing.Transactions {
		minor := money.KESFromDecimal(amountOf(tx, statement.DirectionOutgoing)).Amount()
		stats.TotalSpendMinor += minor
		stats.CategorySpend[tx.Category] += minor
		stats.TransactionCount++

		if tx.CompletionTime.IsZero() {
			continue
		}
		if weekdayIndex(tx.CompletionTime) >= 5 {
			weekend += minor
		}
		if h := tx.CompletionTime.Hour(); h >= 22 || h < 5 {
			night += minor
		}
	}
	if stats.TotalSpendMinor > 0 {
		stats.WeekendSpendPercent = float64(weekend) / float64(stats.TotalSpendMinor) * 100
		stats.NightSpendPercent = float64(night) / float64(stats.TotalSpendMinor) * 100
	}
	return stats
}

// DetectArchetypes detects behavioral archetypes from spending stats
func DetectArchetypes(stats *SpendingStats) []Archetype {
	if stats == nil || stats.TotalSpendMinor == 0 {
		return nil
	}

	var matched []Archetype
	for _, rule := range archetypeRules {
		if ok, share := rule.Matcher(stats); ok {
			matched = append(matched, Archetype{
				ID:          rule.ID,
				Title:       rule.Title,
				Emoji:       rule.Emoji,
				Description: rule.Description(stats, share),
				Share:       share,
			})
		}
	}

	// Strongest share first, then keep top 3 and assign ranks
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Share > matched[j].Share
	})
	if len(matched) > 3 {
		matched = matched[:3]
	}
	for i := range matched {
		matched[i].Rank = i + 1
	}

	return matched
}
