package categorization

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Uncategorized is the category for details no rule matches.
const Uncategorized = "Uncategorized"

// MKopaCategory overrides paybill categories when the details name M-KOPA.
const MKopaCategory = "M-Kopa Payment"

var (
	ErrEmptyRuleTable = errors.New("rule table is empty")
	ErrInvalidRule    = errors.New("invalid rule")
)

// Rule maps a details substring to a category. Matching is case-insensitive.
type Rule struct {
	Pattern     string `yaml:"pattern" json:"pattern"`
	Category    string `yaml:"category" json:"category"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// defaultRules is evaluated top to bottom and the first hit wins, so a broad pattern
// placed above a narrower one shadows it. The order is part of the behaviour: the Fuliza
// paybill rules sit above "Pay Bill to" so details carrying both resolve to Fuliza.
var defaultRules = []Rule{
	{"Withdrawal Charge", "Charges (Agent Withdrawal)", "Agent withdrawal charges."},
	{"Send Money Reversal", "Reversal Money In", "Money received from a reversal transaction."},
	{"Salary Payment from", "Money In From Bank", "Money received from bank transfers (e.g., salary or other payments)."},
	{"Receive International Zero Rated Transfer", "Money In (Other)", "Money received from international sources."},
	{"Promotion Payment from", "Money In (Promotion)", "Money received from promotions and betting winnings."},
	{"Pay Merchant Charge", "Charges (Till)", "Charges for payments to merchants."},
	{"Pay Utility Reversal", "Reversal Money In", "Money received from a reversal of utility payments."},
	{"Pay Bill Fuliza M-Pesa to", "Fuliza Spending (Business Paybill)", "Payments made to PayBill numbers using Fuliza overdraft."},
	{"Pay Bill Online Fuliza M-Pesa to", "Fuliza Spending (Business Paybill)", "Online payments made to PayBill numbers using Fuliza overdraft."},
	{"Pay Bill to", "Business Spending (Paybill)", "Payments made to PayBill numbers (e.g., KPLC, utilities, services)."},
	{"Pay Bill Charge", "Charges (Paybill)", "Transaction fees for Paybill payments."},
	{"Pay Bill Online to", "Business Spending (Paybill)", "Online payments made to PayBill numbers."},
	{"Overdraft of Credit Party", "Fuliza Money In", "Fuliza overdraft used."},
	{"OD Loan Repayment", "Fuliza Deduction", "Repayment of Fuliza overdraft loans."},
	{"Merchant Payment", "Business Spending (Till)", "Payments to businesses via M-Pesa till numbers."},
	{"Merchant Customer Payment", "Money In From Till", "Payments from businesses via M-Pesa till numbers."},
	{"Merchant Payment Online to", "Business Spending (Till)", "Payments made online to businesses via till numbers."},
	{"Merchant Payment Fuliza", "Fuliza Spending (Till)", "Payments to businesses using Fuliza overdraft."},
	{"M-Shwari Withdraw", "M-Shwari Withdrawal", "Withdrawals from M-Shwari savings."},
	{"M-Shwari Deposit", "M-Shwari Deposit", "Deposits to M-Shwari savings."},
	{"M-Shwari Lock Activate and Save", "Deposit to M-Shwari Locked Savings", "Transfers made to M-Shwari locked savings accounts."},
	{"Funds received from", "Funds From Individual", "Money sent by individuals."},
	{"Customer Withdrawal At Agent Till", "Agent Withdrawals", "Withdrawals made at M-Pesa agent tills."},
	{"Customer Transfer to", "Send Money to Individual", "Money sent to individuals."},
	{"Customer Transfer of Funds Charge", "Charges (Send Money)", "Transaction fees for transferring money to individuals."},
	{"Customer Transfer Fuliza MPesa", "Fuliza Funds to Individual", "Money sent to individuals using Fuliza overdraft."},
	{"Customer Transfer Fuliza M-Pesa", "Fuliza Funds to Individual", "Money sent to individuals using Fuliza overdraft."},
	{"Customer Send Money to Micro SME Business", "Pochi La Biashara", "Payments to small businesses."},
	{"Customer Payment to Small Business", "Pochi La Biashara", "Payments to small businesses (Pochi La Biashara)."},
	{"Customer Bundle Purchase with Fuliza", "Fuliza Airtime Purchase", "Data bundles purchased using Fuliza overdraft."},
	{"Customer Bundle Purchase", "Airtime/Data Spending", "Data bundles purchased online."},
	{"Buy Bundles Online", "Airtime/Data Spending", "Online purchase of bundles."},
	{"Buy Bundles", "Airtime/Data Spending", "Offline purchase of bundles."},
	{"Business Payment from", "Money In From Bank", "Money received from a bank."},
	{"Airtime Purchase with Fuliza", "Fuliza Airtime Purchase", "Airtime purchased using Fuliza overdraft."},
	{"Airtime Purchase", "Airtime/Data Spending", "Regular airtime purchase."},
	{"Airtime Purchase Reversal", "Reversal Money In", "Reversed airtime purchase."},
	{"Offnet B2C Transfer by", "Money In from Airtel Money", "Money sent from Airtel Money."},
	{"Offnet C2B Transfer to 585555", "Send to Airtel Money", "Airtel Money purchase."},
	{"Uncategorized", "Uncategorized", "Transactions without details or with unrecognized patterns."},
	{"Deposit of Funds at Agent Till", "M-Pesa Agent Deposit", "Deposits at M-PESA agents."},
	{"Small Business Payment to", "Money in From Pochi La Biashara", "Money in from small business."},
	{"Business Payment", "Money in From Business Till", "Money in from business till."},
	{"M-KOPA", "M-Kopa Payment", "Payment for hire purchase device."},
}

// DefaultRules returns a copy of the built-in M-PESA rule table.
func DefaultRules() []Rule {
	out := make([]Rule, len(defaultRules))
	copy(out, defaultRules)
	return out
}

// ValidateRules checks that every rule has a pattern and a category.
func ValidateRules(rules []Rule) error {
	if len(rules) == 0 {
		return ErrEmptyRuleTable
	}
	for i, r := range rules {
		if strings.TrimSpace(r.Pattern) == "" {
			return fmt.Errorf("%w: rule %d has an empty pattern", ErrInvalidRule, i+1)
		}
		if strings.TrimSpace(r.Category) == "" {
			return fmt.Errorf("%w: rule %d (%q) has an empty category", ErrInvalidRule, i+1, r.Pattern)
		}
	}
	return nil
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads an ordered rule table from YAML:
//
//	rules:
//	  - pattern: Pay Bill to
//	    category: Business Spending (Paybill)
func LoadRules(r io.Reader) ([]Rule, error) {
	var f ruleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyRuleTable
		}
		return nil, fmt.Errorf("failed to decode rule table: %w", err)
	}
	if err := ValidateRules(f.Rules); err != nil {
		return nil, err
	}
	return f.Rules, nil
}

// LoadRulesFile reads a rule table from path. An empty path yields the default table.
func LoadRulesFile(path string) ([]Rule, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule table: %w", err)
	}
	defer f.Close()
	return LoadRules(f)
}

// WriteRules encodes rules in the format LoadRules reads.
func WriteRules(w io.Writer, rules []Rule) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ruleFile{Rules: rules}); err != nil {
		return fmt.Errorf("failed to encode rule table: %w", err)
	}
	return enc.Close()
}
