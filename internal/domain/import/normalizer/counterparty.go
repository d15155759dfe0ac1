package normalizer

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TransferKind says which way a person-to-person transfer moved.
type TransferKind string

const (
	TransferNone    TransferKind = ""
	TransferSend    TransferKind = "send"
	TransferReceive TransferKind = "receive"
)

// CounterpartyInfo is the other party of a transfer as printed in the details.
type CounterpartyInfo struct {
	OriginalDetails string       `json:"original_details"`
	MaskedNumber    string       `json:"masked_number,omitempty"`
	Name            string       `json:"name,omitempty"`
	Kind            TransferKind `json:"kind,omitempty"`
}

// maskedNumberPattern matches the masked phone number that precedes the party name,
// e.g. "0722******123 JANE DOE".
var maskedNumberPattern = regexp.MustCompile(`(?s)(\d{3}\*{6}\d{3})\s+(.*)`)

// Default details prefixes of person-to-person transfers.
var (
	DefaultSendKeywords    = []string{"Customer Transfer Fuliza MPesa", "Customer Transfer to -"}
	DefaultReceiveKeywords = []string{"Funds received from -"}
)

// CounterpartyExtractor finds the sender or recipient name in transfer details.
type CounterpartyExtractor struct {
	send    []string
	receive []string
}

// NewCounterpartyExtractor creates an extractor with the M-PESA transfer keywords.
func NewCounterpartyExtractor() *CounterpartyExtractor {
	return NewCounterpartyExtractorWithKeywords(DefaultSendKeywords, DefaultReceiveKeywords)
}

// NewCounterpartyExtractorWithKeywords creates an extractor with custom keywords.
// Keywords match case-insensitively anywhere in the details.
func NewCounterpartyExtractorWithKeywords(send, receive []string) *CounterpartyExtractor {
	return &CounterpartyExtractor{
		send:    lowerAll(send),
		receive: lowerAll(receive),
	}
}

// Kind classifies details as a send, a receive or neither.
func (e *CounterpartyExtractor) Kind(details string) TransferKind {
	lower := strings.ToLower(strings.ReplaceAll(details, "\n", " "))
	for _, k := range e.send {
		if strings.Contains(lower, k) {
			return TransferSend
		}
	}
	for _, k := range e.receive {
		if strings.Contains(lower, k) {
			return TransferReceive
		}
	}
	return TransferNone
}

// Extract returns the counterparty of details. Name is empty when the details carry
// no masked number.
func (e *CounterpartyExtractor) Extract(details string) CounterpartyInfo {
	info := CounterpartyInfo{
		OriginalDetails: details,
		Kind:            e.Kind(details),
	}

	flat := strings.ReplaceAll(details, "\n", " ")
	m := maskedNumberPattern.FindStringSubmatch(flat)
	if m == nil {
		return info
	}
	info.MaskedNumber = m[1]
	info.Name = titleCase(m[2])
	return info
}

// Name is Extract reduced to the display name.
func (e *CounterpartyExtractor) Name(details string) (string, bool) {
	info := e.Extract(details)
	return info.Name, info.Name != ""
}

// titleCase collapses whitespace and title-cases s. Casers are stateful, so each
// call gets its own.
func titleCase(s string) string {
	return cases.Title(language.Und).String(strings.Join(strings.Fields(s), " "))
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
