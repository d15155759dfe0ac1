package normalizer

import (
	"testing"
)

func TestCounterpartyExtractor_Extract(t *testing.T) {
	extractor := NewCounterpartyExtractor()

	tests := []struct {
		name         string
		details      string
		expectedName string
		expectedMask string
		expectedKind TransferKind
	}{
		{
			name:         "send money",
			details:      "Customer Transfer to - 0722******123 JOHN KAMAU",
			expectedName: "John Kamau",
			expectedMask: "722******123",
			expectedKind: TransferSend,
		},
		{
			name:         "received funds",
			details:      "Funds received from - 0711******890 MARY  ATIENO",
			expectedName: "Mary Atieno",
			expectedMask: "711******890",
			expectedKind: TransferReceive,
		},
		{
			name:         "name wrapped onto next line",
			details:      "Customer Transfer to - 0722******123 PETER\nOTIENO",
			expectedName: "Peter Otieno",
			expectedMask: "722******123",
			expectedKind: TransferSend,
		},
		{
			name:         "fuliza send",
			details:      "Customer Transfer Fuliza MPesa to - 2547******001 ALICE W",
			expectedName: "Alice W",
			expectedMask: "547******001",
			expectedKind: TransferSend,
		},
		{
			name:         "paybill has no counterparty",
			details:      "Pay Bill to 888880 - KPLC PREPAID",
			expectedName: "",
			expectedMask: "",
			expectedKind: TransferNone,
		},
		{
			name:         "masked number outside a transfer",
			details:      "Merchant Payment 0700******000 SHOP",
			expectedName: "Shop",
			expectedMask: "700******000",
			expectedKind: TransferNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := extractor.Extract(tt.details)
			if info.Name != tt.expectedName {
				t.Errorf("Name = %q, want %q", info.Name, tt.expectedName)
			}
			if info.MaskedNumber != tt.expectedMask {
				t.Errorf("MaskedNumber = %q, want %q", info.MaskedNumber, tt.expectedMask)
			}
			if info.Kind != tt.expectedKind {
				t.Errorf("Kind = %q, want %q", info.Kind, tt.expectedKind)
			}
			if info.OriginalDetails != tt.details {
				t.Errorf("OriginalDetails = %q, want %q", info.OriginalDetails, tt.details)
			}
		})
	}
}

func TestCounterpartyExtractor_Kind(t *testing.T) {
	extractor := NewCounterpartyExtractorWithKeywords([]string{"sent to"}, []string{"got from"})

	if got := extractor.Kind("SENT TO bob"); got != TransferSend {
		t.Errorf("Kind = %q, want send", got)
	}
	if got := extractor.Kind("got\nfrom alice"); got != TransferReceive {
		t.Errorf("Kind = %q, want receive", got)
	}
	if got := extractor.Kind("Customer Transfer to - x"); got != TransferNone {
		t.Errorf("Kind = %q, want none", got)
	}
}

func TestCounterpartyExtractor_Name(t *testing.T) {
	extractor := NewCounterpartyExtractor()

	name, ok := extractor.Name("Funds received from - 0711******890 JANE")
	if !ok || name != "Jane" {
		t.Errorf("Name() = %q, %v", name, ok)
	}

	if _, ok := extractor.Name("Airtime Purchase"); ok {
		t.Error("expected no name")
	}
}
