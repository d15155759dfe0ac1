package statement

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CountryCode replaces the trunk prefix of local Kenyan mobile numbers.
const CountryCode = "+254"

// RequestDateLayout is the day-month-year shape of statement dates ("19 Nov 2024").
const RequestDateLayout = "2 Jan 2006"

var (
	namePattern             = regexp.MustCompile(`Customer Name:\s*([A-Za-z\s]+)`)
	mobilePattern           = regexp.MustCompile(`Mobile Number:\s*(\d{10})`)
	emailPattern            = regexp.MustCompile(`Email Address:\s*([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
	periodPattern           = regexp.MustCompile(`Statement Period:\s*(\d{1,2}\s\w+\s\d{4})\s*-\s*(\d{1,2}\s\w+\s\d{4})`)
	requestDatePattern      = regexp.MustCompile(`Request Date:\s*(\d{1,2}\s\w+\s\d{4})`)
	verificationCodePattern = regexp.MustCompile(`Statement Verification Code\s*\b([A-Z0-9]{8})\b`)
)

// nameNoise is text the alphabetic name capture picks up from neighbouring labels.
var nameNoise = []string{"Null", "Mobile Number"}

// StatementPeriod is the date range printed on the first page, kept verbatim.
type StatementPeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (p StatementPeriod) String() string {
	return p.Start + " - " + p.End
}

// StatementAge is the number of whole days between the request date and processing
// time. Invalid is set when the request date is not in day-month-year form.
type StatementAge struct {
	Days    int  `json:"days"`
	Invalid bool `json:"invalid,omitempty"`
}

func (a StatementAge) String() string {
	if a.Invalid {
		return "Invalid Request Date Format"
	}
	return fmt.Sprintf("%d days", a.Days)
}

// Metadata describes the statement holder and framing. Every field is optional.
type Metadata struct {
	CustomerName     *string          `json:"customer_name,omitempty"`
	MobileNumber     *string          `json:"mobile_number,omitempty"`
	EmailAddress     *string          `json:"email_address,omitempty"`
	StatementPeriod  *StatementPeriod `json:"statement_period,omitempty"`
	RequestDate      *string          `json:"request_date,omitempty"`
	StatementAge     *StatementAge    `json:"statement_age,omitempty"`
	VerificationCode *string          `json:"verification_code,omitempty"`
}

// ExtractMetadata reads holder details from the first page text and the verification
// code from the last page text. It never fails; unmatched fields stay nil.
func ExtractMetadata(firstPage, lastPage *string, now time.Time) Metadata {
	var md Metadata

	if firstPage != nil {
		text := *firstPage

		if m := namePattern.FindStringSubmatch(text); m != nil {
			name := cases.Title(language.Und).String(m[1])
			for _, noise := range nameNoise {
				name = strings.ReplaceAll(name, noise, "")
			}
			md.CustomerName = ptr(strings.TrimSpace(name))
		}

		if m := mobilePattern.FindStringSubmatch(text); m != nil {
			md.MobileNumber = ptr(NormalizeMobileNumber(m[1]))
		}

		if m := emailPattern.FindStringSubmatch(text); m != nil {
			md.EmailAddress = ptr(strings.ToLower(m[1]))
		}

		if m := periodPattern.FindStringSubmatch(text); m != nil {
			md.StatementPeriod = &StatementPeriod{Start: m[1], End: m[2]}
		}

		if m := requestDatePattern.FindStringSubmatch(text); m != nil {
			md.RequestDate = ptr(m[1])
			age := ComputeStatementAge(m[1], now)
			md.StatementAge = &age
		}
	}

	if lastPage != nil {
		md.VerificationCode = ExtractVerificationCode(*lastPage)
	}

	return md
}

// NormalizeMobileNumber turns a 10-digit local number into international form by
// replacing its leading digit with the country code.
func NormalizeMobileNumber(local string) string {
	if local == "" {
		return local
	}
	return CountryCode + local[1:]
}

// ComputeStatementAge returns the whole days elapsed from requestDate to now.
func ComputeStatementAge(requestDate string, now time.Time) StatementAge {
	t, err := time.ParseInLocation(RequestDateLayout, requestDate, now.Location())
	if err != nil {
		return StatementAge{Invalid: true}
	}
	days := math.Floor(now.Sub(t).Hours() / 24)
	return StatementAge{Days: int(days)}
}

// ExtractVerificationCode finds the first 8-character uppercase code following the
// "Statement Verification Code" label, across any whitespace or line breaks.
func ExtractVerificationCode(text string) *string {
	m := verificationCodePattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return ptr(m[1])
}

func ptr[T any](v T) *T {
	return &v
}
