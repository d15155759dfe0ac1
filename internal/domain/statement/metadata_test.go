package statement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const firstPageText = `M-PESA STATEMENT
Customer Name: JANE WANJIRU
Mobile Number: 0712345678
Email Address: Jane.Wanjiru@Example.COM
Statement Period: 01 Jan 2024 - 31 Mar 2024
Request Date: 01 Apr 2024
SUMMARY`

func TestExtractMetadata(t *testing.T) {
	now := time.Date(2024, time.April, 11, 9, 30, 0, 0, time.UTC)
	last := "Page 4 of 4\nStatement Verification Code\n\nAB12CD34\n"

	md := ExtractMetadata(ptr(firstPageText), ptr(last), now)

	require.NotNil(t, md.CustomerName)
	assert.Equal(t, "Jane Wanjiru", *md.CustomerName)

	require.NotNil(t, md.MobileNumber)
	assert.Equal(t, "+254712345678", *md.MobileNumber)

	require.NotNil(t, md.EmailAddress)
	assert.Equal(t, "jane.wanjiru@example.com", *md.EmailAddress)

	require.NotNil(t, md.StatementPeriod)
	assert.Equal(t, "01 Jan 2024 - 31 Mar 2024", md.StatementPeriod.String())

	require.NotNil(t, md.RequestDate)
	assert.Equal(t, "01 Apr 2024", *md.RequestDate)

	require.NotNil(t, md.StatementAge)
	assert.False(t, md.StatementAge.Invalid)
	assert.Equal(t, 10, md.StatementAge.Days)

	require.NotNil(t, md.VerificationCode)
	assert.Equal(t, "AB12CD34", *md.VerificationCode)
}

func TestExtractMetadata_AbsentFields(t *testing.T) {
	t.Run("nil pages", func(t *testing.T) {
		md := ExtractMetadata(nil, nil, time.Now())
		assert.Equal(t, Metadata{}, md)
	})

	t.Run("no labels", func(t *testing.T) {
		text := "nothing to see here"
		md := ExtractMetadata(&text, &text, time.Now())
		assert.Nil(t, md.CustomerName)
		assert.Nil(t, md.MobileNumber)
		assert.Nil(t, md.EmailAddress)
		assert.Nil(t, md.StatementPeriod)
		assert.Nil(t, md.RequestDate)
		assert.Nil(t, md.StatementAge)
		assert.Nil(t, md.VerificationCode)
	})

	t.Run("mobile number needs ten digits", func(t *testing.T) {
		text := "Mobile Number: 071234567"
		md := ExtractMetadata(&text, nil, time.Now())
		assert.Nil(t, md.MobileNumber)
	})
}

func TestExtractMetadata_NameCleanup(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"bleeds into next label", "Customer Name: JOHN DOE\nMobile Number: 0700000000", "John Doe"},
		{"null placeholder", "Customer Name: NULL\nMobile Number: 0700000000", ""},
		{"mixed case", "Customer Name: aMoS kIpRoNo 254", "Amos Kiprono"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := ExtractMetadata(&tt.text, nil, time.Now())
			require.NotNil(t, md.CustomerName)
			assert.Equal(t, tt.want, *md.CustomerName)
		})
	}
}

func TestNormalizeMobileNumber(t *testing.T) {
	assert.Equal(t, "+254712345678", NormalizeMobileNumber("0712345678"))
	assert.Equal(t, "+254112345678", NormalizeMobileNumber("0112345678"))
	assert.Equal(t, "", NormalizeMobileNumber(""))
}

func TestComputeStatementAge(t *testing.T) {
	t.Run("whole days", func(t *testing.T) {
		now := time.Date(2024, time.January, 11, 0, 0, 0, 0, time.UTC)
		age := ComputeStatementAge("01 Jan 2024", now)
		assert.False(t, age.Invalid)
		assert.Equal(t, 10, age.Days)
		assert.Equal(t, "10 days", age.String())
	})

	t.Run("single digit day", func(t *testing.T) {
		now := time.Date(2024, time.November, 20, 12, 0, 0, 0, time.UTC)
		age := ComputeStatementAge("9 Nov 2024", now)
		assert.Equal(t, 11, age.Days)
	})

	t.Run("full month name is not day-month-year", func(t *testing.T) {
		age := ComputeStatementAge("19 November 2024", time.Now())
		assert.True(t, age.Invalid)
		assert.Equal(t, "Invalid Request Date Format", age.String())
	})

	t.Run("request date pattern with bad month still reports marker", func(t *testing.T) {
		text := "Request Date: 19 Foo 2024"
		md := ExtractMetadata(&text, nil, time.Now())
		require.NotNil(t, md.RequestDate)
		require.NotNil(t, md.StatementAge)
		assert.True(t, md.StatementAge.Invalid)
	})
}

func TestExtractVerificationCode(t *testing.T) {
	tests := []struct {
		name string
		text string
		want *string
	}{
		{"blank lines between", "Statement Verification Code\n\nAB12CD34", ptr("AB12CD34")},
		{"same line", "Statement Verification Code QWERTY12 end", ptr("QWERTY12")},
		{"trailing page text", "Statement Verification Code\r\n  ZX98CV76\nPage 2 of 2", ptr("ZX98CV76")},
		{"longer run", "Statement Verification Code\n\n12345678901", nil},
		{"text before code", "Statement Verification Code\nPage 2 of 2 Disclaimer ABCDEFGHIJKL", nil},
		{"words before code", "Statement Verification Code\nplease verify\nZX98CV76", nil},
		{"lowercase code", "Statement Verification Code\nab12cd34", nil},
		{"missing phrase", "AB12CD34 but no label", nil},
		{"no code after phrase", "Statement Verification Code\nnone", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractVerificationCode(tt.text))
		})
	}
}
