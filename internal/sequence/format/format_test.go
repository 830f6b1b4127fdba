package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDefault(t *testing.T) {
	number, err := DefaultFormat.Format("MAIN", "CUST001", 1)
	require.NoError(t, err)
	assert.Equal(t, "I-MAIN/CUST001-001", number)

	number, err = DefaultFormat.Format("MAIN", "CUST001", 42)
	require.NoError(t, err)
	assert.Equal(t, "I-MAIN/CUST001-042", number)

	// Sequences wider than the pad width are not truncated.
	number, err = DefaultFormat.Format("MAIN", "CUST001", 12345)
	require.NoError(t, err)
	assert.Equal(t, "I-MAIN/CUST001-12345", number)
}

func TestFormatRejectsBadInput(t *testing.T) {
	_, err := DefaultFormat.Format("", "CUST001", 1)
	assert.Error(t, err)

	_, err = DefaultFormat.Format("MAIN", "", 1)
	assert.Error(t, err)

	_, err = DefaultFormat.Format("MAIN", "CUST001", 0)
	assert.Error(t, err)
}

func TestParseRoundTrip(t *testing.T) {
	number, err := DefaultFormat.Format("MAIN", "CUST001", 7)
	require.NoError(t, err)

	parsed, err := DefaultFormat.Parse(number)
	require.NoError(t, err)
	assert.Equal(t, "I-", parsed.Prefix)
	assert.Equal(t, "MAIN", parsed.ShopCode)
	assert.Equal(t, "CUST001", parsed.CustomerCode)
	assert.Equal(t, int64(7), parsed.Sequence)
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"I-MAIN",
		"I-MAIN/CUST001",
		"I-MAIN/CUST001-",
		"I-MAIN/CUST001-7",      // below pad width
		"X-MAIN/CUST001-001",    // wrong prefix
		"I-MAIN-CUST001-001",    // missing slash
		"I-MAIN/CUST001_001",    // wrong separator
		"I-MA IN/CUST001-001",   // whitespace in code
		"I-MAIN/CUST001-001abc", // trailing junk
	}
	for _, raw := range cases {
		_, err := DefaultFormat.Parse(raw)
		assert.Error(t, err, "expected parse failure for %q", raw)
	}
}

func TestParseQuotationPrefix(t *testing.T) {
	quotation := NumberFormat{Prefix: "Q-", Separator: "-", Width: 3}

	number, err := quotation.Format("MAIN", "CUST001", 3)
	require.NoError(t, err)
	assert.Equal(t, "Q-MAIN/CUST001-003", number)

	_, err = quotation.Parse("I-MAIN/CUST001-003")
	assert.Error(t, err)
}
