package format

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/smallbiznis/tradebooks/internal/config"
)

// NumberFormat describes how a document number is assembled from its parts:
//
//	prefix + shopCode + "/" + customerCode + separator + zero-padded sequence
//
// e.g. "I-MAIN/CUST001-001".
type NumberFormat struct {
	Prefix    string
	Separator string
	Width     int
}

// DefaultFormat matches the historical invoice numbering scheme.
var DefaultFormat = NumberFormat{Prefix: "I-", Separator: "-", Width: 3}

// ParsedNumber is the result of decomposing a document number.
type ParsedNumber struct {
	Prefix       string
	ShopCode     string
	CustomerCode string
	Sequence     int64
}

// InvoiceFormat builds the invoice number format from configuration.
func InvoiceFormat(cfg config.NumberConfig) NumberFormat {
	return NumberFormat{Prefix: cfg.InvoicePrefix, Separator: cfg.Separator, Width: cfg.SequenceWidth}
}

// QuotationFormat builds the quotation number format from configuration.
func QuotationFormat(cfg config.NumberConfig) NumberFormat {
	return NumberFormat{Prefix: cfg.QuotationPrefix, Separator: cfg.Separator, Width: cfg.SequenceWidth}
}

// Format renders a document number. Formatting is pure; allocation happens
// elsewhere.
func (f NumberFormat) Format(shopCode, customerCode string, seq int64) (string, error) {
	if shopCode == "" || customerCode == "" {
		return "", fmt.Errorf("document number needs both shop and customer codes")
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid document sequence: %d", seq)
	}
	width := f.Width
	if width <= 0 {
		width = DefaultFormat.Width
	}
	return fmt.Sprintf("%s%s/%s%s%0*d", f.Prefix, shopCode, customerCode, f.Separator, width, seq), nil
}

// Parse decomposes a document number previously produced by Format. It is a
// total function over the grammar: any string that does not match yields an
// error, never a partial result.
func (f NumberFormat) Parse(number string) (ParsedNumber, error) {
	width := f.Width
	if width <= 0 {
		width = DefaultFormat.Width
	}

	pattern := fmt.Sprintf(`^%s([A-Za-z0-9]+)/([A-Za-z0-9]+)%s(\d{%d,})$`,
		regexp.QuoteMeta(f.Prefix),
		regexp.QuoteMeta(f.Separator),
		width,
	)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return ParsedNumber{}, fmt.Errorf("invalid number format: %w", err)
	}

	match := re.FindStringSubmatch(number)
	if match == nil {
		return ParsedNumber{}, fmt.Errorf("malformed document number: %q", number)
	}

	seq, err := strconv.ParseInt(match[3], 10, 64)
	if err != nil {
		return ParsedNumber{}, fmt.Errorf("malformed document sequence in %q: %w", number, err)
	}

	return ParsedNumber{
		Prefix:       f.Prefix,
		ShopCode:     match[1],
		CustomerCode: match[2],
		Sequence:     seq,
	}, nil
}
