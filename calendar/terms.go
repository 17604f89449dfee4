package calendar

import (
	"fmt"
	"strconv"
	"strings"
)

// PaymentTerms is the number of days between an invoice date and its due date.
type PaymentTerms struct {
	DueIn int
}

// Net returns "Net N" payment terms.
func Net(days int) PaymentTerms { return PaymentTerms{DueIn: days} }

// DefaultPaymentTerms is Net 30.
var DefaultPaymentTerms = Net(30)

func (p PaymentTerms) String() string { return fmt.Sprintf("Net %d", p.DueIn) }

// ParsePaymentTerms parses text such as "Net 30" or "net30".
func ParsePaymentTerms(s string) (PaymentTerms, error) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) < 3 || !strings.EqualFold(trimmed[:3], "net") {
		return PaymentTerms{}, fmt.Errorf("%w: %q", ErrFailedToParsePaymentTerms, s)
	}
	days, err := strconv.Atoi(strings.TrimSpace(trimmed[3:]))
	if err != nil || days < 0 {
		return PaymentTerms{}, fmt.Errorf("%w: %q", ErrFailedToParsePaymentTerms, s)
	}
	return Net(days), nil
}

func (p PaymentTerms) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *PaymentTerms) UnmarshalText(text []byte) error {
	parsed, err := ParsePaymentTerms(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
