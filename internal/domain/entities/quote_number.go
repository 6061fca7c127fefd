package entities

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	QuoteNumberPrefix = "QT-"
	quoteNumberDigits = 7

	// MaxQuoteSequence is the largest sequence that fits in seven digits.
	MaxQuoteSequence int64 = 9_999_999
)

var quoteNumberPattern = regexp.MustCompile(`^QT-\d{7}$`)

// FormatQuoteNumber renders a sequence as QT-NNNNNNN.
func FormatQuoteNumber(sequence int64) (string, error) {
	if sequence > MaxQuoteSequence {
		return "", fmt.Errorf("%w: %d", ErrSequenceExhausted, sequence)
	}
	if sequence < 1 {
		return "", fmt.Errorf("invalid quote sequence %d", sequence)
	}
	return fmt.Sprintf("%s%0*d", QuoteNumberPrefix, quoteNumberDigits, sequence), nil
}

// ParseQuoteNumber returns the sequence encoded in a QT-NNNNNNN number.
func ParseQuoteNumber(number string) (int64, error) {
	number = strings.TrimSpace(number)
	if !quoteNumberPattern.MatchString(number) {
		return 0, fmt.Errorf("malformed quote number %q", number)
	}
	seq, err := strconv.ParseInt(strings.TrimPrefix(number, QuoteNumberPrefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed quote number %q: %w", number, err)
	}
	return seq, nil
}

// IsQuoteNumber reports whether s is a well-formed quote number.
func IsQuoteNumber(s string) bool {
	return quoteNumberPattern.MatchString(s)
}
