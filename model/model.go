package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix.
// This is useful for creating unique identifiers with context-specific prefixes.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	uuidStr := id.String()
	idWithSuffix := fmt.Sprintf("%s_%s", module, uuidStr)
	return idWithSuffix
}

// NormalizePhone converts a subscriber phone number to the single
// international format the gateway accepts (254XXXXXXXXX). A leading "+" is
// stripped, a leading "0" is swapped for the country code, a bare local number
// is prefixed with the country code. Anything that does not end up as twelve
// digits is rejected before any network call is made.
func NormalizePhone(raw string) (string, error) {
	phone := strings.TrimSpace(raw)
	phone = strings.TrimPrefix(phone, "+")

	if phone == "" {
		return "", errors.New("phone number is required")
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("phone number %q contains non-digit characters", raw)
		}
	}

	switch {
	case strings.HasPrefix(phone, "0"):
		phone = "254" + phone[1:]
	case strings.HasPrefix(phone, "254"):
		// already international
	default:
		phone = "254" + phone
	}

	if len(phone) != 12 {
		return "", fmt.Errorf("phone number %q does not normalize to a valid subscriber number", raw)
	}
	return phone, nil
}

// AmountFromValue converts a loosely-typed amount from a callback payload into
// whole shillings. The gateway sends amounts as JSON numbers or strings
// depending on the endpoint; decimal keeps the conversion exact.
func AmountFromValue(value interface{}) (int64, error) {
	switch v := value.(type) {
	case float64:
		return decimal.NewFromFloat(v).IntPart(), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return 0, fmt.Errorf("invalid amount value %q", v)
		}
		return d.IntPart(), nil
	default:
		return 0, fmt.Errorf("unsupported amount type %T", value)
	}
}
