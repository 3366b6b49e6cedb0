package mpesa

import (
	"fmt"
	"strings"
)

// NormalizePhoneNumber converts local or international input into the
// country-code-prefixed digits the provider expects, e.g. 0712345678 -> 254712345678.
func NormalizePhoneNumber(phone, countryCode string) (string, error) {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}

	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
	cleaned = strings.TrimPrefix(cleaned, "+")

	if cleaned == "" {
		return "", fmt.Errorf("%w: phone number is required", ErrValidationFailed)
	}

	if strings.HasPrefix(cleaned, "0") {
		cleaned = countryCode + cleaned[1:]
	}

	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: phone number %q contains non-digit characters", ErrValidationFailed, phone)
		}
	}

	if len(cleaned) < 9 || len(cleaned) > 15 {
		return "", fmt.Errorf("%w: phone number %q has invalid length", ErrValidationFailed, phone)
	}

	return cleaned, nil
}
