package geocode

import (
	"errors"
	"fmt"
	"strings"
)

// regionalIndicatorOffset maps 'A' to U+1F1E6 REGIONAL INDICATOR SYMBOL LETTER A.
const regionalIndicatorOffset = 127397

// ErrInvalidCountryCode is returned for anything that is not a two-letter code.
var ErrInvalidCountryCode = errors.New("country code must be two ASCII letters")

// ConvertToEmoji turns an ISO 3166-1 alpha-2 code ("fr", "US") into its flag.
func ConvertToEmoji(countryCode string) (string, error) {
	code := strings.ToUpper(countryCode)
	if len(code) != 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCountryCode, countryCode)
	}

	runes := make([]rune, 0, 2)
	for i := 0; i < len(code); i++ {
		c := code[i]
		if c < 'A' || c > 'Z' {
			return "", fmt.Errorf("%w: %q", ErrInvalidCountryCode, countryCode)
		}
		runes = append(runes, rune(c)+regionalIndicatorOffset)
	}
	return string(runes), nil
}
