package core

import (
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is the region used for numbers written without a
// country code when no region is configured.
const DefaultPhoneRegion = "IN"

// MinFallbackPhoneDigits is the shortest digit string kept when a phone
// number fails strict validation.
const MinFallbackPhoneDigits = 8

// NormalizeEmail lowercases an email and removes all whitespace.
// No RFC validation is attempted.
func NormalizeEmail(s string) pgtype.Text {
	if IsNull(s) {
		return pgtype.Text{}
	}
	e := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	if e == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: e, Valid: true}
}

// NormalizePhone formats a phone number as E.164 when it parses as a valid
// number for region. A '+' number that fails is retried as national digits.
// Otherwise it falls back to the bare digits if at least
// MinFallbackPhoneDigits remain. Re-normalizing a result returns it unchanged.
func NormalizePhone(s, region string) pgtype.Text {
	if IsNull(s) {
		return pgtype.Text{}
	}
	if region == "" {
		region = DefaultPhoneRegion
	}
	region = strings.ToUpper(region)

	cleaned := stripPhone(s)
	if cleaned == "" {
		return pgtype.Text{}
	}

	if e164, ok := formatE164(cleaned, region); ok {
		return pgtype.Text{String: e164, Valid: true}
	}

	digits := strings.TrimPrefix(cleaned, "+")
	if digits != cleaned {
		if e164, ok := formatE164(digits, region); ok {
			return pgtype.Text{String: e164, Valid: true}
		}
	}
	if len(digits) < MinFallbackPhoneDigits {
		return pgtype.Text{}
	}
	return pgtype.Text{String: digits, Valid: true}
}

func formatE164(number, region string) (string, bool) {
	num, err := phonenumbers.Parse(number, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", false
	}
	return phonenumbers.Format(num, phonenumbers.E164), true
}

// stripPhone keeps digits and a single leading '+'.
func stripPhone(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "+" {
		return ""
	}
	return out
}

// TitleCase upper-cases the first letter of every run of letters and
// lower-cases the rest ("new DELHI" -> "New Delhi", "o'neil" -> "O'Neil").
// Blank and null-marker input is absent.
func TitleCase(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if IsNull(s) {
		return pgtype.Text{}
	}

	prevLetter := false
	out := strings.Map(func(r rune) rune {
		wasLetter := prevLetter
		prevLetter = unicode.IsLetter(r)
		switch {
		case !prevLetter:
			return r
		case wasLetter:
			return unicode.ToLower(r)
		default:
			return unicode.ToTitle(r)
		}
	}, s)

	return pgtype.Text{String: out, Valid: true}
}
