package core

// convert.go provides "parse or absent" coercions from raw CSV text to
// nullable pgtype values.
//
// These functions handle the messy reality of generated and hand-edited data:
//   - Null markers ("", "NA", "NaN")
//   - Integral ids written as decimals ("12.0")
//   - Currency symbols, thousand separators and accounting negatives in money
//   - Many date and timestamp layouts, with or without an offset
//   - Excel text wrappers (="00123") around otherwise plain cells
//
// No function in this file returns an error. Unparseable input yields a value
// with Valid=false so absence stays distinguishable from zero.

import (
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// nullMarkers are the raw cell values treated as missing data.
var nullMarkers = map[string]bool{
	"":    true,
	"NA":  true,
	"NaN": true,
}

// Timestamp layouts tried in order. Layouts carrying a zone come first so an
// explicit offset is never discarded by a naive match.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05 -0700",
		"2006-01-02 15:04:05 -0700 MST",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"2006/01/02 15:04:05",
		"2006/01/02",
		"2006.01.02",
		"1/2/2006 15:04:05",
		"1/2/2006 15:04",
		"1/2/2006",
		"01/02/2006",
		"1-2-2006",
		"01-02-2006",
		"1.2.2006",
		"01.02.2006",
		"Jan 2, 2006",
		"2 Jan 2006",
		"20060102",
	}
)

// TimestampLayout is the serialization format for every cleaned timestamp.
const TimestampLayout = "2006-01-02T15:04:05Z"

// CleanCell trims whitespace and unwraps an Excel text cell (="00123").
// Quotes inside a value are data and are kept.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 3 && strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) {
		s = strings.TrimSpace(s[2 : len(s)-1])
	}
	return s
}

// IsNull reports whether a raw cell value is one of the null markers.
func IsNull(s string) bool {
	return nullMarkers[strings.TrimSpace(s)]
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is a null marker or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if IsNull(s) {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ParseInt converts a string to pgtype.Int8.
// Integral decimals such as "12.0" are accepted; fractions and junk are not.
func ParseInt(s string) pgtype.Int8 {
	s = strings.TrimSpace(s)
	if IsNull(s) {
		return pgtype.Int8{}
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return pgtype.Int8{Int64: i, Valid: true}
	}

	if !numericRegex.MatchString(s) {
		return pgtype.Int8{}
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok || !r.IsInt() || !r.Num().IsInt64() {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: r.Num().Int64(), Valid: true}
}

// ParsePositiveInt is ParseInt restricted to values > 0.
func ParsePositiveInt(s string) pgtype.Int8 {
	v := ParseInt(s)
	if !v.Valid || v.Int64 <= 0 {
		return pgtype.Int8{}
	}
	return v
}

// ParseNonNegativeInt is ParseInt restricted to values >= 0.
func ParseNonNegativeInt(s string) pgtype.Int8 {
	v := ParseInt(s)
	if !v.Valid || v.Int64 < 0 {
		return pgtype.Int8{}
	}
	return v
}

// ParseDate converts a string to a UTC pgtype.Timestamptz.
// Values without a zone are read as UTC. Unparseable input is absent.
func ParseDate(s string) pgtype.Timestamptz {
	s = strings.TrimSpace(s)
	if IsNull(s) {
		return pgtype.Timestamptz{}
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return pgtype.Timestamptz{Time: t, Valid: true}
		}
	}

	return pgtype.Timestamptz{}
}

// FormatTimestamp renders a timestamp in TimestampLayout, or "" when absent.
func FormatTimestamp(ts pgtype.Timestamptz) string {
	if !ts.Valid {
		return ""
	}
	return ts.Time.UTC().Format(TimestampLayout)
}

// ParseMoney converts a string to pgtype.Numeric.
// Handles currency symbols, thousands separators, and accounting format (parentheses for negative).
func ParseMoney(s string) pgtype.Numeric {
	s = strings.TrimSpace(s)
	if IsNull(s) {
		return pgtype.Numeric{}
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.NewReplacer(
		"$", "",
		"€", "", // Euro
		"£", "", // Pound
		"₹", "", // Rupee
		"Rs.", "",
		"INR", "",
		",", "",
	).Replace(s)
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{}
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{}
	}
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return pgtype.Numeric{}
	}

	return n
}

// TextValue returns the string of a pgtype.Text, or "" when absent.
func TextValue(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

// IntValue renders a pgtype.Int8 as decimal text, or "" when absent.
func IntValue(i pgtype.Int8) string {
	if !i.Valid {
		return ""
	}
	return strconv.FormatInt(i.Int64, 10)
}
