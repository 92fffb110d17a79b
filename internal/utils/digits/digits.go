// Package digits normalizes localized digit forms. User input arrives
// with Persian (۰–۹) or Arabic-Indic (٠–٩) digits at least as often as
// ASCII; every numeric parse in the bot goes through Normalize first.
package digits

import (
	"strconv"
	"strings"
)

var replacer = strings.NewReplacer(
	// Persian
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	// Arabic-Indic
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
)

// Normalize rewrites localized digits to ASCII and trims whitespace.
func Normalize(s string) string {
	return strings.TrimSpace(replacer.Replace(s))
}

// ParseInt normalizes then parses. Returns (0, false) on non-numeric
// input.
func ParseInt(s string) (int, bool) {
	n, err := strconv.Atoi(Normalize(s))
	if err != nil {
		return 0, false
	}
	return n, true
}
