package gender

import "strings"

// The users table carries gender values written by several generations of
// the bot: Persian labels, English words, single letters, and numeric
// codes. Every equality test must go through this table so that old and
// new rows are treated identically.

// Canonical gender values used internally.
const (
	Male    = "male"
	Female  = "female"
	Unknown = ""
)

// variants maps each canonical value to every encoding known to exist in
// stored data. The canonical value itself is included so Variants() can be
// used directly in SQL IN clauses.
var variants = map[string][]string{
	Male:   {"male", "مرد", "m", "1"},
	Female: {"female", "زن", "f", "2"},
}

// Canonical normalizes a raw stored gender value. Unrecognized or empty
// input yields Unknown.
func Canonical(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return Unknown
	}
	for canon, vs := range variants {
		for _, s := range vs {
			if v == s {
				return canon
			}
		}
	}
	return Unknown
}

// Variants returns every known stored encoding of a gender value.
// Accepts either a canonical value or any historical variant.
func Variants(g string) []string {
	canon := Canonical(g)
	if canon == Unknown {
		return nil
	}
	out := make([]string, len(variants[canon]))
	copy(out, variants[canon])
	return out
}

// Opposite returns the canonical opposite gender, or Unknown when the
// input does not normalize.
func Opposite(g string) string {
	switch Canonical(g) {
	case Male:
		return Female
	case Female:
		return Male
	}
	return Unknown
}
