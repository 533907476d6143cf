package ledger

import "regexp"

var classicAddress = regexp.MustCompile(`^r[1-9A-HJ-NP-Za-km-z]{24,34}$`)

// ValidAddress reports whether s looks like a classic account address.
// The checksum is not verified.
func ValidAddress(s string) bool {
	return classicAddress.MatchString(s)
}
