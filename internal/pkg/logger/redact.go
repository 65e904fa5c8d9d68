package logger

import "strings"

const mask = "***"

// RedactEmail keeps the first two characters of the local part and the
// domain: "quentin@jobbsy.dev" becomes "qu***@jobbsy.dev". Local parts of
// two characters or fewer are masked entirely. Values that are not an
// address are masked on both sides.
func RedactEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 || strings.Count(email, "@") != 1 {
		return mask + "@" + mask
	}
	local, domain := []rune(email[:at]), email[at+1:]
	if len(local) <= 2 {
		return mask + "@" + domain
	}
	return string(local[:2]) + mask + "@" + domain
}
