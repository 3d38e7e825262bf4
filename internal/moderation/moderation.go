// Package moderation gates user-submitted text before it is stored. The
// rules are deliberately simple: a static bad-word list, a phone-number
// pattern that low-trust users may not post, and a minimum length for
// free-text fields.
package moderation

import (
	"regexp"
	"strings"
)

// Rejection reasons returned by Check.
const (
	ReasonBannedWord  = "content contains prohibited language"
	ReasonPhoneNumber = "sharing contact numbers requires a higher trust score"
	ReasonTooShort    = "content is too short"
)

// PhoneShareMinTrust is the trust score below which posting a phone number
// in free text is blocked.
const PhoneShareMinTrust = 70

// MinTextLength is the minimum length for moderated free-text fields.
const MinTextLength = 3

var bannedWords = []string{
	"salak", "aptal", "gerizekalı",
	"dolandırıcı", "scam", "kumar", "bahis",
}

// Matches Turkish mobile numbers in common formats, with or without the
// country prefix and separators.
var phonePattern = regexp.MustCompile(`(\+?9?0?\s?5\d{2}[\s\-]?\d{3}[\s\-]?\d{2}[\s\-]?\d{2})`)

// Check validates user text against the moderation rules. It returns false
// with a human-readable reason when the text must be rejected.
func Check(text string, trustScore int) (bool, string) {
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < MinTextLength {
		return false, ReasonTooShort
	}

	lower := strings.ToLower(trimmed)
	for _, w := range bannedWords {
		if strings.Contains(lower, w) {
			return false, ReasonBannedWord
		}
	}

	if trustScore < PhoneShareMinTrust && phonePattern.MatchString(trimmed) {
		return false, ReasonPhoneNumber
	}

	return true, ""
}

// CheckOptional applies Check to text that may legitimately be empty, such
// as a bio being cleared. Empty text always passes.
func CheckOptional(text string, trustScore int) (bool, string) {
	if strings.TrimSpace(text) == "" {
		return true, ""
	}
	return Check(text, trustScore)
}
