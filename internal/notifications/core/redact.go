package core

import "strings"

// RedactEmail masks an address for logging: "john@gmail.com" becomes
// "j***@gmail.com". Input without "@" is masked entirely.
func RedactEmail(email string) string {
	if email == "" {
		return ""
	}

	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return "***"
	}
	if local == "" {
		return "***@" + domain
	}
	return local[:1] + "***@" + domain
}

// RedactPhone keeps only the last two digits of a phone number:
// "+15551234567" becomes "***67". Numbers shorter than five characters are
// masked entirely.
func RedactPhone(phone string) string {
	if phone == "" {
		return ""
	}
	if len(phone) < 5 {
		return "***"
	}
	return "***" + phone[len(phone)-2:]
}
