package survey

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidPhone marks contact input that cannot be normalized; the caller
// re-prompts without advancing the session.
var ErrInvalidPhone = errors.New("phone does not match the expected format")

var phonePattern = regexp.MustCompile(`^\+7\d{10}$`)

// NormalizePhone brings a shared-contact payload or typed number to the
// canonical +7XXXXXXXXXX form. Telegram contact payloads may arrive without
// the plus and domestic numbers may start with 8.
func NormalizePhone(raw string) (string, error) {
	phone := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(phone, "8") && len(phone) == 11:
		phone = "+7" + phone[1:]
	case strings.HasPrefix(phone, "7") && len(phone) == 11:
		phone = "+" + phone
	}
	if !phonePattern.MatchString(phone) {
		return "", ErrInvalidPhone
	}
	return phone, nil
}
