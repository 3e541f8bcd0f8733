package domain

import (
	"strings"
	"time"
)

// WhitelistEntry authorizes automated replies to one sender
type WhitelistEntry struct {
	ID       int64     `json:"id"`
	SenderID string    `json:"phone_number"`
	Name     string    `json:"name"`
	Notes    string    `json:"notes"`
	AddedAt  time.Time `json:"added_at"`
}

// NormalizePhone keeps digits and '+' and makes sure the number starts with '+'
func NormalizePhone(number string) string {
	var b strings.Builder
	b.Grow(len(number) + 1)
	for _, r := range number {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	formatted := b.String()
	if !strings.HasPrefix(formatted, "+") {
		formatted = "+" + formatted
	}
	return formatted
}

// StripJID removes WhatsApp JID suffixes from a sender identifier
func StripJID(sender string) string {
	sender = strings.Replace(sender, "@s.whatsapp.net", "", 1)
	return strings.Replace(sender, "@c.us", "", 1)
}
