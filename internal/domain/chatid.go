package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ChatID is the canonical identifier for an unordered pair of users:
// the two ids sorted ascending and joined with ':'. ChatIDFor(a, b) and
// ChatIDFor(b, a) always produce the same value.
type ChatID string

func ChatIDFor(a, b UserID) ChatID {
	if a > b {
		a, b = b, a
	}
	return ChatID(fmt.Sprintf("%d:%d", a, b))
}

// Members returns the two user ids encoded in the chat id, ascending.
func (c ChatID) Members() (UserID, UserID, error) {
	lo, hi, ok := c.parse()
	if !ok {
		return 0, 0, ErrMalformedChatID
	}
	return lo, hi, nil
}

// Has reports whether u is one of the two members. A malformed chat id
// has no members.
func (c ChatID) Has(u UserID) bool {
	lo, hi, ok := c.parse()
	return ok && (u == lo || u == hi)
}

func (c ChatID) String() string { return string(c) }

func (c ChatID) parse() (UserID, UserID, bool) {
	parts := strings.Split(string(c), ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	a, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	if a > b {
		a, b = b, a
	}
	return a, b, true
}
