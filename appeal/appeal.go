// Package appeal implements ban appeal intake through direct messages and
// the registry of appeals awaiting a moderator's decision.
package appeal

import (
	"strconv"
	"strings"
	"time"
)

// Appeal is a finalized ban appeal.
type Appeal struct {
	// ID uniquely identifies the appeal for the process lifetime.
	ID string
	// Requester is the platform user ID of the user appealing.
	Requester string
	// Tag is the requester's display tag at submission time.
	Tag string
	// Reason is the user's answer to what they were banned for.
	Reason string
	// Identifier is the user's game account ID with non-digits removed.
	// If the answer contained no digits, it is the trimmed answer itself.
	Identifier string
	// Raw is the user's answer for the game account ID as given.
	Raw string
	// Submitted is the time the appeal was finalized.
	Submitted time.Time
}

const (
	noReason     = "*(no reason given)*"
	notProvided  = "*(not provided)*"
	appealPrefix = "appeal_"
)

// NewID creates an appeal ID for a user at a given time.
// IDs for the same user differ as long as their times differ by at least a
// millisecond.
func NewID(user string, asof time.Time) string {
	return appealPrefix + user + "_" + strconv.FormatInt(asof.UnixMilli(), 10)
}

// Normalize cleans a game account identifier given in a message.
// All non-digit characters are removed; if none remain, the result is the
// trimmed text, or a placeholder if that is also empty.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return notProvided
	}
	d := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, text)
	if d == "" {
		return text
	}
	return d
}

// reason cleans a ban reason given in a message.
func reason(text string) string {
	if text == "" {
		return noReason
	}
	return text
}
