// Package message describes messages independently of the chat service.
package message

import (
	"fmt"
	"strings"
	"time"
)

// Received is a message received from a service.
type Received struct {
	// ID is the unique ID of the message.
	ID string
	// To is the channel the message was sent in.
	To string
	// Sender is the user ID of the message sender.
	Sender string
	// Name is the display tag of the message sender.
	Name string
	// Text is the text of the message.
	Text string
	// Timestamp is the timestamp of the message as milliseconds since the
	// Unix epoch.
	Timestamp int64
	// Direct indicates that the message was sent in a direct message channel.
	Direct bool
	// Bot indicates that the sender is a bot account.
	Bot bool
}

func (m *Received) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// Sent is a message to be sent to a service.
type Sent struct {
	// To is the channel to which the message is sent. For direct messages and
	// interaction responses it is ignored.
	To string
	// Text is the message text.
	Text string
	// Embed is an optional rich block attached to the message.
	Embed *Embed
	// Actions is the row of buttons attached to the message.
	Actions []Action
	// Private asks for the message to be visible only to the recipient of an
	// interaction response. It has no effect on regular messages.
	Private bool
}

// Embed is a rich block of fields.
type Embed struct {
	Title       string
	Description string
	Fields      []Field
	Footer      string
	// Color is an RGB color. Zero means the service's default.
	Color int
}

// Field is a name-value pair in an embed.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Style is the appearance of an action.
type Style int

const (
	Primary Style = iota
	Secondary
	Success
	Danger
)

// Action is a button attached to a message.
type Action struct {
	// ID is the identifier returned when the button is pressed.
	ID       string
	Label    string
	Style    Style
	Disabled bool
	// Emoji is an optional custom emoji ID shown on the button.
	Emoji string
}

// formatString is a type to prevent misuse of format strings passed to [Format].
type formatString string

// Format constructs a message to send from a format string literal and
// formatting arguments.
func Format(to string, f formatString, args ...any) Sent {
	return Sent{
		To:   to,
		Text: strings.TrimSpace(fmt.Sprintf(string(f), args...)),
	}
}

// Privately constructs a private interaction response from a format string
// literal and formatting arguments.
func Privately(f formatString, args ...any) Sent {
	m := Format("", f, args...)
	m.Private = true
	return m
}
