package erlc

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// lenient relaxes decoding of log feeds. Player-supplied text can carry
// invalid UTF-8, and one bad entry must not hide the rest of the feed.
var lenient = json.JoinOptions(
	jsontext.AllowInvalidUTF8(true),
	jsontext.AllowDuplicateNames(true),
)

// entry is a log entry as the API returns it.
// The API is inconsistent about the case of field names.
type entry map[string]jsontext.Value

// field returns the first of the given keys present in the entry.
func (e entry) field(keys ...string) (jsontext.Value, bool) {
	for _, k := range keys {
		if v, ok := e[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// text returns a field as a string. Non-string values are returned as their
// JSON text.
func (e entry) text(keys ...string) string {
	v, ok := e.field(keys...)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s, lenient); err != nil {
		return string(v)
	}
	return s
}

// raw returns the JSON text of a field, or the empty string if it is absent.
func (e entry) raw(keys ...string) string {
	v, _ := e.field(keys...)
	return string(v)
}

// timestamp returns a field as Unix seconds, or zero.
func (e entry) timestamp() int64 {
	v, ok := e.field("Timestamp", "timestamp")
	if !ok {
		return 0
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0
	}
	return int64(f)
}

func (e entry) player() string {
	p := e.text("Player", "player")
	if p == "" {
		return "Unknown"
	}
	return p
}

// Player is a player reference in the form Name:ID.
type Player string

// Name returns the player's name.
func (p Player) Name() string {
	n, _, _ := strings.Cut(string(p), ":")
	if n == "" {
		return string(p)
	}
	return n
}

// ID returns the player's account ID, or the empty string if there is none.
func (p Player) ID() string {
	_, id, _ := strings.Cut(string(p), ":")
	return id
}

// JoinLog is an entry in the server's join logs.
type JoinLog struct {
	// Timestamp is the time of the event in Unix seconds.
	// It is zero if the API did not provide it.
	Timestamp int64
	Player    Player
	// Join is true for joins and false for leaves.
	// It is nil if the API did not say which.
	Join *bool
	key  string
}

// Key returns a key identifying the entry.
func (l *JoinLog) Key() string { return l.key }

// Time returns the entry's time.
func (l *JoinLog) Time() time.Time { return unixTime(l.Timestamp) }

// CommandLog is an entry in the server's command logs.
type CommandLog struct {
	// Timestamp is the time of the event in Unix seconds.
	// It is zero if the API did not provide it.
	Timestamp int64
	Player    Player
	Command   string
	key       string
}

// Key returns a key identifying the entry.
func (l *CommandLog) Key() string { return l.key }

// Time returns the entry's time.
func (l *CommandLog) Time() time.Time { return unixTime(l.Timestamp) }

func unixTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}

// JoinLogs gets the server's recent join and leave events in the order the
// API returns them.
func (c *Client) JoinLogs(ctx context.Context) ([]JoinLog, error) {
	ee, err := c.logs(ctx, "/server/joinlogs")
	if err != nil {
		return nil, fmt.Errorf("couldn't get join logs: %w", err)
	}
	r := make([]JoinLog, 0, len(ee))
	for _, e := range ee {
		l := JoinLog{
			Timestamp: e.timestamp(),
			Player:    Player(e.player()),
		}
		// Only true and false classify an entry. Null and anything else
		// leave Join unset.
		if v, ok := e.field("Join", "join"); ok {
			switch v.Kind() {
			case 't':
				j := true
				l.Join = &j
			case 'f':
				j := false
				l.Join = &j
			}
		}
		l.key = e.raw("Timestamp", "timestamp") + "_" + string(l.Player) + "_" + e.raw("Join", "join")
		r = append(r, l)
	}
	return r, nil
}

// CommandLogs gets the server's recent command uses in the order the API
// returns them.
func (c *Client) CommandLogs(ctx context.Context) ([]CommandLog, error) {
	ee, err := c.logs(ctx, "/server/commandlogs")
	if err != nil {
		return nil, fmt.Errorf("couldn't get command logs: %w", err)
	}
	r := make([]CommandLog, 0, len(ee))
	for _, e := range ee {
		l := CommandLog{
			Timestamp: e.timestamp(),
			Player:    Player(e.player()),
			Command:   e.text("Command", "command"),
		}
		l.key = e.raw("Timestamp", "timestamp") + "_" + string(l.Player) + "_" + l.Command
		r = append(r, l)
	}
	return r, nil
}

func (c *Client) logs(ctx context.Context, ep string) ([]entry, error) {
	status, b, err := c.do(ctx, "GET", ep, nil)
	if err != nil {
		return nil, err
	}
	switch {
	case status/100 == 2: // do nothing
	case status == http.StatusForbidden:
		return nil, fmt.Errorf("request failed: %s (%w)", b, ErrUnauthorized)
	default:
		return nil, fmt.Errorf("request failed: %s (%d %s)", b, status, http.StatusText(status))
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil
	}
	var ee []entry
	if err := json.Unmarshal(b, &ee, lenient); err != nil {
		return nil, fmt.Errorf("couldn't decode JSON response: %w", err)
	}
	return ee, nil
}
