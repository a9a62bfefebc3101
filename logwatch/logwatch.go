// Package logwatch mirrors the game server's join and command logs into chat
// channels.
package logwatch

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/zephyrtronium/lacbot/dedupe"
	"github.com/zephyrtronium/lacbot/erlc"
	"github.com/zephyrtronium/lacbot/message"
	"github.com/zephyrtronium/lacbot/metrics"
)

// Source provides game server logs.
type Source interface {
	JoinLogs(ctx context.Context) ([]erlc.JoinLog, error)
	CommandLogs(ctx context.Context) ([]erlc.CommandLog, error)
}

// Sender sends messages to chat channels.
type Sender interface {
	Send(ctx context.Context, msg message.Sent) error
}

// Channels are the destinations for log entries.
// An empty channel discards the entries that would go to it.
type Channels struct {
	Join     string
	Leave    string
	Commands string
	KickBan  string
}

// Watcher relays new log entries to chat.
// Each entry is sent at most once.
type Watcher struct {
	src      Source
	out      Sender
	channels Channels
	log      *slog.Logger
	metrics  *metrics.Metrics

	joins    *dedupe.Set
	commands *dedupe.Set
}

// New creates a watcher. Seen entries are remembered for the retention
// duration, or forever if it is zero.
func New(src Source, out Sender, channels Channels, retain time.Duration, log *slog.Logger, m *metrics.Metrics) *Watcher {
	return &Watcher{
		src:      src,
		out:      out,
		channels: channels,
		log:      log,
		metrics:  m,
		joins:    dedupe.New(retain),
		commands: dedupe.New(retain),
	}
}

// Run calls Tick once after delay and then on every interval until the
// context is canceled. It always returns a non-nil error.
func (w *Watcher) Run(ctx context.Context, delay, every time.Duration) error {
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case now := <-t.C:
		w.Tick(ctx, now)
	}
	tk := time.NewTicker(every)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-tk.C:
			w.Tick(ctx, now)
		}
	}
}

// Tick fetches both logs and relays their new entries in the order the API
// returns them. A failure to fetch one log does not affect the other.
func (w *Watcher) Tick(ctx context.Context, asof time.Time) {
	w.joins.Sweep(asof)
	w.commands.Sweep(asof)
	if err := w.joinPass(ctx, asof); err != nil {
		w.log.ErrorContext(ctx, "join logs failed", slog.Any("err", err))
		w.metrics.PollErrors.Observe(1, "join")
	}
	if err := w.commandPass(ctx, asof); err != nil {
		w.log.ErrorContext(ctx, "command logs failed", slog.Any("err", err))
		w.metrics.PollErrors.Observe(1, "command")
	}
}

func (w *Watcher) joinPass(ctx context.Context, asof time.Time) error {
	logs, err := w.src.JoinLogs(ctx)
	if err != nil {
		return err
	}
	for i := range logs {
		l := &logs[i]
		if !w.joins.Add(l.Key(), l.Time(), asof) {
			continue
		}
		w.metrics.LogEntries.Observe(1, "join")
		if l.Join == nil {
			w.log.WarnContext(ctx, "join entry is neither join nor leave", slog.String("key", l.Key()))
			continue
		}
		e := &message.Embed{
			Title: "Player joined",
			Fields: []message.Field{
				{Name: "Player", Value: l.Player.Name(), Inline: true},
				{Name: "Roblox ID", Value: dash(l.Player.ID()), Inline: true},
				{Name: "Time", Value: stamp(l.Timestamp), Inline: true},
			},
			Color: 0x57F287,
		}
		to := w.channels.Join
		if !*l.Join {
			e.Title = "Player left"
			e.Color = 0xFEE75C
			to = w.channels.Leave
		}
		w.send(ctx, to, e)
	}
	return nil
}

var kickban = regexp.MustCompile(`(?i)^:(kick|ban)\b`)

func (w *Watcher) commandPass(ctx context.Context, asof time.Time) error {
	logs, err := w.src.CommandLogs(ctx)
	if err != nil {
		return err
	}
	for i := range logs {
		l := &logs[i]
		if !w.commands.Add(l.Key(), l.Time(), asof) {
			continue
		}
		w.metrics.LogEntries.Observe(1, "command")
		fields := []message.Field{
			{Name: "Command used by (Roblox)", Value: l.Player.Name(), Inline: true},
			{Name: "Command", Value: dash(l.Command), Inline: true},
			{Name: "Time", Value: stamp(l.Timestamp), Inline: true},
		}
		w.send(ctx, w.channels.Commands, &message.Embed{
			Title:  "Command log",
			Fields: fields,
			Color:  0x5865F2,
		})
		m := kickban.FindStringSubmatch(l.Command)
		if m == nil {
			continue
		}
		title := "Player kicked"
		if strings.EqualFold(m[1], "ban") {
			title = "Player banned"
		}
		w.send(ctx, w.channels.KickBan, &message.Embed{
			Title:  title,
			Fields: fields,
			Color:  0xED4245,
		})
	}
	return nil
}

// send relays a log entry. Failures are logged and otherwise ignored so that
// later entries still go out.
func (w *Watcher) send(ctx context.Context, to string, e *message.Embed) {
	if to == "" {
		return
	}
	if err := w.out.Send(ctx, message.Sent{To: to, Embed: e}); err != nil {
		w.log.WarnContext(ctx, "couldn't relay log entry",
			slog.String("channel", to),
			slog.String("title", e.Title),
			slog.Any("err", err),
		)
		w.metrics.DeliveryFailures.Observe(1, "log-entry")
	}
}

func dash(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// stamp formats a Unix timestamp for display in each reader's local time.
func stamp(ts int64) string {
	if ts == 0 {
		return "N/A"
	}
	return fmt.Sprintf("<t:%d:f>", ts)
}
