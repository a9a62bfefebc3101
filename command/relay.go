package command

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/zephyrtronium/lacbot/audit"
	"github.com/zephyrtronium/lacbot/erlc"
	"github.com/zephyrtronium/lacbot/message"
)

// Relay runs a command on the game server.
//   - input: The command to run, e.g. ":h Hi".
func Relay(ctx context.Context, robo *Robot, call *Invocation) {
	input := call.Args["input"]
	if robo.Relay == nil {
		robo.reply(ctx, call, message.Privately("ER:LC API key is not set (ERLC_API_KEY)."))
		return
	}
	if call.Defer != nil {
		robo.bestEffort(ctx, "defer", call.Defer(ctx, false))
	}
	start := time.Now()
	r, err := robo.Relay.Command(ctx, input)
	if errors.Is(err, erlc.ErrNoKey) {
		robo.reply(ctx, call, message.Privately("ER:LC API key is not set (ERLC_API_KEY)."))
		return
	}
	robo.Metrics.RelayLatency.Observe(time.Since(start).Seconds(), r.Outcome.String())
	robo.Log.InfoContext(ctx, "relayed command",
		slog.String("input", input),
		slog.String("outcome", r.Outcome.String()),
		slog.Int("status", r.Status),
		slog.Any("err", r.Err),
	)
	robo.record(ctx, audit.Entry{
		Kind:    audit.CommandRelayed,
		Actor:   call.Caller.ID,
		Subject: input,
		Detail:  map[string]string{"outcome": r.Outcome.String()},
		Time:    call.Time,
	})
	robo.reply(ctx, call, describe(input, r))
}

// describe renders the outcome of a relayed command for the caller.
func describe(input string, r erlc.Result) message.Sent {
	switch r.Outcome {
	case erlc.Sent:
		return message.Format("", "Command sent: `%s`.", input)
	case erlc.Unauthorized:
		return message.Format("", "Invalid API key or unauthorized.")
	case erlc.NoPlayers:
		return message.Format("", "The server has no players in it.")
	case erlc.Failed:
		return message.Format("", "API error (%d): %s", r.Status, r.Body)
	default:
		return message.Format("", "Failed to send command: %v", r.Err)
	}
}
