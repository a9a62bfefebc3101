package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/zephyrtronium/lacbot/audit"
	"github.com/zephyrtronium/lacbot/message"
)

// Caller is the user who invoked a command.
type Caller struct {
	// ID is the user's ID.
	ID string
	// Name is the user's display name.
	Name string
	// Roles is the snapshot of the user's guild roles at the time of the
	// invocation. It is empty outside guilds.
	Roles []string
}

// Invocation is a command invocation. An Invocation and its fields must not
// be modified or retained by any command.
type Invocation struct {
	// Name is the name of the slash command or the ID of the pressed button.
	Name string
	// Caller is the invoking user.
	Caller Caller
	// Guild is the guild where the invocation occurred.
	// It is empty for invocations in direct messages.
	Guild string
	// Channel is the channel where the invocation occurred.
	Channel string
	// Args is the parsed arguments to the command.
	Args map[string]string
	// Time is the time the invocation was created.
	Time time.Time
	// Reply responds to the invocation. It must be called at most once.
	Reply func(ctx context.Context, msg message.Sent) error
	// Defer acknowledges the invocation ahead of a slow reply. The eventual
	// reply is private if and only if private is true.
	// Defer may be nil, in which case commands reply without deferring.
	Defer func(ctx context.Context, private bool) error
}

// Func executes a command.
type Func func(ctx context.Context, robo *Robot, call *Invocation)

// Command is a slash command.
type Command struct {
	// Name is the name of the command.
	Name string
	// Guild indicates that the command can only be used in a guild.
	Guild bool
	// Capability returns the role required to use the command.
	// If nil, anyone can use it.
	Capability func(s *Settings) string
	// Fn executes the command.
	Fn Func
}

// Slash is the list of slash commands.
var Slash = []Command{
	{
		Name: "latency",
		Fn:   Latency,
	},
	{
		Name:       "promote",
		Guild:      true,
		Capability: func(s *Settings) string { return s.PromoteRole },
		Fn:         Promote,
	},
	{
		Name:  "infract",
		Guild: true,
		Fn:    Infract,
	},
	{
		Name:       "erlc",
		Guild:      true,
		Capability: func(s *Settings) string { return s.RelayRole },
		Fn:         Relay,
	},
}

// Find returns the slash command with the given name.
func Find(name string) *Command {
	for i := range Slash {
		if Slash[i].Name == name {
			return &Slash[i]
		}
	}
	return nil
}

// Do runs a slash command invocation after checking suspensions and
// permissions.
func Do(ctx context.Context, robo *Robot, call *Invocation) {
	c := Find(call.Name)
	if c == nil {
		robo.Log.WarnContext(ctx, "unknown command", slog.String("name", call.Name))
		return
	}
	if call.Guild != "" && robo.Gate.Suspended(call.Caller.ID, call.Time) {
		until := robo.Gate.Until(call.Caller.ID, call.Time)
		robo.Log.InfoContext(ctx, "suspended user tried command",
			slog.String("name", c.Name),
			slog.String("user", call.Caller.ID),
			slog.Time("until", until),
		)
		robo.reply(ctx, call, message.Privately("%s You are suspended from using bot commands until <t:%d:f>.", robo.Settings.Emoji.Warning, until.Unix()))
		return
	}
	if c.Guild && call.Guild == "" {
		robo.reply(ctx, call, message.Privately("This command can only be used in a server."))
		return
	}
	// Commands with no capability are open to everyone. A capability
	// which is unconfigured is held by no one.
	var capability string
	if c.Capability != nil {
		capability = c.Capability(robo.Settings)
	}
	if c.Capability != nil && !robo.Gate.Allowed(call.Caller.ID, call.Caller.Roles, capability, call.Time) {
		n, suspended := robo.Gate.Deny(call.Caller.ID, call.Time)
		robo.Log.InfoContext(ctx, "permission denied",
			slog.String("name", c.Name),
			slog.String("user", call.Caller.ID),
			slog.Uint64("denials", uint64(n)),
			slog.Bool("suspended", suspended),
		)
		robo.Metrics.DenialCount.Observe(1)
		if suspended {
			robo.Metrics.SuspensionCount.Observe(1)
		}
		robo.record(ctx, audit.Entry{
			Kind:    audit.PermissionDenied,
			Actor:   call.Caller.ID,
			Subject: c.Name,
			Detail:  map[string]string{"capability": capability},
			Time:    call.Time,
		})
		robo.reply(ctx, call, message.Privately("%s Whoops! Looks like you tried using a command without permission, watch out as doing this again will get you suspended!", robo.Settings.Emoji.Warning))
		return
	}
	robo.Log.InfoContext(ctx, "command",
		slog.String("name", c.Name),
		slog.String("user", call.Caller.ID),
		slog.Any("args", call.Args),
	)
	robo.Metrics.CommandCount.Observe(1, c.Name)
	c.Fn(ctx, robo, call)
}

// reply responds to an invocation. The invocation has already been
// acknowledged as far as anyone else is concerned, so failures are only
// logged.
func (robo *Robot) reply(ctx context.Context, call *Invocation, msg message.Sent) {
	robo.bestEffort(ctx, "reply", call.Reply(ctx, msg))
}
