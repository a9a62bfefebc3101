package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/zephyrtronium/lacbot/message"
)

// Latency reports the bot's response and gateway latency.
func Latency(ctx context.Context, robo *Robot, call *Invocation) {
	bot := time.Since(call.Time).Milliseconds()
	api := robo.Out.Latency().Milliseconds()
	robo.reply(ctx, call, message.Format("", "🏓 Pong!\n📡 Bot Latency: %dms\n🌐 API Latency: %dms", bot, api))
}

// Promote announces a staff promotion in the invoking channel.
//   - user: User ID of the promoted member.
//   - role: Role ID of the new rank.
//   - reason: Reason for the promotion.
//   - note: Optional note.
func Promote(ctx context.Context, robo *Robot, call *Invocation) {
	// Looking up the old rank takes two requests.
	if call.Defer != nil {
		robo.bestEffort(ctx, "defer", call.Defer(ctx, true))
	}
	user := call.Args["user"]
	old := robo.oldRank(ctx, call.Guild, user)
	fields := []message.Field{
		bullet("Issued To", "<@"+user+">"),
		bullet("New Rank", "<@&"+call.Args["role"]+">"),
		bullet("Old Rank", old),
		bullet("Reason", call.Args["reason"]),
	}
	if n := call.Args["note"]; n != "" {
		fields = append(fields, bullet("Notes", n))
	}
	e := &message.Embed{
		Title:  "# Promotions",
		Fields: fields,
		Footer: "** " + call.Caller.Name + " **",
	}
	robo.announce(ctx, call, e)
}

// Infract announces an infraction in the invoking channel.
//   - user: User ID of the member receiving the infraction.
//   - punishment: Punishment issued.
//   - reason: Reason for the infraction.
//   - notes: Optional notes.
func Infract(ctx context.Context, robo *Robot, call *Invocation) {
	fields := []message.Field{
		bullet("Issued To", "<@"+call.Args["user"]+">"),
		bullet("Punishment", call.Args["punishment"]),
		bullet("Reason", "*"+call.Args["reason"]+"*"),
	}
	if n := call.Args["notes"]; n != "" {
		fields = append(fields, bullet("Notes", "*"+n+"*"))
	}
	e := &message.Embed{
		Title:  "# Infractions",
		Fields: fields,
		Footer: "** Approved By: " + call.Caller.Name + " **",
	}
	robo.announce(ctx, call, e)
}

// oldRank finds the display of a member's highest role other than the
// excluded rank and @everyone.
func (robo *Robot) oldRank(ctx context.Context, guild, user string) string {
	roles, err := robo.Out.Roles(ctx, guild, user)
	if err != nil {
		robo.Log.WarnContext(ctx, "couldn't get member roles",
			slog.String("user", user),
			slog.Any("err", err),
		)
		return "Unknown"
	}
	for _, r := range roles {
		// The @everyone role has the guild's ID.
		if r == robo.Settings.RankExcluded || r == guild {
			continue
		}
		return "<@&" + r + ">"
	}
	return "None"
}

// announce posts an announcement embed to the invoking channel and tells the
// caller how it went.
func (robo *Robot) announce(ctx context.Context, call *Invocation, e *message.Embed) {
	err := robo.Out.Send(ctx, message.Sent{To: call.Channel, Embed: e})
	if err != nil {
		robo.Log.ErrorContext(ctx, "couldn't post announcement",
			slog.String("name", call.Name),
			slog.String("channel", call.Channel),
			slog.Any("err", err),
		)
		robo.reply(ctx, call, message.Privately("Something went wrong. Check the bot console."))
		return
	}
	robo.reply(ctx, call, message.Privately("Posted."))
}

func bullet(label, value string) message.Field {
	return message.Field{Name: "\u200b", Value: "• **" + label + ":**\n" + value}
}
