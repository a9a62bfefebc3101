package command

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/zephyrtronium/lacbot/appeal"
	"github.com/zephyrtronium/lacbot/audit"
	"github.com/zephyrtronium/lacbot/erlc"
	"github.com/zephyrtronium/lacbot/message"
)

// Button IDs and prefixes.
const (
	appealIngame  = "appeal_ingame"
	appealDiscord = "appeal_discord"
	acceptPrefix  = "accept_"
	denyPrefix    = "deny_"
)

// Press handles a button press. The invocation's Name is the button ID.
func Press(ctx context.Context, robo *Robot, call *Invocation) {
	switch id := call.Name; {
	case id == appealIngame:
		robo.Metrics.CommandCount.Observe(1, id)
		robo.Appeals.Start(call.Caller.ID)
		robo.Log.InfoContext(ctx, "appeal started", slog.String("user", call.Caller.ID))
		robo.reply(ctx, call, message.Format("", "What were you banned for?"))
	case id == appealDiscord:
		robo.Metrics.CommandCount.Observe(1, id)
		robo.reply(ctx, call, message.Format("", "%s Unfortunately we do not unban people from the discord.", robo.Settings.Emoji.Warning))
	case strings.HasPrefix(id, acceptPrefix):
		robo.Metrics.CommandCount.Observe(1, "accept")
		Accept(ctx, robo, call, strings.TrimPrefix(id, acceptPrefix))
	case strings.HasPrefix(id, denyPrefix):
		robo.Metrics.CommandCount.Observe(1, "deny")
		Deny(ctx, robo, call, strings.TrimPrefix(id, denyPrefix))
	default:
		robo.Log.DebugContext(ctx, "unhandled button", slog.String("id", id))
	}
}

// Accept resolves an appeal by unbanning the requester.
func Accept(ctx context.Context, robo *Robot, call *Invocation, id string) {
	a, ok := robo.Registry.Resolve(id)
	if !ok {
		robo.Log.InfoContext(ctx, "stale appeal", slog.String("appeal", id), slog.String("by", call.Caller.ID))
		robo.reply(ctx, call, message.Privately("This appeal is no longer valid."))
		return
	}
	if call.Defer != nil {
		robo.bestEffort(ctx, "defer", call.Defer(ctx, true))
	}
	outcome := robo.unban(ctx, a)
	// The appeal is resolved regardless of whether the user hears about it.
	dm := message.Format("", "You have been unbanned from the game server.")
	robo.bestEffort(ctx, "appeal-dm", robo.Out.DM(ctx, a.Requester, dm))
	robo.Metrics.AppealsResolved.Observe(1, "accepted")
	robo.record(ctx, audit.Entry{
		Kind:    audit.AppealAccepted,
		Actor:   call.Caller.ID,
		Subject: a.ID,
		Detail:  map[string]string{"requester": a.Requester, "identifier": a.Identifier, "unban": outcome},
		Time:    call.Time,
	})
	robo.Log.InfoContext(ctx, "appeal accepted",
		slog.String("appeal", a.ID),
		slog.String("by", call.Caller.ID),
		slog.String("unban", outcome),
	)
	if outcome != erlc.Sent.String() {
		robo.reply(ctx, call, message.Privately("Appeal accepted, but the unban was not sent (%s). User has been DMed.", outcome))
		return
	}
	robo.reply(ctx, call, message.Privately("Appeal accepted. User has been unbanned and DMed."))
}

// unban runs the unban command for an accepted appeal and describes the
// outcome.
func (robo *Robot) unban(ctx context.Context, a *appeal.Appeal) string {
	if robo.Relay == nil {
		robo.Log.WarnContext(ctx, "no server key to unban with", slog.String("appeal", a.ID))
		return "not-configured"
	}
	r, err := robo.Relay.Unban(ctx, a.Identifier)
	if err != nil {
		robo.Log.WarnContext(ctx, "couldn't unban", slog.String("appeal", a.ID), slog.Any("err", err))
		return "not-configured"
	}
	if r.Outcome != erlc.Sent {
		robo.Log.ErrorContext(ctx, "unban failed",
			slog.String("appeal", a.ID),
			slog.String("outcome", r.Outcome.String()),
			slog.Int("status", r.Status),
			slog.String("body", r.Body),
			slog.Any("err", r.Err),
		)
	}
	return r.Outcome.String()
}

// Deny resolves an appeal without unbanning the requester.
func Deny(ctx context.Context, robo *Robot, call *Invocation, id string) {
	a, ok := robo.Registry.Resolve(id)
	if !ok {
		robo.Log.InfoContext(ctx, "stale appeal", slog.String("appeal", id), slog.String("by", call.Caller.ID))
		robo.reply(ctx, call, message.Privately("This appeal is no longer valid."))
		return
	}
	dm := message.Format("", "%s <@%s> Unfortunately your request to be unbanned has been denied.", robo.Settings.Emoji.Warning, a.Requester)
	robo.bestEffort(ctx, "appeal-dm", robo.Out.DM(ctx, a.Requester, dm))
	robo.Metrics.AppealsResolved.Observe(1, "denied")
	robo.record(ctx, audit.Entry{
		Kind:    audit.AppealDenied,
		Actor:   call.Caller.ID,
		Subject: a.ID,
		Detail:  map[string]string{"requester": a.Requester},
		Time:    call.Time,
	})
	robo.Log.InfoContext(ctx, "appeal denied", slog.String("appeal", a.ID), slog.String("by", call.Caller.ID))
	robo.reply(ctx, call, message.Privately("Appeal denied. User has been DMed."))
}

// Direct handles a direct message, which is always part of an appeal.
func Direct(ctx context.Context, robo *Robot, msg *message.Received) {
	if msg.Bot || !msg.Direct {
		return
	}
	step, err := robo.Appeals.Advance(msg.Sender, msg.Name, msg.Text, msg.Time())
	switch {
	case errors.Is(err, appeal.ErrNoConversation):
		robo.intro(ctx, msg)
	case err != nil:
		robo.Log.ErrorContext(ctx, "couldn't advance appeal",
			slog.String("user", msg.Sender),
			slog.Any("err", err),
		)
	case step.Appeal != nil:
		robo.submit(ctx, msg, step.Appeal)
	case step.Stage == appeal.IdentifierPending:
		robo.bestEffort(ctx, "appeal-prompt", robo.Out.Send(ctx, message.Format(msg.To, "What is your Roblox ID?")))
	}
}

// intro sends the prompt which begins an appeal.
func (robo *Robot) intro(ctx context.Context, msg *message.Received) {
	s := robo.Settings
	m := message.Format(msg.To, "** %s | %s Ban Appeal**\n\nHello! It seems you are trying to appeal your ban, please select one of the following options before continuing.", s.Emoji.Logo, s.ServerName)
	m.Actions = []message.Action{
		{ID: appealIngame, Label: "Ingame", Style: message.Primary},
		{ID: appealDiscord, Label: "Discord", Style: message.Secondary},
	}
	robo.bestEffort(ctx, "appeal-intro", robo.Out.Send(ctx, m))
}

// submit posts a finalized appeal for moderators and confirms it to the user.
func (robo *Robot) submit(ctx context.Context, msg *message.Received, a *appeal.Appeal) {
	robo.Log.InfoContext(ctx, "appeal submitted",
		slog.String("appeal", a.ID),
		slog.String("user", a.Requester),
		slog.String("identifier", a.Identifier),
	)
	robo.Metrics.AppealsSubmitted.Observe(1)
	robo.record(ctx, audit.Entry{
		Kind:    audit.AppealSubmitted,
		Actor:   a.Requester,
		Subject: a.ID,
		Detail:  map[string]string{"reason": a.Reason, "identifier": a.Identifier, "tag": a.Tag},
		Time:    a.Submitted,
	})
	notice := message.Sent{
		To: robo.Settings.AppealChannel,
		Embed: &message.Embed{
			Title: "Ban Appeal",
			Fields: []message.Field{
				{Name: "Discord User", Value: "<@" + a.Requester + "> (" + a.Tag + ")"},
				{Name: "Discord ID", Value: a.Requester},
				{Name: "What were you banned for?", Value: a.Reason},
				{Name: "Roblox ID", Value: a.Raw},
			},
		},
		Actions: []message.Action{
			{ID: acceptPrefix + a.ID, Label: "Accept", Style: message.Success},
			{ID: denyPrefix + a.ID, Label: "Deny", Style: message.Danger},
		},
	}
	robo.bestEffort(ctx, "appeal-notice", robo.Out.Send(ctx, notice))
	robo.bestEffort(ctx, "appeal-confirm", robo.Out.Send(ctx, message.Format(msg.To, "Your appeal has been submitted. You will be DMed when it is reviewed.")))
}
