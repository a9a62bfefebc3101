package command

import (
	"context"
	"log/slog"
	"time"

	"gitlab.com/zephyrtronium/pick"

	"github.com/zephyrtronium/lacbot/appeal"
	"github.com/zephyrtronium/lacbot/audit"
	"github.com/zephyrtronium/lacbot/erlc"
	"github.com/zephyrtronium/lacbot/gate"
	"github.com/zephyrtronium/lacbot/message"
	"github.com/zephyrtronium/lacbot/metrics"
)

// Robot is the bot state as is visible to commands.
type Robot struct {
	Log      *slog.Logger
	Gate     *gate.Gate
	Appeals  *appeal.Tracker
	Registry *appeal.Registry
	// Relay is the game server client. It is nil when no server key is
	// configured.
	Relay    *erlc.Client
	Out      Platform
	Audit    *audit.Log
	Metrics  *metrics.Metrics
	Settings *Settings
}

// Platform is the chat service as is visible to commands.
type Platform interface {
	// Send sends a message to the channel named by its To field.
	Send(ctx context.Context, msg message.Sent) error
	// DM sends a direct message to a user.
	DM(ctx context.Context, user string, msg message.Sent) error
	// ChannelName returns the current name of a channel.
	ChannelName(ctx context.Context, channel string) (string, error)
	// Rename changes the name of a channel.
	Rename(ctx context.Context, channel, name string) error
	// Roles returns the IDs of a guild member's roles, highest first.
	Roles(ctx context.Context, guild, user string) ([]string, error)
	// Latency returns the most recent gateway heartbeat latency.
	Latency() time.Duration
}

// Settings is the static configuration visible to commands.
type Settings struct {
	// ServerName is the community name used in appeal prompts.
	ServerName string

	// PromoteRole is the role required to use /promote.
	PromoteRole string
	// RelayRole is the role required to use /erlc.
	RelayRole string
	// RankExcluded is a role which never counts as a member's old rank.
	RankExcluded string
	// StaffRole is the role counted in the staff voice channel name.
	StaffRole string

	// AppealChannel receives appeal notices.
	AppealChannel string
	// WelcomeChannel receives welcome messages.
	WelcomeChannel string
	// MemberCountChannel and StaffCountChannel are voice channels renamed to
	// show member and staff counts.
	MemberCountChannel string
	StaffCountChannel  string

	// Emoji are custom emoji used in messages.
	Emoji Emoji
	// Welcome is the distribution of emotes in welcome messages.
	// If nil, Emoji.Welcome is always used.
	Welcome *pick.Dist[string]
	// WelcomeDM is the body of the direct message sent to new members.
	// If empty, no direct message is sent.
	WelcomeDM string
}

// Emoji holds custom emoji in message syntax, e.g. <:name:id>.
type Emoji struct {
	Logo    string
	Warning string
	Welcome string
	// MemberCount is the emoji ID shown on the member count button.
	MemberCount string
}

// bestEffort handles the result of a side effect which is allowed to fail,
// like a direct message to a user who has them disabled. The error is logged
// and counted and goes no further.
func (robo *Robot) bestEffort(ctx context.Context, what string, err error) {
	if err == nil {
		return
	}
	robo.Log.WarnContext(ctx, "best-effort action failed",
		slog.String("what", what),
		slog.Any("err", err),
	)
	robo.Metrics.DeliveryFailures.Observe(1, what)
}

// record adds an entry to the audit log. Failures are logged.
func (robo *Robot) record(ctx context.Context, e audit.Entry) {
	if err := robo.Audit.Record(ctx, e); err != nil {
		robo.Log.ErrorContext(ctx, "couldn't record audit entry",
			slog.String("kind", e.Kind),
			slog.Any("err", err),
		)
	}
}

