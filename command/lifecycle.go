package command

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strconv"

	"golang.org/x/text/language"
	textmsg "golang.org/x/text/message"

	"github.com/zephyrtronium/lacbot/message"
)

// Guild is a snapshot of a guild's membership.
type Guild struct {
	ID   string
	Name string
	// Members is the total member count.
	Members int
	// Staff is the number of members holding the staff role.
	Staff int
}

var numbers = textmsg.NewPrinter(language.English)

// ordinal formats n as an English ordinal number like 1,001st.
func ordinal(n int) string {
	s := "th"
	switch v := n % 100; {
	case v >= 11 && v <= 13:
		// 11th, 12th, 13th
	case v%10 == 1:
		s = "st"
	case v%10 == 2:
		s = "nd"
	case v%10 == 3:
		s = "rd"
	}
	return numbers.Sprintf("%d", n) + s
}

// Welcome greets a new member in the welcome channel and by direct message.
func Welcome(ctx context.Context, robo *Robot, g Guild, member string) {
	s := robo.Settings
	if s.WelcomeChannel != "" {
		e := s.Emoji.Welcome
		if s.Welcome != nil {
			e = s.Welcome.Pick(rand.Uint32())
		}
		m := message.Format(s.WelcomeChannel, "%s Welcome <@%s> for joining **%s!** You are our **%s** member!", e, member, g.Name, ordinal(g.Members))
		m.Actions = []message.Action{
			{
				ID:       "member_count_placeholder",
				Label:    strconv.Itoa(g.Members),
				Style:    message.Secondary,
				Disabled: true,
				Emoji:    s.Emoji.MemberCount,
			},
		}
		robo.bestEffort(ctx, "welcome", robo.Out.Send(ctx, m))
	}
	if s.WelcomeDM != "" {
		dm := message.Sent{
			Embed: &message.Embed{
				Description: s.Emoji.Welcome + " Welcome to **" + g.Name + "!** " + s.WelcomeDM,
			},
		}
		// Members with direct messages disabled always fail here.
		robo.bestEffort(ctx, "welcome-dm", robo.Out.DM(ctx, member, dm))
	}
	robo.Log.InfoContext(ctx, "welcomed member",
		slog.String("guild", g.ID),
		slog.String("member", member),
		slog.Int("count", g.Members),
	)
}

// SyncCounts renames the member and staff count voice channels to match the
// guild. Channels are renamed only when their names differ.
func SyncCounts(ctx context.Context, robo *Robot, g Guild) {
	s := robo.Settings
	robo.rename(ctx, s.MemberCountChannel, "Members: "+strconv.Itoa(g.Members))
	robo.rename(ctx, s.StaffCountChannel, "Staff: "+strconv.Itoa(g.Staff))
}

func (robo *Robot) rename(ctx context.Context, channel, name string) {
	if channel == "" {
		return
	}
	cur, err := robo.Out.ChannelName(ctx, channel)
	if err != nil {
		robo.bestEffort(ctx, "count-channel", err)
		return
	}
	if cur == name {
		return
	}
	robo.bestEffort(ctx, "count-channel", robo.Out.Rename(ctx, channel, name))
}
