package main

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/zephyrtronium/lacbot/command"
	"github.com/zephyrtronium/lacbot/message"
)

// slashCommands is the schema of the bot's slash commands.
var slashCommands = []*discordgo.ApplicationCommand{
	{
		Name:        "latency",
		Description: "Check the bot's latency",
	},
	{
		Name:        "promote",
		Description: "Promotes a member of staff",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User being promoted", Required: true},
			{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "New rank", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason for promotion", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "note", Description: "Optional note"},
		},
	},
	{
		Name:        "infract",
		Description: "Issue an infraction",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to issue infraction to", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "punishment", Description: "Punishment (e.g. Strike 1)", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason for infraction", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "notes", Description: "Optional notes"},
		},
	},
	{
		Name:        "erlc",
		Description: "Run a command in ER:LC (e.g. :h Hi or :m Announcement)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "input", Description: "Command to run (e.g. :h Hi)", Required: true},
		},
	},
}

// registerCommands replaces the application's global slash commands.
func (robo *Robot) registerCommands() error {
	_, err := robo.session.ApplicationCommandBulkOverwrite(robo.secrets.ClientID, "", slashCommands)
	if err != nil {
		return fmt.Errorf("couldn't update slash commands: %w", err)
	}
	slog.Info("registered slash commands", slog.Int("n", len(slashCommands)))
	return nil
}

// discordHandlers installs the bot's Discord event handlers.
func (robo *Robot) discordHandlers(ctx context.Context) {
	s := robo.session
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	s.AddHandler(func(s *discordgo.Session, ev *discordgo.Ready) {
		slog.InfoContext(ctx, "ready", slog.String("user", ev.User.String()), slog.Int("guilds", len(ev.Guilds)))
	})
	s.AddHandler(func(s *discordgo.Session, ev *discordgo.GuildCreate) {
		robo.syncCounts(ctx, slog.With(slog.Any("trace", uuid.New()), slog.String("in", ev.ID)), ev.ID)
	})
	s.AddHandler(func(s *discordgo.Session, ev *discordgo.InteractionCreate) {
		robo.onInteraction(ctx, s, ev)
	})
	s.AddHandler(func(s *discordgo.Session, ev *discordgo.MessageCreate) {
		robo.onMessage(ctx, ev)
	})
	s.AddHandler(func(s *discordgo.Session, ev *discordgo.GuildMemberAdd) {
		log := slog.With(slog.Any("trace", uuid.New()), slog.String("in", ev.GuildID))
		g, err := robo.guild(ev.GuildID)
		if err != nil {
			log.ErrorContext(ctx, "couldn't get guild for new member", slog.Any("err", err))
			return
		}
		r := robo.command(log)
		command.Welcome(ctx, r, g, ev.User.ID)
		command.SyncCounts(ctx, r, g)
	})
	s.AddHandler(func(s *discordgo.Session, ev *discordgo.GuildMemberRemove) {
		robo.syncCounts(ctx, slog.With(slog.Any("trace", uuid.New()), slog.String("in", ev.GuildID)), ev.GuildID)
	})
}

func (robo *Robot) syncCounts(ctx context.Context, log *slog.Logger, guild string) {
	g, err := robo.guild(guild)
	if err != nil {
		log.ErrorContext(ctx, "couldn't get guild to count members", slog.Any("err", err))
		return
	}
	command.SyncCounts(ctx, robo.command(log), g)
}

// guild snapshots a guild's membership from the session state.
func (robo *Robot) guild(id string) (command.Guild, error) {
	st := robo.session.State
	g, err := st.Guild(id)
	if err != nil {
		return command.Guild{}, fmt.Errorf("couldn't find guild %s: %w", id, err)
	}
	st.RLock()
	defer st.RUnlock()
	r := command.Guild{ID: g.ID, Name: g.Name, Members: g.MemberCount}
	for _, m := range g.Members {
		if slices.Contains(m.Roles, robo.settings.StaffRole) {
			r.Staff++
		}
	}
	return r, nil
}

func (robo *Robot) onInteraction(ctx context.Context, s *discordgo.Session, ev *discordgo.InteractionCreate) {
	log := slog.With(slog.Any("trace", uuid.New()), slog.String("in", ev.GuildID))
	resp := &responder{s: s, i: ev.Interaction}
	call := command.Invocation{
		Guild:   ev.GuildID,
		Channel: ev.ChannelID,
		Time:    snowflakeTime(ev.ID),
		Reply:   resp.reply,
		Defer:   resp.ack,
	}
	var ok bool
	call.Caller, ok = caller(ev.Interaction)
	if !ok {
		log.WarnContext(ctx, "interaction with no user", slog.String("id", ev.ID))
		return
	}
	r := robo.command(log)
	switch ev.Type {
	case discordgo.InteractionApplicationCommand:
		d := ev.ApplicationCommandData()
		call.Name = d.Name
		call.Args = options(d.Options)
		command.Do(ctx, r, &call)
	case discordgo.InteractionMessageComponent:
		call.Name = ev.MessageComponentData().CustomID
		command.Press(ctx, r, &call)
	}
}

// caller identifies the user behind an interaction. Guild interactions carry
// a member with roles; DM interactions carry only a user.
func caller(i *discordgo.Interaction) (command.Caller, bool) {
	switch {
	case i.Member != nil && i.Member.User != nil:
		return command.Caller{ID: i.Member.User.ID, Name: cmp.Or(i.Member.DisplayName(), i.Member.User.Username), Roles: i.Member.Roles}, true
	case i.User != nil:
		return command.Caller{ID: i.User.ID, Name: cmp.Or(i.User.GlobalName, i.User.Username)}, true
	default:
		return command.Caller{}, false
	}
}

// options flattens slash command options into arguments. Users and roles
// become their IDs.
func options(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]string {
	args := make(map[string]string, len(opts))
	for _, o := range opts {
		switch o.Type {
		case discordgo.ApplicationCommandOptionUser:
			args[o.Name] = o.UserValue(nil).ID
		case discordgo.ApplicationCommandOptionRole:
			args[o.Name] = o.RoleValue(nil, "").ID
		case discordgo.ApplicationCommandOptionString:
			args[o.Name] = o.StringValue()
		default:
			args[o.Name] = fmt.Sprint(o.Value)
		}
	}
	return args
}

func snowflakeTime(id string) time.Time {
	t, err := discordgo.SnowflakeTimestamp(id)
	if err != nil {
		return time.Now()
	}
	return t
}

func (robo *Robot) onMessage(ctx context.Context, ev *discordgo.MessageCreate) {
	if ev.Author == nil || ev.Author.Bot || ev.GuildID != "" {
		return
	}
	log := slog.With(slog.String("trace", ev.ID), slog.String("in", ev.ChannelID))
	command.Direct(ctx, robo.command(log), message.FromDiscord(ev.Message))
}

// responder replies to an interaction, completing it if it was deferred.
type responder struct {
	s        *discordgo.Session
	i        *discordgo.Interaction
	deferred bool
}

func (r *responder) reply(ctx context.Context, msg message.Sent) error {
	if r.deferred {
		_, err := r.s.InteractionResponseEdit(r.i, message.ToEdit(msg), discordgo.WithContext(ctx))
		return err
	}
	return r.s.InteractionRespond(r.i, message.ToInteraction(msg), discordgo.WithContext(ctx))
}

func (r *responder) ack(ctx context.Context, private bool) error {
	resp := discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{},
	}
	if private {
		resp.Data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := r.s.InteractionRespond(r.i, &resp, discordgo.WithContext(ctx)); err != nil {
		return err
	}
	r.deferred = true
	return nil
}

// platform implements command.Platform and logwatch.Sender on a Discord
// session.
type platform struct {
	s *discordgo.Session
}

func (p *platform) Send(ctx context.Context, msg message.Sent) error {
	_, err := p.s.ChannelMessageSendComplex(msg.To, message.ToDiscord(msg), discordgo.WithContext(ctx))
	return err
}

func (p *platform) DM(ctx context.Context, user string, msg message.Sent) error {
	ch, err := p.s.UserChannelCreate(user, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("couldn't open DM channel: %w", err)
	}
	_, err = p.s.ChannelMessageSendComplex(ch.ID, message.ToDiscord(msg), discordgo.WithContext(ctx))
	return err
}

func (p *platform) ChannelName(ctx context.Context, channel string) (string, error) {
	if c, err := p.s.State.Channel(channel); err == nil {
		return c.Name, nil
	}
	c, err := p.s.Channel(channel, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return c.Name, nil
}

func (p *platform) Rename(ctx context.Context, channel, name string) error {
	_, err := p.s.ChannelEdit(channel, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx))
	return err
}

func (p *platform) Roles(ctx context.Context, guild, user string) ([]string, error) {
	m, err := p.s.GuildMember(guild, user, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("couldn't get member: %w", err)
	}
	all, err := p.s.GuildRoles(guild, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("couldn't get roles: %w", err)
	}
	pos := make(map[string]int, len(all))
	for _, r := range all {
		pos[r.ID] = r.Position
	}
	roles := slices.Clone(m.Roles)
	slices.SortStableFunc(roles, func(a, b string) int { return cmp.Compare(pos[b], pos[a]) })
	return roles, nil
}

func (p *platform) Latency() time.Duration {
	return p.s.HeartbeatLatency()
}
