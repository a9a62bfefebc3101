package message

import "github.com/bwmarrin/discordgo"

// FromDiscord adapts a Discord message.
func FromDiscord(m *discordgo.Message) *Received {
	r := Received{
		ID:        m.ID,
		To:        m.ChannelID,
		Text:      m.Content,
		Timestamp: m.Timestamp.UnixMilli(),
		Direct:    m.GuildID == "",
	}
	if m.Author != nil {
		r.Sender = m.Author.ID
		r.Name = m.Author.String()
		r.Bot = m.Author.Bot
	}
	return &r
}

// ToDiscord converts an outgoing message to a Discord message.
func ToDiscord(msg Sent) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:    msg.Text,
		Embeds:     embeds(msg.Embed),
		Components: components(msg.Actions),
	}
}

// ToInteraction converts an outgoing message to a Discord interaction
// response.
func ToInteraction(msg Sent) *discordgo.InteractionResponse {
	d := discordgo.InteractionResponseData{
		Content:    msg.Text,
		Embeds:     embeds(msg.Embed),
		Components: components(msg.Actions),
	}
	if msg.Private {
		d.Flags = discordgo.MessageFlagsEphemeral
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &d,
	}
}

func embeds(e *Embed) []*discordgo.MessageEmbed {
	if e == nil {
		return nil
	}
	r := discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		r.Fields = append(r.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	if e.Footer != "" {
		r.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	return []*discordgo.MessageEmbed{&r}
}

func components(aa []Action) []discordgo.MessageComponent {
	if len(aa) == 0 {
		return nil
	}
	row := discordgo.ActionsRow{Components: make([]discordgo.MessageComponent, 0, len(aa))}
	for _, a := range aa {
		b := discordgo.Button{
			CustomID: a.ID,
			Label:    a.Label,
			Style:    buttonStyle(a.Style),
			Disabled: a.Disabled,
		}
		if a.Emoji != "" {
			b.Emoji = &discordgo.ComponentEmoji{ID: a.Emoji}
		}
		row.Components = append(row.Components, b)
	}
	return []discordgo.MessageComponent{row}
}

func buttonStyle(s Style) discordgo.ButtonStyle {
	switch s {
	case Secondary:
		return discordgo.SecondaryButton
	case Success:
		return discordgo.SuccessButton
	case Danger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

// ToEdit converts an outgoing message to the completion of a deferred
// interaction response.
func ToEdit(msg Sent) *discordgo.WebhookEdit {
	e := discordgo.WebhookEdit{Content: &msg.Text}
	if ee := embeds(msg.Embed); ee != nil {
		e.Embeds = &ee
	}
	if cc := components(msg.Actions); cc != nil {
		e.Components = &cc
	}
	return &e
}
