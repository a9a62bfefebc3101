package message

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"
)

func TestFromDiscord(t *testing.T) {
	ts := time.UnixMilli(1700000000123)
	m := &discordgo.Message{
		ID:        "1",
		ChannelID: "dm",
		Content:   "Speeding",
		Timestamp: ts,
		Author:    &discordgo.User{ID: "bocchi", Username: "bocchi", Discriminator: "0001"},
	}
	got := FromDiscord(m)
	want := &Received{
		ID:        "1",
		To:        "dm",
		Sender:    "bocchi",
		Name:      "bocchi#0001",
		Text:      "Speeding",
		Timestamp: 1700000000123,
		Direct:    true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("wrong conversion (-want/+got):\n%s", diff)
	}
	m.GuildID = "kessoku"
	if FromDiscord(m).Direct {
		t.Errorf("guild message marked direct")
	}
}

func TestToDiscord(t *testing.T) {
	msg := Sent{
		To:   "appeals",
		Text: "hi",
		Embed: &Embed{
			Title:  "Ban Appeal",
			Fields: []Field{{Name: "Roblox ID", Value: "123"}},
			Footer: "foot",
			Color:  0xED4245,
		},
		Actions: []Action{
			{ID: "accept_x", Label: "Accept", Style: Success},
			{ID: "deny_x", Label: "Deny", Style: Danger},
		},
	}
	got := ToDiscord(msg)
	if got.Content != "hi" {
		t.Errorf("wrong content %q", got.Content)
	}
	if len(got.Embeds) != 1 {
		t.Fatalf("wrong number of embeds: %d", len(got.Embeds))
	}
	e := got.Embeds[0]
	if e.Title != "Ban Appeal" || e.Color != 0xED4245 || e.Footer == nil || e.Footer.Text != "foot" {
		t.Errorf("wrong embed: %+v", e)
	}
	if len(e.Fields) != 1 || e.Fields[0].Name != "Roblox ID" || e.Fields[0].Value != "123" {
		t.Errorf("wrong fields: %+v", e.Fields)
	}
	if len(got.Components) != 1 {
		t.Fatalf("wrong number of rows: %d", len(got.Components))
	}
	row := got.Components[0].(discordgo.ActionsRow)
	if len(row.Components) != 2 {
		t.Fatalf("wrong number of buttons: %d", len(row.Components))
	}
	b := row.Components[1].(discordgo.Button)
	if b.CustomID != "deny_x" || b.Style != discordgo.DangerButton {
		t.Errorf("wrong button: %+v", b)
	}
}

func TestToInteraction(t *testing.T) {
	r := ToInteraction(Privately("no %s", "way"))
	if r.Type != discordgo.InteractionResponseChannelMessageWithSource {
		t.Errorf("wrong response type %v", r.Type)
	}
	if r.Data.Content != "no way" {
		t.Errorf("wrong content %q", r.Data.Content)
	}
	if r.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Errorf("private response not ephemeral")
	}
	pub := ToInteraction(Format("", "hello"))
	if pub.Data.Flags&discordgo.MessageFlagsEphemeral != 0 {
		t.Errorf("public response ephemeral")
	}
	if pub.Data.Embeds != nil || pub.Data.Components != nil {
		t.Errorf("empty message got embeds or components")
	}
}

func TestToEdit(t *testing.T) {
	e := ToEdit(Format("", "Command sent: `%s`.", ":h hi"))
	if e.Content == nil || *e.Content != "Command sent: `:h hi`." {
		t.Errorf("wrong content %v", e.Content)
	}
	if e.Embeds != nil || e.Components != nil {
		t.Errorf("plain edit got embeds or components")
	}
	e = ToEdit(Sent{Embed: &Embed{Title: "x"}, Actions: []Action{{ID: "y"}}})
	if e.Embeds == nil || len(*e.Embeds) != 1 || e.Components == nil || len(*e.Components) != 1 {
		t.Errorf("wrong rich edit %+v", e)
	}
}
