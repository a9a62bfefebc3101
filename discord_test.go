package main

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"

	"github.com/zephyrtronium/lacbot/command"
)

func TestCaller(t *testing.T) {
	cases := []struct {
		name string
		in   discordgo.Interaction
		want command.Caller
		ok   bool
	}{
		{
			name: "member",
			in: discordgo.Interaction{Member: &discordgo.Member{
				User:  &discordgo.User{ID: "1", Username: "bocchi", GlobalName: "Bocchi"},
				Nick:  "hitori",
				Roles: []string{"guitar"},
			}},
			want: command.Caller{ID: "1", Name: "hitori", Roles: []string{"guitar"}},
			ok:   true,
		},
		{
			name: "member-username",
			in: discordgo.Interaction{Member: &discordgo.Member{
				User: &discordgo.User{ID: "4", Username: "kita"},
			}},
			want: command.Caller{ID: "4", Name: "kita"},
			ok:   true,
		},
		{
			name: "global-name",
			in:   discordgo.Interaction{User: &discordgo.User{ID: "2", Username: "ryo", GlobalName: "Ryo"}},
			want: command.Caller{ID: "2", Name: "Ryo"},
			ok:   true,
		},
		{
			name: "username",
			in:   discordgo.Interaction{User: &discordgo.User{ID: "3", Username: "nijika"}},
			want: command.Caller{ID: "3", Name: "nijika"},
			ok:   true,
		},
		{
			name: "nobody",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := caller(&c.in)
			if ok != c.ok {
				t.Errorf("wrong ok: want %t, got %t", c.ok, ok)
			}
			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Errorf("wrong caller (-want/+got):\n%s", diff)
			}
		})
	}
}
