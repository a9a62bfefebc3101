package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gitlab.com/zephyrtronium/pick"
	"golang.org/x/time/rate"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/zephyrtronium/lacbot/audit"
	"github.com/zephyrtronium/lacbot/command"
	"github.com/zephyrtronium/lacbot/erlc"
	"github.com/zephyrtronium/lacbot/logwatch"
)

// Load loads the bot configuration from TOML.
func Load(ctx context.Context, r io.Reader) (*Config, *toml.MetaData, error) {
	cfg := Config{
		Gate: GateCfg{Threshold: 2, Duration: 24 * time.Hour},
		ERLC: ERLCCfg{
			Delay:     2 * time.Second,
			Interval:  30 * time.Second,
			Retention: 6 * time.Hour,
			Rate:      Rate{Every: 1, Num: 2},
		},
		Audit: AuditCfg{DSN: "file:lacbot-audit?mode=memory&cache=shared"},
	}
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't decode config: %w", err)
	}
	expandcfg(&cfg, os.Getenv)
	return &cfg, &md, nil
}

// Config is the marshaled structure of the bot's configuration.
type Config struct {
	// Server is the name of the community as it appears in appeal prompts.
	Server string `toml:"server"`
	// Env is the path to a .env file holding credentials.
	// Variables already in the environment take precedence.
	Env string `toml:"env"`
	// HTTP is the metrics and API server configuration.
	HTTP struct {
		Listen string `toml:"listen"`
	} `toml:"http"`
	// Audit is the audit log configuration.
	Audit AuditCfg `toml:"audit"`
	// Roles is the table of role IDs with special meaning.
	Roles Roles `toml:"roles"`
	// Channels is the table of channel IDs the bot posts to.
	Channels Channels `toml:"channels"`
	// Emoji is the table of custom emoji the bot uses.
	Emoji Emoji `toml:"emoji"`
	// Welcome is the configuration for greeting new members.
	Welcome Welcome `toml:"welcome"`
	// Gate is the permission denial escalation configuration.
	Gate GateCfg `toml:"gate"`
	// ERLC is the game server API configuration.
	ERLC ERLCCfg `toml:"erlc"`
}

// AuditCfg is the configuration of the audit log.
type AuditCfg struct {
	// DSN is the SQLite connection string for the audit database.
	DSN string `toml:"dsn"`
}

// Roles holds role IDs.
type Roles struct {
	// Promote is the role allowed to use /promote.
	Promote string `toml:"promote"`
	// Relay is the role allowed to use /erlc.
	Relay string `toml:"relay"`
	// RankExcluded is a role never reported as a member's old rank.
	RankExcluded string `toml:"rank_excluded"`
	// Staff is the role counted in the staff voice channel name.
	Staff string `toml:"staff"`
}

// Channels holds channel IDs. Empty channels disable whatever posts to them.
type Channels struct {
	Appeals     string `toml:"appeals"`
	Welcome     string `toml:"welcome"`
	MemberCount string `toml:"member_count"`
	StaffCount  string `toml:"staff_count"`
	JoinLogs    string `toml:"join_logs"`
	LeaveLogs   string `toml:"leave_logs"`
	CommandLogs string `toml:"command_logs"`
	KickBanLogs string `toml:"kickban_logs"`
}

// Emoji holds custom emoji in message syntax.
type Emoji struct {
	Logo    string `toml:"logo"`
	Warning string `toml:"warning"`
	Welcome string `toml:"welcome"`
	// MemberCount is the bare ID of the emoji on the member count button.
	MemberCount string `toml:"member_count"`
}

// Welcome is the configuration for greeting new members.
type Welcome struct {
	// Emotes is the emotes and their weights for welcome messages.
	// If empty, the welcome emoji is always used.
	Emotes map[string]int `toml:"emotes"`
	// DM is the body of the direct message to new members.
	DM string `toml:"dm"`
}

// GateCfg configures permission denial escalation.
type GateCfg struct {
	// Threshold is the number of denials that starts a suspension.
	Threshold uint `toml:"threshold"`
	// Duration is the length of suspensions.
	Duration time.Duration `toml:"duration"`
}

// ERLCCfg is the configuration for the game server API.
type ERLCCfg struct {
	// Base is the API root. Defaults to the public API.
	Base string `toml:"base"`
	// Delay is the time from startup to the first log poll.
	Delay time.Duration `toml:"delay"`
	// Interval is the time between log polls.
	Interval time.Duration `toml:"interval"`
	// Retention is how long seen log entries are remembered.
	// Zero remembers them forever.
	Retention time.Duration `toml:"retention"`
	// Rate is the rate limit for API requests.
	Rate Rate `toml:"rate"`
}

// Rate is a rate limit configuration.
type Rate struct {
	Every float64 `toml:"every"`
	Num   int     `toml:"num"`
}

func fseconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func expandcfg(cfg *Config, expand func(s string) string) {
	fields := []*string{
		&cfg.Server,
		&cfg.Env,
		&cfg.HTTP.Listen,
		&cfg.Audit.DSN,
		&cfg.Roles.Promote,
		&cfg.Roles.Relay,
		&cfg.Roles.RankExcluded,
		&cfg.Roles.Staff,
		&cfg.Channels.Appeals,
		&cfg.Channels.Welcome,
		&cfg.Channels.MemberCount,
		&cfg.Channels.StaffCount,
		&cfg.Channels.JoinLogs,
		&cfg.Channels.LeaveLogs,
		&cfg.Channels.CommandLogs,
		&cfg.Channels.KickBanLogs,
		&cfg.ERLC.Base,
	}
	for _, f := range fields {
		*f = os.Expand(*f, expand)
	}
}

// Secrets are the credentials the bot runs with.
type Secrets struct {
	// Token is the Discord bot token.
	Token string `env:"DISCORD_TOKEN"`
	// ClientID is the Discord application ID.
	ClientID string `env:"CLIENT_ID"`
	// ServerKey is the ER:LC server key. If it is empty, commands relayed to
	// the game server and log polling are disabled.
	ServerKey string `env:"ERLC_API_KEY"`
}

// ErrMissing is wrapped by errors for required credentials that are absent.
var ErrMissing = errors.New("missing required credential")

// loadSecrets reads credentials from the environment, first loading the
// given .env file if it exists.
func loadSecrets(file string) (*Secrets, error) {
	if file != "" {
		err := godotenv.Load(file)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("couldn't load env file: %w", err)
		}
	}
	var s Secrets
	if err := env.Parse(&s); err != nil {
		return nil, fmt.Errorf("couldn't parse credentials: %w", err)
	}
	s.Token = strings.TrimSpace(s.Token)
	s.ClientID = strings.TrimSpace(s.ClientID)
	s.ServerKey = strings.TrimSpace(s.ServerKey)
	return &s, nil
}

// require checks that the credentials to log in to Discord are present.
func (s *Secrets) require() error {
	if s.Token == "" {
		return fmt.Errorf("%w: DISCORD_TOKEN", ErrMissing)
	}
	if s.ClientID == "" {
		return fmt.Errorf("%w: CLIENT_ID", ErrMissing)
	}
	return nil
}

// relay creates the game server client, or nil if there is no server key.
func (cfg *Config) relay(key string) *erlc.Client {
	if key == "" {
		return nil
	}
	return &erlc.Client{
		HTTP: &http.Client{Timeout: 30 * time.Second},
		Key:  key,
		Base: cfg.ERLC.Base,
		Rate: rate.NewLimiter(rate.Every(fseconds(cfg.ERLC.Rate.Every)), cfg.ERLC.Rate.Num),
	}
}

// settings builds the configuration visible to commands.
func (cfg *Config) settings() *command.Settings {
	s := &command.Settings{
		ServerName:         cfg.Server,
		PromoteRole:        cfg.Roles.Promote,
		RelayRole:          cfg.Roles.Relay,
		RankExcluded:       cfg.Roles.RankExcluded,
		StaffRole:          cfg.Roles.Staff,
		AppealChannel:      cfg.Channels.Appeals,
		WelcomeChannel:     cfg.Channels.Welcome,
		MemberCountChannel: cfg.Channels.MemberCount,
		StaffCountChannel:  cfg.Channels.StaffCount,
		Emoji: command.Emoji{
			Logo:        cfg.Emoji.Logo,
			Warning:     cfg.Emoji.Warning,
			Welcome:     cfg.Emoji.Welcome,
			MemberCount: cfg.Emoji.MemberCount,
		},
		WelcomeDM: cfg.Welcome.DM,
	}
	if len(cfg.Welcome.Emotes) != 0 {
		s.Welcome = pick.New(pick.FromMap(cfg.Welcome.Emotes))
	}
	return s
}

// unusable lists the gated commands whose role is not configured.
// Nobody can use them.
func (cfg *Config) unusable() []string {
	s := cfg.settings()
	var r []string
	for _, c := range command.Slash {
		if c.Capability != nil && c.Capability(s) == "" {
			r = append(r, c.Name)
		}
	}
	return r
}

// logChannels gives the destinations for mirrored game server logs.
func (cfg *Config) logChannels() logwatch.Channels {
	return logwatch.Channels{
		Join:     cfg.Channels.JoinLogs,
		Leave:    cfg.Channels.LeaveLogs,
		Commands: cfg.Channels.CommandLogs,
		KickBan:  cfg.Channels.KickBanLogs,
	}
}

// openAudit opens the audit log database.
func openAudit(ctx context.Context, dsn string) (*audit.Log, *sqlitex.Pool, error) {
	slog.DebugContext(ctx, "audit db", slog.String("dsn", dsn))
	pool, err := sqlitex.NewPool(dsn, sqlitex.PoolOptions{Flags: sqlite.OpenReadWrite | sqlite.OpenCreate | sqlite.OpenURI})
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't open audit db: %w", err)
	}
	l, err := audit.Open(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return l, pool, nil
}
