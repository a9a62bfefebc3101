package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/zephyrtronium/lacbot/appeal"
	"github.com/zephyrtronium/lacbot/audit"
	"github.com/zephyrtronium/lacbot/command"
	"github.com/zephyrtronium/lacbot/erlc"
	"github.com/zephyrtronium/lacbot/gate"
	"github.com/zephyrtronium/lacbot/logwatch"
	"github.com/zephyrtronium/lacbot/metrics"
)

// Robot is the overall bot state.
type Robot struct {
	cfg     *Config
	secrets *Secrets

	// gate tracks permission denials and suspensions.
	gate *gate.Gate
	// appeals tracks appeal conversations in direct messages.
	appeals *appeal.Tracker
	// registry holds submitted appeals awaiting a decision.
	registry *appeal.Registry
	// relay is the game server client. It is nil without a server key.
	relay *erlc.Client
	// audit is the decision history.
	audit   *audit.Log
	auditDB *sqlitex.Pool
	// settings is the configuration visible to commands.
	settings *command.Settings
	// metrics are the bot's metrics.
	metrics *metrics.Metrics

	// session is the Discord connection.
	session *discordgo.Session
}

// New creates the bot with the given configuration and credentials.
func New(ctx context.Context, cfg *Config, secrets *Secrets) (*Robot, error) {
	if err := secrets.require(); err != nil {
		return nil, err
	}
	l, db, err := openAudit(ctx, cfg.Audit.DSN)
	if err != nil {
		return nil, err
	}
	for _, name := range cfg.unusable() {
		slog.WarnContext(ctx, "command role is not configured; nobody can use it", slog.String("command", name))
	}
	reg := appeal.NewRegistry()
	robo := &Robot{
		cfg:      cfg,
		secrets:  secrets,
		gate:     gate.New(cfg.Gate.Threshold, cfg.Gate.Duration),
		appeals:  appeal.NewTracker(reg),
		registry: reg,
		relay:    cfg.relay(secrets.ServerKey),
		audit:    l,
		auditDB:  db,
		settings: cfg.settings(),
		metrics:  metrics.New(),
	}
	robo.session, err = discordgo.New("Bot " + secrets.Token)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("couldn't create Discord session: %w", err)
	}
	robo.discordHandlers(ctx)
	return robo, nil
}

// command returns the bot state as visible to commands, logging to log.
func (robo *Robot) command(log *slog.Logger) *command.Robot {
	return &command.Robot{
		Log:      log,
		Gate:     robo.gate,
		Appeals:  robo.appeals,
		Registry: robo.registry,
		Relay:    robo.relay,
		Out:      &platform{s: robo.session},
		Audit:    robo.audit,
		Metrics:  robo.metrics,
		Settings: robo.settings,
	}
}

// Run connects to Discord and runs the bot until ctx is canceled.
func (robo *Robot) Run(ctx context.Context) error {
	defer robo.auditDB.Close()
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := robo.registerCommands(); err != nil {
			return err
		}
		if err := robo.session.Open(); err != nil {
			return fmt.Errorf("couldn't connect to Discord: %w", err)
		}
		slog.InfoContext(ctx, "connected to Discord")
		<-ctx.Done()
		return robo.session.Close()
	})
	if robo.relay != nil {
		w := logwatch.New(robo.relay, &platform{s: robo.session}, robo.cfg.logChannels(), robo.cfg.ERLC.Retention, slog.With(slog.String("task", "logwatch")), robo.metrics)
		group.Go(func() error {
			err := w.Run(ctx, robo.cfg.ERLC.Delay, robo.cfg.ERLC.Interval)
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
	} else {
		slog.WarnContext(ctx, "no ER:LC server key; command relay and log mirroring are disabled")
	}
	if robo.cfg.HTTP.Listen != "" {
		group.Go(func() error {
			return robo.api(ctx, robo.cfg.HTTP.Listen, new(http.ServeMux), robo.metrics.Collectors())
		})
	}
	err := group.Wait()
	if err == context.Canceled {
		// If the error is context canceled, then we are shutting down due to
		// the interrupt signal.
		return nil
	}
	return err
}
