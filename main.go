package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/zephyrtronium/lacbot/erlc"
)

var app = cli.Command{
	Name:  "lacbot",
	Usage: "Discord moderation bot for an ER:LC private server",

	Flags: []cli.Flag{
		&flagConfig,
		&flagEnv,
		&flagLog,
		&flagLogFormat,
	},
	Commands: []*cli.Command{
		{
			Name:  "relay",
			Usage: "Run one command on the game server without serving",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "command",
					Usage:    "Command to run, e.g. \":h Hi\"",
					Required: true,
				},
			},
			Action: cliRelay,
		},
		{
			Name:   "logs",
			Usage:  "Print the game server's recent join and command logs",
			Action: cliLogs,
		},
	},
	Action: cliRun,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	go func() {
		<-ctx.Done()
		stop()
	}()
	err := app.Run(ctx, os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and credentials named by flags.
func setup(ctx context.Context, cmd *cli.Command) (*Config, *Secrets, error) {
	slog.SetDefault(loggerFromFlags(cmd))
	r, err := os.Open(cmd.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't open config file: %w", err)
	}
	cfg, _, err := Load(ctx, r)
	r.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't load config: %w", err)
	}
	file := cfg.Env
	if cmd.IsSet("env") || file == "" {
		file = cmd.String("env")
	}
	secrets, err := loadSecrets(file)
	if err != nil {
		return nil, nil, err
	}
	return cfg, secrets, nil
}

func cliRun(ctx context.Context, cmd *cli.Command) error {
	cfg, secrets, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	robo, err := New(ctx, cfg, secrets)
	if err != nil {
		return err
	}
	return robo.Run(ctx)
}

func cliRelay(ctx context.Context, cmd *cli.Command) error {
	cfg, secrets, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	c := cfg.relay(secrets.ServerKey)
	if c == nil {
		return fmt.Errorf("%w: ERLC_API_KEY", ErrMissing)
	}
	r, err := c.Command(ctx, cmd.String("command"))
	if err != nil {
		return err
	}
	switch r.Outcome {
	case erlc.Sent:
		fmt.Println("sent")
		return nil
	case erlc.Failed:
		return fmt.Errorf("%v (%d): %s", r.Outcome, r.Status, r.Body)
	case erlc.Unreachable:
		return fmt.Errorf("%v: %w", r.Outcome, r.Err)
	default:
		return errors.New(r.Outcome.String())
	}
}

func cliLogs(ctx context.Context, cmd *cli.Command) error {
	cfg, secrets, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	c := cfg.relay(secrets.ServerKey)
	if c == nil {
		return fmt.Errorf("%w: ERLC_API_KEY", ErrMissing)
	}
	joins, jerr := c.JoinLogs(ctx)
	for _, l := range joins {
		what := "left"
		if l.Join != nil && *l.Join {
			what = "joined"
		}
		fmt.Println(l.Time().Format("2006-01-02 15:04:05"), l.Player, what)
	}
	cmds, cerr := c.CommandLogs(ctx)
	for _, l := range cmds {
		fmt.Println(l.Time().Format("2006-01-02 15:04:05"), l.Player, l.Command)
	}
	return errors.Join(jerr, cerr)
}

var (
	flagConfig = cli.StringFlag{
		Name:       "config",
		Required:   true,
		Usage:      "TOML config file",
		Persistent: true,
		Action: func(ctx context.Context, cmd *cli.Command, s string) error {
			i, err := os.Stat(s)
			if err != nil {
				return err
			}
			if !i.Mode().IsRegular() {
				return errors.New("config must be a regular file")
			}
			return nil
		},
	}

	flagEnv = cli.StringFlag{
		Name:       "env",
		Usage:      "File of credential environment variables, used if it exists",
		Value:      ".env",
		Persistent: true,
	}

	flagLog = cli.StringFlag{
		Name:       "log",
		Usage:      "Logging level, one of debug, info, warn, error",
		Value:      "info",
		Persistent: true,
		Action: func(ctx context.Context, c *cli.Command, s string) error {
			var l slog.Level
			return l.UnmarshalText([]byte(s))
		},
	}

	flagLogFormat = cli.StringFlag{
		Name:       "log-format",
		Usage:      "Logging format, either text or json",
		Value:      "text",
		Persistent: true,
		Action: func(ctx context.Context, c *cli.Command, s string) error {
			switch strings.ToLower(s) {
			case "text", "json":
				return nil
			default:
				return errors.New("unknown logging format")
			}
		},
	}
)

func loggerFromFlags(cmd *cli.Command) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(cmd.String("log"))); err != nil {
		panic(err)
	}
	var h slog.Handler
	switch strings.ToLower(cmd.String("log-format")) {
	case "text":
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	case "json":
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	}
	return slog.New(h)
}
