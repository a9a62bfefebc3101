package logwatch_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/zephyrtronium/lacbot/erlc"
	"github.com/zephyrtronium/lacbot/logwatch"
	"github.com/zephyrtronium/lacbot/message"
	"github.com/zephyrtronium/lacbot/metrics"
)

// feeds is a round tripper serving log feeds by path.
type feeds struct {
	mu     sync.Mutex
	status map[string]int
	body   map[string]string
}

func (f *feeds) set(ep string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == nil {
		f.status = make(map[string]int)
		f.body = make(map[string]string)
	}
	f.status[ep] = status
	f.body[ep] = body
}

func (f *feeds) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ep := strings.TrimPrefix(req.URL.Path, "/v1")
	s, ok := f.status[ep]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return &http.Response{
		StatusCode: s,
		Body:       io.NopCloser(strings.NewReader(f.body[ep])),
		Request:    req,
	}, nil
}

type sent struct {
	To    string
	Title string
}

// sink records sent log entries.
type sink struct {
	mu   sync.Mutex
	got  []sent
	fail func(msg message.Sent) error
}

func (s *sink) Send(ctx context.Context, msg message.Sent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, sent{To: msg.To, Title: msg.Embed.Title})
	if s.fail != nil {
		return s.fail(msg)
	}
	return nil
}

func (s *sink) take() []sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.got
	s.got = nil
	return r
}

var channels = logwatch.Channels{
	Join:     "joins",
	Leave:    "leaves",
	Commands: "commands",
	KickBan:  "kickban",
}

func watcher(f *feeds, out logwatch.Sender, retain time.Duration) *logwatch.Watcher {
	c := &erlc.Client{
		HTTP: &http.Client{Transport: f},
		Key:  "kessoku",
		Base: "https://erlc.example/v1/",
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return logwatch.New(c, out, channels, retain, log, metrics.New())
}

const (
	joinlogs = `[
		{"Join": true, "Timestamp": 1704614400, "Player": "bocchi:1001"},
		{"join": false, "timestamp": 1704614460, "player": "ryo:1002"},
		{"Timestamp": 1704614470, "Player": "nijika:1003"},
		{"Join": null, "Timestamp": 1704614480, "Player": "kita:1004"}
	]`
	commandlogs = `[
		{"Player": "kita:1004", "Timestamp": 1704614400, "Command": ":h hello"},
		{"player": "bocchi:1001", "timestamp": 1704614460, "command": ":KICK ryo"},
		{"Player": "nijika:1003", "Timestamp": 1704614520, "Command": ":ban kita spam"},
		{"Player": "ryo:1002", "Timestamp": 1704614580, "Command": ":banner"}
	]`
)

var asof = time.Unix(1704614600, 0)

func TestTick(t *testing.T) {
	ctx := context.Background()
	var f feeds
	f.set("/server/joinlogs", 200, joinlogs)
	f.set("/server/commandlogs", 200, commandlogs)
	var out sink
	w := watcher(&f, &out, 0)
	w.Tick(ctx, asof)
	want := []sent{
		{"joins", "Player joined"},
		{"leaves", "Player left"},
		{"commands", "Command log"},
		{"commands", "Command log"},
		{"kickban", "Player kicked"},
		{"commands", "Command log"},
		{"kickban", "Player banned"},
		{"commands", "Command log"},
	}
	if diff := cmp.Diff(want, out.take()); diff != "" {
		t.Errorf("wrong first tick (-want/+got):\n%s", diff)
	}

	w.Tick(ctx, asof.Add(30*time.Second))
	if got := out.take(); len(got) != 0 {
		t.Errorf("second tick resent entries: %v", got)
	}

	f.set("/server/commandlogs", 200, `[
		{"Player": "kita:1004", "Timestamp": 1704614400, "Command": ":h hello"},
		{"Player": "kita:1004", "Timestamp": 1704614610, "Command": ":h hello"}
	]`)
	w.Tick(ctx, asof.Add(60*time.Second))
	if diff := cmp.Diff([]sent{{"commands", "Command log"}}, out.take()); diff != "" {
		t.Errorf("wrong third tick (-want/+got):\n%s", diff)
	}
}

func TestTickIndependent(t *testing.T) {
	ctx := context.Background()
	var f feeds
	f.set("/server/joinlogs", 500, "oops")
	f.set("/server/commandlogs", 200, `[{"Player": "kita:1004", "Timestamp": 1704614400, "Command": ":h hello"}]`)
	var out sink
	w := watcher(&f, &out, 0)
	w.Tick(ctx, asof)
	if diff := cmp.Diff([]sent{{"commands", "Command log"}}, out.take()); diff != "" {
		t.Errorf("wrong entries with failed join logs (-want/+got):\n%s", diff)
	}

	f = feeds{}
	f.set("/server/joinlogs", 200, `[{"Join": true, "Timestamp": 1704614400, "Player": "bocchi:1001"}]`)
	f.set("/server/commandlogs", 403, "")
	w.Tick(ctx, asof)
	if diff := cmp.Diff([]sent{{"joins", "Player joined"}}, out.take()); diff != "" {
		t.Errorf("wrong entries with failed command logs (-want/+got):\n%s", diff)
	}

	// Unreachable feeds just skip the tick.
	f = feeds{}
	w.Tick(ctx, asof)
	if got := out.take(); len(got) != 0 {
		t.Errorf("sent entries with no feeds: %v", got)
	}
}

func TestTickSendFailure(t *testing.T) {
	ctx := context.Background()
	var f feeds
	f.set("/server/joinlogs", 200, "[]")
	f.set("/server/commandlogs", 200, commandlogs)
	out := sink{fail: func(msg message.Sent) error { return errors.New("missing access") }}
	w := watcher(&f, &out, 0)
	w.Tick(ctx, asof)
	if got := out.take(); len(got) != 6 {
		t.Errorf("failed sends stopped the batch: %v", got)
	}
	// Failed entries are still seen.
	out.fail = nil
	w.Tick(ctx, asof)
	if got := out.take(); len(got) != 0 {
		t.Errorf("failed entries were resent: %v", got)
	}
}

func TestTickRetention(t *testing.T) {
	ctx := context.Background()
	var f feeds
	f.set("/server/joinlogs", 200, `[{"Join": true, "Timestamp": 1704614400, "Player": "bocchi:1001"}]`)
	f.set("/server/commandlogs", 200, "[]")
	var out sink
	w := watcher(&f, &out, time.Hour)
	w.Tick(ctx, asof)
	if got := out.take(); len(got) != 1 {
		t.Fatalf("wrong entries on first tick: %v", got)
	}
	// Long after the entry expires, the API still returning it must not
	// cause it to be sent again.
	w.Tick(ctx, asof.Add(2*time.Hour))
	if got := out.take(); len(got) != 0 {
		t.Errorf("expired entry was resent: %v", got)
	}
}

func TestTickUnsetChannel(t *testing.T) {
	ctx := context.Background()
	var f feeds
	f.set("/server/joinlogs", 200, joinlogs)
	f.set("/server/commandlogs", 200, "[]")
	var out sink
	w := logwatch.New(
		&erlc.Client{HTTP: &http.Client{Transport: &f}, Key: "kessoku", Base: "https://erlc.example/v1/"},
		&out,
		logwatch.Channels{Join: "joins"},
		0,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics.New(),
	)
	w.Tick(ctx, asof)
	if diff := cmp.Diff([]sent{{"joins", "Player joined"}}, out.take()); diff != "" {
		t.Errorf("wrong entries (-want/+got):\n%s", diff)
	}
}

func TestRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var f feeds
	f.set("/server/joinlogs", 200, joinlogs)
	f.set("/server/commandlogs", 200, "[]")
	out := sink{fail: func(msg message.Sent) error {
		cancel()
		return nil
	}}
	w := watcher(&f, &out, 0)
	err := w.Run(ctx, time.Millisecond, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("wrong error from run: %v", err)
	}
	if got := out.take(); len(got) == 0 {
		t.Errorf("run never ticked")
	}
}
