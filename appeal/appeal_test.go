package appeal_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/zephyrtronium/lacbot/appeal"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"123456", "123456"},
		{"123abc456", "123456"},
		{"  id: 7 8 9 ", "789"},
		{"bocchi", "bocchi"},
		{"  ryo  ", "ryo"},
		{"", "*(not provided)*"},
		{"   ", "*(not provided)*"},
	}
	for _, c := range cases {
		if got := appeal.Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q): want %q, got %q", c.in, c.want, got)
		}
	}
}

func TestNewIDDistinct(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	a := appeal.NewID("bocchi", now)
	b := appeal.NewID("bocchi", now.Add(time.Millisecond))
	if a == b {
		t.Errorf("same ID for different times: %q", a)
	}
	if c := appeal.NewID("ryo", now); a == c {
		t.Errorf("same ID for different users: %q", a)
	}
	if a != "appeal_bocchi_1700000000000" {
		t.Errorf("unexpected ID format %q", a)
	}
}

func TestConversation(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	reg := appeal.NewRegistry()
	tr := appeal.NewTracker(reg)
	if _, err := tr.Advance("bocchi", "bocchi#0001", "hi", now); !errors.Is(err, appeal.ErrNoConversation) {
		t.Errorf("advance without conversation: want ErrNoConversation, got %v", err)
	}
	tr.Start("bocchi")
	if s, ok := tr.Stage("bocchi"); !ok || s != appeal.ReasonPending {
		t.Errorf("wrong stage after start: %v %t", s, ok)
	}
	step, err := tr.Advance("bocchi", "bocchi#0001", "Speeding", now)
	if err != nil {
		t.Fatalf("couldn't advance: %v", err)
	}
	if step.Stage != appeal.IdentifierPending || step.Appeal != nil {
		t.Errorf("wrong step after reason: %+v", step)
	}
	step, err = tr.Advance("bocchi", "bocchi#0001", "123abc456", now)
	if err != nil {
		t.Fatalf("couldn't finalize: %v", err)
	}
	want := &appeal.Appeal{
		ID:         "appeal_bocchi_1700000000000",
		Requester:  "bocchi",
		Tag:        "bocchi#0001",
		Reason:     "Speeding",
		Identifier: "123456",
		Raw:        "123abc456",
		Submitted:  now,
	}
	if diff := cmp.Diff(want, step.Appeal); diff != "" {
		t.Errorf("wrong appeal (-want/+got):\n%s", diff)
	}
	if _, ok := tr.Stage("bocchi"); ok {
		t.Errorf("conversation survived finalization")
	}
	if reg.Len() != 1 {
		t.Errorf("wrong registry size: want 1, got %d", reg.Len())
	}
	// A further message restarts from the intro rather than appending.
	if _, err := tr.Advance("bocchi", "bocchi#0001", "more", now); !errors.Is(err, appeal.ErrNoConversation) {
		t.Errorf("advance after finalization: want ErrNoConversation, got %v", err)
	}
}

func TestEmptyReason(t *testing.T) {
	tr := appeal.NewTracker(appeal.NewRegistry())
	tr.Start("kita")
	tr.Advance("kita", "", "", time.Unix(1, 0))
	step, err := tr.Advance("kita", "", "", time.Unix(1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if step.Appeal.Reason != "*(no reason given)*" {
		t.Errorf("wrong placeholder reason %q", step.Appeal.Reason)
	}
	if step.Appeal.Identifier != "*(not provided)*" || step.Appeal.Raw != "*(not provided)*" {
		t.Errorf("wrong placeholder identifier %q / %q", step.Appeal.Identifier, step.Appeal.Raw)
	}
}

func TestBlankReasonVerbatim(t *testing.T) {
	tr := appeal.NewTracker(appeal.NewRegistry())
	tr.Start("kita")
	tr.Advance("kita", "", "   ", time.Unix(1, 0))
	step, err := tr.Advance("kita", "", "123", time.Unix(1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if step.Appeal.Reason != "   " {
		t.Errorf("blank reason not kept verbatim: %q", step.Appeal.Reason)
	}
}

func TestConversationsIndependent(t *testing.T) {
	reg := appeal.NewRegistry()
	tr := appeal.NewTracker(reg)
	now := time.UnixMilli(1700000000000)
	tr.Start("bocchi")
	tr.Start("ryo")
	tr.Advance("bocchi", "", "Speeding", now)
	tr.Advance("ryo", "", "RDM", now)
	b, err := tr.Advance("bocchi", "", "111", now)
	if err != nil {
		t.Fatal(err)
	}
	r, err := tr.Advance("ryo", "", "222", now)
	if err != nil {
		t.Fatal(err)
	}
	if b.Appeal.Reason != "Speeding" || b.Appeal.Identifier != "111" {
		t.Errorf("bocchi's appeal contaminated: %+v", b.Appeal)
	}
	if r.Appeal.Reason != "RDM" || r.Appeal.Identifier != "222" {
		t.Errorf("ryo's appeal contaminated: %+v", r.Appeal)
	}
	if reg.Len() != 2 {
		t.Errorf("wrong registry size: want 2, got %d", reg.Len())
	}
}

func TestRestartDiscards(t *testing.T) {
	tr := appeal.NewTracker(appeal.NewRegistry())
	tr.Start("nijika")
	tr.Advance("nijika", "", "old reason", time.Unix(1, 0))
	tr.Start("nijika")
	tr.Advance("nijika", "", "new reason", time.Unix(1, 0))
	step, err := tr.Advance("nijika", "", "5", time.Unix(1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if step.Appeal.Reason != "new reason" {
		t.Errorf("restart kept old reason: %q", step.Appeal.Reason)
	}
}

func TestResolveOnce(t *testing.T) {
	reg := appeal.NewRegistry()
	a := &appeal.Appeal{ID: "appeal_bocchi_1"}
	reg.Store(a)
	got, ok := reg.Resolve(a.ID)
	if !ok || got != a {
		t.Errorf("first resolve: want %p, got %p %t", a, got, ok)
	}
	for range 3 {
		if _, ok := reg.Resolve(a.ID); ok {
			t.Errorf("resolved twice")
		}
	}
}

func TestResolveRace(t *testing.T) {
	reg := appeal.NewRegistry()
	reg.Store(&appeal.Appeal{ID: "appeal_ryo_1"})
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := reg.Resolve("appeal_ryo_1"); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Errorf("wrong number of resolutions: want 1, got %d", wins.Load())
	}
}
