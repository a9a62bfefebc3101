package appeal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zephyrtronium/lacbot/syncmap"
)

// Stage is the stage of an appeal conversation.
type Stage int

const (
	// ReasonPending is waiting for the user to say what they were banned for.
	ReasonPending Stage = iota + 1
	// IdentifierPending is waiting for the user's game account ID.
	IdentifierPending
)

func (s Stage) String() string {
	switch s {
	case ReasonPending:
		return "reason"
	case IdentifierPending:
		return "identifier"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// ErrNoConversation is the error returned by [Tracker.Advance] when the user
// has no conversation in progress.
var ErrNoConversation = errors.New("no appeal conversation")

// errStage is returned by Advance when the conversation is in an unknown
// stage. It indicates a bug.
var errStage = errors.New("appeal conversation in unknown stage")

type conversation struct {
	stage  Stage
	reason string
}

// Tracker tracks appeal conversations.
// Each user has at most one conversation at a time.
type Tracker struct {
	convs *syncmap.Map[string, conversation]
	reg   *Registry
}

// NewTracker creates a tracker which hands finalized appeals to reg.
func NewTracker(reg *Registry) *Tracker {
	return &Tracker{
		convs: syncmap.New[string, conversation](),
		reg:   reg,
	}
}

// Start begins an appeal conversation for user, discarding any conversation
// already in progress.
func (t *Tracker) Start(user string) {
	t.convs.Store(user, conversation{stage: ReasonPending})
}

// Stage returns the stage of user's conversation, if there is one.
func (t *Tracker) Stage(user string) (Stage, bool) {
	c, ok := t.convs.Load(user)
	return c.stage, ok
}

// Len returns the number of conversations in progress.
func (t *Tracker) Len() int {
	return t.convs.Len()
}

// Step is the result of advancing a conversation.
type Step struct {
	// Stage is the stage the conversation moved to.
	// It is zero when the conversation finished.
	Stage Stage
	// Appeal is the finalized appeal when the conversation finished.
	Appeal *Appeal
}

// Advance feeds a message from user into their conversation.
// tag is the user's display tag, recorded on the appeal if the message
// finishes the conversation.
// If the user has no conversation, the error is [ErrNoConversation].
func (t *Tracker) Advance(user, tag, text string, asof time.Time) (Step, error) {
	var (
		step Step
		err  error
	)
	t.convs.Update(user, func(c conversation, ok bool) (conversation, bool) {
		if !ok {
			err = ErrNoConversation
			return c, false
		}
		switch c.stage {
		case ReasonPending:
			c.reason = reason(text)
			c.stage = IdentifierPending
			step.Stage = IdentifierPending
			return c, true
		case IdentifierPending:
			raw := notProvided
			if s := strings.TrimSpace(text); s != "" {
				raw = s
			}
			step.Appeal = &Appeal{
				ID:         NewID(user, asof),
				Requester:  user,
				Tag:        tag,
				Reason:     c.reason,
				Identifier: Normalize(text),
				Raw:        raw,
				Submitted:  asof,
			}
			return c, false
		default:
			err = fmt.Errorf("%w: %v", errStage, c.stage)
			return c, false
		}
	})
	if err != nil {
		return Step{}, err
	}
	if step.Appeal != nil {
		t.reg.Store(step.Appeal)
	}
	return step, nil
}
