package erlc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-json-experiment/json"
)

// Outcome is the interpretation of a command request's result.
type Outcome int

const (
	// Sent means the server accepted the command.
	Sent Outcome = iota
	// Unauthorized means the server key was rejected.
	Unauthorized
	// NoPlayers means the server has no players to run the command.
	NoPlayers
	// Failed means the API responded with some other status.
	Failed
	// Unreachable means no response was obtained.
	Unreachable
)

func (o Outcome) String() string {
	switch o {
	case Sent:
		return "sent"
	case Unauthorized:
		return "unauthorized"
	case NoPlayers:
		return "no-players"
	case Failed:
		return "api-error"
	case Unreachable:
		return "transport-error"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is the result of a command request.
type Result struct {
	Outcome Outcome
	// Status is the HTTP status of the response.
	// It is zero when the outcome is Unreachable.
	Status int
	// Body is the response body when the outcome is Failed.
	Body string
	// Err is the transport error when the outcome is Unreachable.
	Err error
}

// Command runs a command on the game server. The request is attempted once.
// The only error returned is [ErrNoKey] when the client is not configured;
// every other failure is described by the result.
func (c *Client) Command(ctx context.Context, cmd string) (Result, error) {
	if c.Key == "" {
		return Result{}, ErrNoKey
	}
	body := struct {
		Command string `json:"command"`
	}{cmd}
	b, err := json.Marshal(&body)
	if err != nil {
		// Should be impossible.
		panic(fmt.Errorf("erlc: couldn't marshal command: %w", err))
	}
	status, resp, err := c.do(ctx, "POST", "/server/command", b)
	if err != nil {
		if errors.Is(err, ErrNoKey) {
			return Result{}, err
		}
		return Result{Outcome: Unreachable, Status: status, Err: err}, nil
	}
	return classify(status, resp), nil
}

func classify(status int, body []byte) Result {
	switch status {
	case http.StatusOK, http.StatusNoContent:
		return Result{Outcome: Sent, Status: status}
	case http.StatusForbidden:
		return Result{Outcome: Unauthorized, Status: status}
	case http.StatusUnprocessableEntity:
		return Result{Outcome: NoPlayers, Status: status}
	default:
		s := string(body)
		if s == "" {
			s = http.StatusText(status)
		}
		return Result{Outcome: Failed, Status: status, Body: s}
	}
}

// Unban runs the unban command for a game account.
func (c *Client) Unban(ctx context.Context, account string) (Result, error) {
	return c.Command(ctx, ":unban "+account)
}
