package service

import (
	"time"

	gp "gameserver_panel"
	"gameserver_panel/internal/poller"
)

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "STATUS", "MESSAGE", "ACTION", "POLL_STOPPED", "AUTH_CHALLENGE", "AUTH_FAILURE"
}

// SignInInput selects the identity provider (empty = default) and carries credentials.
type SignInInput struct {
	Provider string
	Username string
	Password string
}

// SignInResult has either Token (signed in) or ChallengeToken (new password required).
type SignInResult struct {
	Token              string    `json:"token,omitempty"`
	ChallengeToken     string    `json:"challenge_token,omitempty"`
	Challenge          string    `json:"challenge,omitempty"`
	RequiredAttributes []string  `json:"required_attributes,omitempty"`
	ExpiresAt          time.Time `json:"expires_at"`
}

// Challenged reports whether the user still has to answer a challenge.
func (r SignInResult) Challenged() bool { return r.ChallengeToken != "" }

// DispatchResult is the answer to a submitted action.
type DispatchResult struct {
	Status  gp.ServerStatus `json:"status"`
	Polling bool            `json:"polling"`
	Target  string          `json:"target,omitempty"`
}

// PollOutcome is the JSON form of a finished poll.
type PollOutcome struct {
	Action    gp.Action       `json:"action"`
	Target    string          `json:"target"`
	Reason    string          `json:"reason"`
	Queries   int             `json:"queries"`
	ElapsedMS int64           `json:"elapsed_ms"`
	Last      gp.ServerStatus `json:"last_status"`
	Error     string          `json:"error,omitempty"`
}

// PollState is the JSON form of a poller snapshot.
type PollState struct {
	State     string       `json:"state"`
	Action    gp.Action    `json:"action,omitempty"`
	Target    string       `json:"target,omitempty"`
	StartedAt *time.Time   `json:"started_at,omitempty"`
	Last      *PollOutcome `json:"last,omitempty"`
}

func toPollOutcome(o poller.Outcome) PollOutcome {
	out := PollOutcome{
		Action:    o.Action,
		Target:    o.Target,
		Reason:    string(o.Reason),
		Queries:   o.Queries,
		ElapsedMS: o.Elapsed.Milliseconds(),
		Last:      o.Last,
	}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}
	return out
}

func toPollState(s poller.Snapshot) PollState {
	ps := PollState{State: s.State.String()}
	if s.State != poller.Idle {
		ps.Action = s.Action
		ps.Target = s.Target
		started := s.StartedAt.UTC()
		ps.StartedAt = &started
	}
	if s.Last != nil {
		last := toPollOutcome(*s.Last)
		ps.Last = &last
	}
	return ps
}
