package rpc

import (
	"strings"

	"github.com/danielpatrickdp/affect-engine/internal/emotion"
	"github.com/danielpatrickdp/affect-engine/internal/trigger"
)

// #region messages
// UpdateRequest carries either a trigger or a REPL-style line ("!key",
// "=s,d,n", or free text). Line wins when both are set.
type UpdateRequest struct {
	Line string `json:"line,omitempty"`
	trigger.Input
}

func (r UpdateRequest) input() (trigger.Input, error) {
	if strings.TrimSpace(r.Line) != "" {
		return trigger.Parse(r.Line)
	}
	return r.Input, nil
}

// StateReply is a classified state plus its [0, 1] levels for display and
// actuation consumers.
type StateReply struct {
	emotion.State
	Levels    [3]float64 `json:"levels"`
	SessionID string     `json:"session_id"`
}

func stateReply(s emotion.State, sessionID string) StateReply {
	return StateReply{State: s, Levels: s.Coordinates.Unit(), SessionID: sessionID}
}

// ResetReply reports a completed reset.
type ResetReply struct {
	Drained   int    `json:"drained"`
	SessionID string `json:"session_id"`
}

// #endregion messages
