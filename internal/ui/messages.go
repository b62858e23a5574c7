package ui

import "github.com/leonardomso/webcheck/internal/session"

// StateChangedMsg carries a session snapshot into the program.
type StateChangedMsg struct {
	State session.State
}

// AlertMsg is a message the session wants the user to see.
type AlertMsg struct {
	Message string
}

// checkStartedMsg reports the outcome of a start request.
type checkStartedMsg struct {
	Err error
}

// checkStoppedMsg is sent once a stop request has been handled.
type checkStoppedMsg struct{}
