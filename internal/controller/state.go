package controller

import "fmt"

// Phase is the step of the request lifecycle the controller is in
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseAnswered
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseAnswered:
		return "answered"
	case PhaseErrored:
		return "errored"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// State is one of Idle, Loading, Answered(text) or Errored(message).
// Only the constructors below create states, so an answer never
// coexists with a pending request.
type State struct {
	phase Phase
	text  string
}

func Idle() State {
	return State{phase: PhaseIdle}
}

func Loading() State {
	return State{phase: PhaseLoading}
}

// Answered returns Idle for an empty answer
func Answered(answer string) State {
	if answer == "" {
		return Idle()
	}
	return State{phase: PhaseAnswered, text: answer}
}

func Errored(message string) State {
	if message == "" {
		message = "unknown error"
	}
	return State{phase: PhaseErrored, text: message}
}

func (s State) Phase() Phase {
	return s.phase
}

func (s State) IsLoading() bool {
	return s.phase == PhaseLoading
}

func (s State) Answer() string {
	if s.phase != PhaseAnswered {
		return ""
	}
	return s.text
}

func (s State) ErrorMessage() string {
	if s.phase != PhaseErrored {
		return ""
	}
	return s.text
}

func (s State) String() string {
	switch s.phase {
	case PhaseAnswered, PhaseErrored:
		return fmt.Sprintf("%s(%q)", s.phase, s.text)
	}
	return s.phase.String()
}
