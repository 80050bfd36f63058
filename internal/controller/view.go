package controller

import "github.com/samber/lo"

const (
	AskLabel      = "Ask"
	ThinkingLabel = "Thinking..."
)

// View is everything a front end needs to draw the form
type View struct {
	Question       string
	ButtonLabel    string
	ButtonDisabled bool
	AnswerVisible  bool
	Answer         string
	ErrorVisible   bool
	ErrorMessage   string
}

// Render derives the view from the question and the request state
func Render(question string, state State) View {
	loading := state.IsLoading()
	return View{
		Question:       question,
		ButtonLabel:    lo.Ternary(loading, ThinkingLabel, AskLabel),
		ButtonDisabled: loading,
		AnswerVisible:  state.Answer() != "",
		Answer:         state.Answer(),
		ErrorVisible:   state.ErrorMessage() != "",
		ErrorMessage:   state.ErrorMessage(),
	}
}
