package state

import tele "gopkg.in/telebot.v4"

// StepHandler processes the free-text message that completes a wizard stage.
// The concrete Step is the value set when the stage was entered; handlers
// type-assert it to recover their correlation ids.
type StepHandler func(c tele.Context, st Step) error

var stepHandlers = map[string]StepHandler{}

// RegisterHandler associates a step kind with its handler.
func RegisterHandler(kind string, h StepHandler) {
	if kind == "" || h == nil {
		return
	}
	stepHandlers[kind] = h
}

var fallbackHandler tele.HandlerFunc

// SetFallback names the handler invoked when a pending step has no
// registered handler, so a stale session never swallows a message silently.
func SetFallback(h tele.HandlerFunc) {
	fallbackHandler = h
}
