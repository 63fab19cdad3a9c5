package state

import tele "gopkg.in/telebot.v4"

// Step marks a single pending wizard stage for a user. Implementations are
// small structs carrying the correlation ids the next free-text message
// needs (shop id, category id, ...), so a handler never re-derives context
// from earlier messages. Kind identifies the handler registered for the step.
type Step interface {
	Kind() string
}

// Session stores the pending conversation step and temporary data for a user.
type Session struct {
	Step     Step
	TempData map[string]interface{}
}

// Manager orchestrates user sessions and wizard step transitions.
type Manager interface {
	Get(userID int64) *Session
	SetTemp(userID int64, key string, value interface{})
	ClearTemp(userID int64, key string)
	GetTemp(userID int64, key string) (interface{}, bool)
	GetTempInt64(userID int64, key string) (int64, bool)
	Clear(userID int64)

	// Wizard step state
	SetStep(userID int64, st Step)
	Step(userID int64) (Step, bool)
	ClearStep(userID int64)

	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}
