package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type nameStep struct{ ShopID int64 }

func (nameStep) Kind() string { return "test.name" }

type otherStep struct{}

func (otherStep) Kind() string { return "test.other" }

// fakeContext implements just the tele.Context surface the manager touches.
type fakeContext struct {
	tele.Context
	sender *tele.User
	text   string
	store  map[string]interface{}
}

func newFakeContext(userID int64, text string) *fakeContext {
	return &fakeContext{
		sender: &tele.User{ID: userID},
		text:   text,
		store:  map[string]interface{}{},
	}
}

func (f *fakeContext) Sender() *tele.User              { return f.sender }
func (f *fakeContext) Chat() *tele.Chat                { return nil }
func (f *fakeContext) Update() tele.Update             { return tele.Update{} }
func (f *fakeContext) Text() string                    { return f.text }
func (f *fakeContext) Get(key string) interface{}      { return f.store[key] }
func (f *fakeContext) Set(key string, val interface{}) { f.store[key] = val }

func TestStepRoundTrip(t *testing.T) {
	m := NewMemoryManager()

	assert.False(t, m.InProgress(1))

	m.SetStep(1, nameStep{ShopID: 42})
	st, ok := m.Step(1)
	require.True(t, ok)
	got, ok := st.(nameStep)
	require.True(t, ok)
	assert.Equal(t, int64(42), got.ShopID)
	assert.True(t, m.InProgress(1))

	m.ClearStep(1)
	_, ok = m.Step(1)
	assert.False(t, ok)
	assert.False(t, m.InProgress(1))
}

func TestClearStepKeepsTempData(t *testing.T) {
	m := NewMemoryManager()
	m.SetTemp(1, "page", int64(3))
	m.SetStep(1, otherStep{})

	m.ClearStep(1)

	v, ok := m.GetTempInt64(1, "page")
	require.True(t, ok)
	assert.Equal(t, int64(3), v)
}

func TestClearDropsSession(t *testing.T) {
	m := NewMemoryManager()
	m.SetTemp(1, "page", int64(3))
	m.SetStep(1, otherStep{})

	m.Clear(1)

	assert.False(t, m.InProgress(1))
	_, ok := m.GetTemp(1, "page")
	assert.False(t, ok)
}

func TestGetTempInt64RejectsOtherTypes(t *testing.T) {
	m := NewMemoryManager()
	m.SetTemp(1, "name", "tea")
	_, ok := m.GetTempInt64(1, "name")
	assert.False(t, ok)
}

func TestManagerHandlerDispatchesTypedStep(t *testing.T) {
	m := NewMemoryManager()

	var seen Step
	RegisterHandler("test.name", func(c tele.Context, st Step) error {
		seen = st
		return nil
	})

	m.SetStep(7, nameStep{ShopID: 42})
	err := m.ManagerHandler(newFakeContext(7, "Tea"))
	require.NoError(t, err)

	got, ok := seen.(nameStep)
	require.True(t, ok)
	assert.Equal(t, int64(42), got.ShopID)

	// The step must be consumed by the dispatch.
	assert.False(t, m.InProgress(7))
}

func TestManagerHandlerClearsStepBeforeHandler(t *testing.T) {
	m := NewMemoryManager()

	var inProgress bool
	RegisterHandler("test.other", func(c tele.Context, st Step) error {
		inProgress = m.InProgress(c.Sender().ID)
		return nil
	})

	m.SetStep(7, otherStep{})
	require.NoError(t, m.ManagerHandler(newFakeContext(7, "x")))
	assert.False(t, inProgress)
}

type orphanStep struct{}

func (orphanStep) Kind() string { return "test.orphan" }

func TestManagerHandlerRoutesUnknownKindToFallback(t *testing.T) {
	m := NewMemoryManager()

	called := false
	SetFallback(func(c tele.Context) error {
		called = true
		return nil
	})
	defer SetFallback(nil)

	// A pending step whose kind has no registered handler, e.g. left over
	// from a session created before a deploy dropped the wizard stage.
	m.SetStep(7, orphanStep{})
	require.NoError(t, m.ManagerHandler(newFakeContext(7, "hello")))

	assert.True(t, called, "message with an orphaned step must reach the fallback")
	assert.False(t, m.InProgress(7))
}

func TestManagerHandlerWithoutStepIsNoop(t *testing.T) {
	m := NewMemoryManager()
	assert.NoError(t, m.ManagerHandler(newFakeContext(9, "hello")))
}

func TestRegisterHandlerIgnoresInvalid(t *testing.T) {
	RegisterHandler("", func(c tele.Context, st Step) error { return nil })
	RegisterHandler("test.nil", nil)

	_, ok := stepHandlers[""]
	assert.False(t, ok)
	_, ok = stepHandlers["test.nil"]
	assert.False(t, ok)
}
