// Package state provides a lightweight session manager for multi-step
// Telegram wizard flows. A user's pending stage is a typed Step value
// carrying its own correlation ids; the text router dispatches on the
// step's kind instead of parsing positional tokens out of a string.
package state
