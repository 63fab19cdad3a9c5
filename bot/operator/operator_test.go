package operator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/core/telegram/state"
)

func TestGrantPayloadRoundTrip(t *testing.T) {
	drafts := []grantDraft{
		{ShopID: 1, UserID: 99},
		{ShopID: 42, UserID: 123456789, Roles: true},
		{ShopID: 7, UserID: 5, Roles: true, Chat: true, Products: true},
		{ShopID: 7, UserID: 5, Chat: true},
	}
	for _, d := range drafts {
		got, err := decodeGrant(encodeGrant(d))
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
}

func TestGrantPayloadFitsCallbackData(t *testing.T) {
	// Telegram limits callback data to 64 bytes; the toggle suffix adds two.
	d := grantDraft{ShopID: 1<<62 - 1, UserID: 1<<62 - 1, Roles: true, Chat: true, Products: true}
	assert.LessOrEqual(t, len(encodeGrant(d))+2, 64)
}

func TestDecodeGrantRejectsGarbage(t *testing.T) {
	for _, payload := range []string{"", "1|2", "1|2|3|4", "x|2|0|0|0", "1|y|0|0|0", "1|2|0|0|0|extra"} {
		_, err := decodeGrant(payload)
		assert.Error(t, err, "payload %q", payload)
	}
}

func TestSuggestionEncoding(t *testing.T) {
	assert.Equal(t, "Gift_cards", encodeSuggestion("  Gift cards "))
	assert.Equal(t, "Gift cards", decodeSuggestion("Gift_cards"))

	long := strings.Repeat("verylongname ", 10)
	assert.LessOrEqual(t, len(encodeSuggestion(long)), maxSuggestionPayload)
}

func TestStepKindsAreDistinct(t *testing.T) {
	steps := []state.Step{
		stepTokenInput{},
		stepCategoryName{},
		stepCategoryRename{},
		stepSubcategoryName{},
		stepProductName{},
		stepProductPrice{},
		stepUnitPayload{},
		stepAdminID{},
	}
	seen := make(map[string]bool)
	for _, st := range steps {
		assert.False(t, seen[st.Kind()], "duplicate step kind %q", st.Kind())
		seen[st.Kind()] = true
	}
}
