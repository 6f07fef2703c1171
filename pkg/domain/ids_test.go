package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "deicer/pkg/domain-errors"
)

// TestParseMarkerID_Invariants validates the parsing invariant:
// IDs must be valid, non-empty, non-nil UUIDs.
func TestParseMarkerID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseMarkerID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseMarkerID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseMarkerID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseMarkerID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, valid.String(), id.String())
		assert.False(t, id.IsNil())
	})
}

func TestMarkerID_TextRoundTrip(t *testing.T) {
	id := NewMarkerID()
	text, err := id.MarshalText()
	require.NoError(t, err)

	var back MarkerID
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, id, back)
}

func TestConfirmationID_Parse(t *testing.T) {
	valid := uuid.New()
	id, err := ParseConfirmationID(valid.String())
	require.NoError(t, err)
	assert.Equal(t, valid.String(), id.String())

	_, err = ParseConfirmationID("")
	require.Error(t, err)
}
