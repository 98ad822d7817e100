package chat

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen_RoundTrip(t *testing.T) {
	master := bytes.Repeat([]byte{0x01}, 32)
	messages := []Message{{Role: "user", Content: "hi", CreatedAt: 1}}

	env, chatKey, err := Seal(master, "my chat", messages)
	require.NoError(t, err)
	require.Len(t, chatKey, 32)

	opened, err := Open(master, env)
	require.NoError(t, err)
	assert.Equal(t, "my chat", opened.Title)
	assert.Equal(t, messages, opened.Body.Messages)
	assert.Equal(t, CurrentBodyVersion, opened.Body.Version)
	assert.Equal(t, chatKey, opened.ChatKey)
}

func TestOpen_WrongMasterKeyFails(t *testing.T) {
	master := bytes.Repeat([]byte{0x01}, 32)
	wrong := bytes.Repeat([]byte{0x02}, 32)

	env, _, err := Seal(master, "title", nil)
	require.NoError(t, err)

	_, err = Open(wrong, env)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestOpenWithKey_RoundTrip(t *testing.T) {
	master := bytes.Repeat([]byte{0x03}, 32)
	env, chatKey, err := Seal(master, "title", []Message{{Role: "user", Content: "x"}})
	require.NoError(t, err)

	opened, err := OpenWithKey(chatKey, env)
	require.NoError(t, err)
	assert.Equal(t, "title", opened.Title)
}

func TestSealWithKey_ReWrapsUnderMaster(t *testing.T) {
	master := bytes.Repeat([]byte{0x04}, 32)
	_, chatKey, err := Seal(master, "first", nil)
	require.NoError(t, err)

	env, err := SealWithKey(master, chatKey, "second", []Message{{Role: "assistant", Content: "y"}})
	require.NoError(t, err)

	opened, err := Open(master, env)
	require.NoError(t, err)
	assert.Equal(t, "second", opened.Title)
	assert.Equal(t, chatKey, opened.ChatKey)
}
