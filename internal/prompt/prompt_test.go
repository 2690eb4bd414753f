package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixed(t *testing.T) {
	answer, ok, err := Fixed("Walk cat").Prompt("Edit your task:", "Walk dog")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Walk cat", answer)
}

func TestCancel(t *testing.T) {
	answer, ok, err := Cancel.Prompt("Edit your task:", "Walk dog")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, answer)
}

func TestFunc_ReceivesSeed(t *testing.T) {
	var gotMessage, gotSeed string
	p := Func(func(message, seed string) (string, bool, error) {
		gotMessage, gotSeed = message, seed
		return seed + "!", true, nil
	})

	answer, ok, err := p.Prompt("Edit your task:", "Walk dog")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Walk dog!", answer)
	assert.Equal(t, "Edit your task:", gotMessage)
	assert.Equal(t, "Walk dog", gotSeed)
}
