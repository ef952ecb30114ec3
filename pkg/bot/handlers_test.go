package bot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseImageArgs(t *testing.T) {
	t.Run("defaults model when no prefix", func(t *testing.T) {
		model, prompt := parseImageArgs("a cat on a unicycle", "dall-e-2")
		require.Equal(t, "dall-e-2", model)
		require.Equal(t, "a cat on a unicycle", prompt)
	})

	t.Run("explicit model prefix", func(t *testing.T) {
		model, prompt := parseImageArgs("model:dall-e-3 a cat on a unicycle", "dall-e-2")
		require.Equal(t, "dall-e-3", model)
		require.Equal(t, "a cat on a unicycle", prompt)
	})

	t.Run("model prefix without prompt yields empty prompt", func(t *testing.T) {
		model, prompt := parseImageArgs("model:dall-e-3", "dall-e-2")
		require.Equal(t, "dall-e-2", model)
		require.Empty(t, prompt)
	})

	t.Run("empty arguments", func(t *testing.T) {
		model, prompt := parseImageArgs("", "grok-2-image")
		require.Equal(t, "grok-2-image", model)
		require.Empty(t, prompt)
	})

	t.Run("surrounding whitespace is trimmed", func(t *testing.T) {
		model, prompt := parseImageArgs("  model:imagen-4.0-generate-001   a skyline  ", "dall-e-2")
		require.Equal(t, "imagen-4.0-generate-001", model)
		require.Equal(t, "a skyline", prompt)
	})
}

func TestChatKey(t *testing.T) {
	require.Equal(t, "123456", chatKey(123456))
	require.Equal(t, "-1001234", chatKey(-1001234))
}
