package keyring_test

import (
	"testing"

	"github.com/alkime/journal/internal/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
)

func TestAPIKeyNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key     keyring.APIKey
		display string
		env     string
	}{
		{key: keyring.OpenAI, display: "openai", env: "OPENAI_API_KEY"},
		{key: keyring.Anthropic, display: "anthropic", env: "ANTHROPIC_API_KEY"},
		{key: keyring.Deepgram, display: "deepgram", env: "DEEPGRAM_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.display, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.display, tt.key.DisplayName())
			assert.Equal(t, tt.env, tt.key.EnvVar())

			got, err := keyring.APIKeyFromServiceName(tt.display)
			require.NoError(t, err)
			assert.Equal(t, tt.key, got)
		})
	}

	_, err := keyring.APIKeyFromServiceName("github")
	require.Error(t, err)
}

func TestSetGetResolve(t *testing.T) {
	gokeyring.MockInit()

	assert.False(t, keyring.IsSet(keyring.Deepgram))
	assert.Empty(t, keyring.Resolve(keyring.Deepgram, ""))

	require.NoError(t, keyring.Set(keyring.Deepgram, "dg-secret"))
	assert.True(t, keyring.IsSet(keyring.Deepgram))

	value, err := keyring.Get(keyring.Deepgram)
	require.NoError(t, err)
	assert.Equal(t, "dg-secret", value)

	assert.Equal(t, "dg-secret", keyring.Resolve(keyring.Deepgram, "  "))
	assert.Equal(t, "from-env", keyring.Resolve(keyring.Deepgram, "from-env"))
}
