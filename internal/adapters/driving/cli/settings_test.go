package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
)

func TestSettingsShow_Unconfigured(t *testing.T) {
	setupTestConfig(t)
	t.Setenv("OPENAI_API_KEY", "")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"settings", "show"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "not configured")
	assert.Contains(t, buf.String(), "enrich settings llm")
}

func TestSettingsShow_Configured(t *testing.T) {
	setupTestConfig(t)

	require.NoError(t, configStore.Set(keyEmbeddingProvider, "ollama"))
	require.NoError(t, configStore.Set(keyEmbeddingModel, "nomic-embed-text"))
	require.NoError(t, configStore.Set(keyLLMProvider, "openai"))
	require.NoError(t, configStore.Set(keyLLMModel, "gpt-4o-mini"))
	require.NoError(t, configStore.Set(keyLLMAPIKey, "sk-test-1234567890"))

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"settings", "show"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "nomic-embed-text")
	assert.Contains(t, out, "gpt-4o-mini")
	assert.Contains(t, out, "Configuration is valid.")
	// API key is masked, never printed in full.
	assert.NotContains(t, out, "sk-test-1234567890")
	assert.Contains(t, out, "sk-t...7890")
}

func TestLoadLLMSettings_EnvFallback(t *testing.T) {
	setupTestConfig(t)
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	require.NoError(t, configStore.Set(keyLLMProvider, "openai"))
	require.NoError(t, configStore.Set(keyLLMModel, "gpt-4o-mini"))

	settings := loadLLMSettings()

	assert.Equal(t, domain.AIProviderOpenAI, settings.Provider)
	assert.Equal(t, "sk-from-env", settings.APIKey)
	assert.True(t, settings.IsConfigured())
}

func TestLoadLLMSettings_ConfigKeyWinsOverEnv(t *testing.T) {
	setupTestConfig(t)
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	require.NoError(t, configStore.Set(keyLLMProvider, "openai"))
	require.NoError(t, configStore.Set(keyLLMAPIKey, "sk-from-config"))

	settings := loadLLMSettings()

	assert.Equal(t, "sk-from-config", settings.APIKey)
}

func TestLoadEmbeddingSettings_OllamaBaseURLFallback(t *testing.T) {
	setupTestConfig(t)
	t.Setenv("OLLAMA_BASE_URL", "http://gpu-box:11434")

	require.NoError(t, configStore.Set(keyEmbeddingProvider, "ollama"))
	require.NoError(t, configStore.Set(keyEmbeddingModel, "nomic-embed-text"))

	settings := loadEmbeddingSettings()

	assert.Equal(t, domain.AIProviderOllama, settings.Provider)
	assert.Equal(t, "http://gpu-box:11434", settings.BaseURL)
}

func TestLoadEmbeddingSettings_Unset(t *testing.T) {
	setupTestConfig(t)

	settings := loadEmbeddingSettings()

	assert.False(t, settings.IsConfigured())
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		want       int
	}{
		{"empty uses default", "", 3, 1, 1},
		{"valid choice", "2", 3, 1, 2},
		{"out of range uses default", "9", 3, 1, 1},
		{"zero uses default", "0", 3, 1, 1},
		{"garbage uses default", "abc", 3, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseChoice(tt.input, tt.maxVal, tt.defaultVal))
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "sk-a...wxyz", maskAPIKey("sk-abcdefgwxyz"))
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "****", maskAPIKey(""))
}
