package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/archiva-labs/enrich-cli/internal/adapters/driven/ai"
	"github.com/archiva-labs/enrich-cli/internal/core/domain"
)

// Config keys for AI provider settings.
const (
	keyEmbeddingProvider = "embedding.provider"
	keyEmbeddingModel    = "embedding.model"
	keyEmbeddingBaseURL  = "embedding.base_url"
	keyEmbeddingAPIKey   = "embedding.api_key"

	keyLLMProvider = "llm.provider"
	keyLLMModel    = "llm.model"
	keyLLMBaseURL  = "llm.base_url"
	keyLLMAPIKey   = "llm.api_key"
)

// aiProviders is the selection order shown in configuration prompts.
var aiProviders = []domain.AIProvider{
	domain.AIProviderOllama,
	domain.AIProviderOpenAI,
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the AI providers used for embedding similarity and
match validation.

Use subcommands to configure a specific provider.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used for candidate generation.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider used for match validation and metadata extraction.`,
	RunE:  runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	embedding := loadEmbeddingSettings()
	llm := loadLLMSettings()

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	printProviderSettings(cmd, embedding.Provider, embedding.Model, embedding.BaseURL, embedding.APIKey, embedding.IsConfigured())
	cmd.Println()

	cmd.Println("[LLM]")
	printProviderSettings(cmd, llm.Provider, llm.Model, llm.BaseURL, llm.APIKey, llm.IsConfigured())
	cmd.Println()

	if !llm.IsConfigured() {
		cmd.Println("Warning: no LLM provider configured; enrichment requires one.")
		cmd.Println("Run 'enrich settings llm' to configure.")
	} else if !embedding.IsConfigured() {
		cmd.Println("Note: no embedding provider configured; matching will use exact label lookup only.")
		cmd.Println("Run 'enrich settings embedding' to enable similarity candidates.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProviderSettings(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	if !provider.IsValid() {
		cmd.Println("  Provider: (not set)")
		cmd.Println("  Status: not configured")
		return
	}

	cmd.Printf("  Provider: %s\n", provider)
	cmd.Printf("  Model: %s\n", model)
	if provider == domain.AIProviderOllama {
		url := baseURL
		if url == "" {
			url = "(default)"
		}
		cmd.Printf("  Base URL: %s\n", url)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}

	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	reader := bufio.NewReader(os.Stdin)
	return configureEmbeddingProvider(cmd, reader)
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	reader := bufio.NewReader(os.Stdin)
	return configureLLMProvider(cmd, reader)
}

//nolint:dupl // Similar to configureLLMProvider but for embeddings - intentional for CLI flow clarity
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	for i, p := range aiProviders {
		cmd.Printf("  %d. %s\n", i+1, p)
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(aiProviders), 1)
	selectedProvider := aiProviders[idx-1]

	// Get model
	defaults := domain.DefaultEmbeddingModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	settings := &domain.EmbeddingSettings{
		Provider: selectedProvider,
		Model:    model,
		APIKey:   apiKey,
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	svc, err := ai.CreateAndValidateEmbeddingService(settings)
	if err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	if svc != nil {
		svc.Close()
	}
	cmd.Println("OK")

	if err := saveProviderSettings(keyEmbeddingProvider, keyEmbeddingModel, keyEmbeddingAPIKey, selectedProvider, model, apiKey); err != nil {
		return err
	}

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", selectedProvider, model)
	return nil
}

//nolint:dupl // Similar to configureEmbeddingProvider but for LLM - intentional for CLI flow clarity
func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	for i, p := range aiProviders {
		cmd.Printf("  %d. %s\n", i+1, p)
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(aiProviders), 1)
	selectedProvider := aiProviders[idx-1]

	// Get model
	defaults := domain.DefaultLLMModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	settings := &domain.LLMSettings{
		Provider: selectedProvider,
		Model:    model,
		APIKey:   apiKey,
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	svc, err := ai.CreateAndValidateLLMService(settings)
	if err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	if svc != nil {
		svc.Close()
	}
	cmd.Println("OK")

	if err := saveProviderSettings(keyLLMProvider, keyLLMModel, keyLLMAPIKey, selectedProvider, model, apiKey); err != nil {
		return err
	}

	cmd.Printf("LLM provider configured: %s (%s)\n\n", selectedProvider, model)
	return nil
}

func saveProviderSettings(providerKey, modelKey, apiKeyKey string, provider domain.AIProvider, model, apiKey string) error {
	if err := configStore.Set(providerKey, string(provider)); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if err := configStore.Set(modelKey, model); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if apiKey != "" {
		if err := configStore.Set(apiKeyKey, apiKey); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
	}
	return nil
}

// loadEmbeddingSettings assembles embedding settings from the config store
// with environment fallbacks for the API key and base URL.
func loadEmbeddingSettings() *domain.EmbeddingSettings {
	settings := &domain.EmbeddingSettings{
		Provider: domain.AIProvider(configStore.GetString(keyEmbeddingProvider)),
		Model:    configStore.GetString(keyEmbeddingModel),
		BaseURL:  configStore.GetString(keyEmbeddingBaseURL),
		APIKey:   configStore.GetString(keyEmbeddingAPIKey),
	}
	applyEnvFallbacks(settings.Provider, &settings.BaseURL, &settings.APIKey)
	return settings
}

// loadLLMSettings assembles LLM settings from the config store with
// environment fallbacks for the API key and base URL.
func loadLLMSettings() *domain.LLMSettings {
	settings := &domain.LLMSettings{
		Provider: domain.AIProvider(configStore.GetString(keyLLMProvider)),
		Model:    configStore.GetString(keyLLMModel),
		BaseURL:  configStore.GetString(keyLLMBaseURL),
		APIKey:   configStore.GetString(keyLLMAPIKey),
	}
	applyEnvFallbacks(settings.Provider, &settings.BaseURL, &settings.APIKey)
	return settings
}

func applyEnvFallbacks(provider domain.AIProvider, baseURL, apiKey *string) {
	switch provider {
	case domain.AIProviderOllama:
		if *baseURL == "" {
			*baseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	case domain.AIProviderOpenAI:
		if *apiKey == "" {
			*apiKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
