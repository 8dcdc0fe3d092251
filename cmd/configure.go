package cmd

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ds24m038/GenAI-Table-Processing/utils/config"
	"github.com/ds24m038/GenAI-Table-Processing/utils/models"
)

var listFlag bool
var setDefaultModelFlag string

var supportedProviders = []string{"openai", "deepseek", "moonshot"}

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure provider API keys and defaults",
	Long: `Configure API keys for the supported model providers (openai, deepseek,
moonshot) and the default model used by steps that do not name one.

Keys can also be supplied through the environment (OPENAI_API_KEY,
DEEPSEEK_API_KEY, MOONSHOT_API_KEY); environment values take precedence
over the configuration file.`,
	Example: `  # Interactively add or update a provider key
  tableproc configure

  # Show the current configuration
  tableproc configure --list

  # Set the default model for steps
  tableproc configure --set-default-model gpt-4o-mini`,
	Run: func(cmd *cobra.Command, args []string) {
		if listFlag {
			listConfiguration()
			return
		}
		if setDefaultModelFlag != "" {
			if err := setDefaultModel(setDefaultModelFlag); err != nil {
				log.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
		if err := configureProvider(); err != nil {
			log.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func configureProvider() error {
	reader := bufio.NewReader(os.Stdin)

	log.Printf("Supported providers: %s\n", strings.Join(supportedProviders, ", "))
	log.Printf("Enter provider name: ")
	provider, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("error reading provider name: %w", err)
	}
	provider = strings.ToLower(strings.TrimSpace(provider))

	if !isSupportedProvider(provider) {
		return fmt.Errorf("unknown provider %q (supported: %s)", provider, strings.Join(supportedProviders, ", "))
	}

	apiKey, err := readAPIKey(reader)
	if err != nil {
		return err
	}
	if apiKey == "" {
		return fmt.Errorf("API key must not be empty")
	}

	envConfig.SetProviderAPIKey(provider, apiKey)

	envPath := config.GetEnvPath()
	if err := envConfig.Save(envPath); err != nil {
		return fmt.Errorf("error saving configuration: %w", err)
	}
	log.Printf("Saved %s credentials to %s\n", provider, envPath)
	return nil
}

// readAPIKey reads the key without echoing when stdin is a terminal. Piped
// input falls back to a plain line read so scripted setup still works.
func readAPIKey(reader *bufio.Reader) (string, error) {
	log.Printf("Enter API key: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		log.Println()
		if err != nil {
			return "", fmt.Errorf("error reading API key: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("error reading API key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func setDefaultModel(modelName string) error {
	provider := models.DetectProvider(modelName)
	if provider == nil || !provider.SupportsModel(modelName) {
		return fmt.Errorf("unknown model %q", modelName)
	}
	envConfig.DefaultModel = modelName

	envPath := config.GetEnvPath()
	if err := envConfig.Save(envPath); err != nil {
		return fmt.Errorf("error saving configuration: %w", err)
	}
	log.Printf("Default model set to %s\n", modelName)
	return nil
}

func isSupportedProvider(name string) bool {
	for _, p := range supportedProviders {
		if p == name {
			return true
		}
	}
	return false
}

func listConfiguration() {
	configPath := config.GetEnvPath()
	log.Printf("Configuration from %s:\n\n", configPath)

	if envConfig.DefaultModel != "" {
		log.Printf("Default Model: %s\n\n", envConfig.DefaultModel)
	}

	if server := envConfig.Server; server != nil {
		log.Printf("Server Configuration:\n")
		log.Printf("  Port: %d\n", server.Port)
		if server.BearerToken != "" {
			log.Printf("  Bearer Token: configured\n")
		}
		log.Printf("\n")
	}

	configured := envConfig.ConfiguredProviders()
	if len(configured) == 0 {
		log.Printf("No providers configured.\n")
	} else {
		log.Printf("Configured Providers:\n")
		for _, name := range configured {
			log.Printf("  - %s\n", name)
		}
		log.Printf("\n")
	}

	log.Printf("Known models:\n")
	for _, model := range models.GetRegistry().GetAllModelsList() {
		log.Printf("  - %s\n", model)
	}
}

func init() {
	configureCmd.Flags().BoolVar(&listFlag, "list", false, "List configured providers and known models")
	configureCmd.Flags().StringVar(&setDefaultModelFlag, "set-default-model", "", "Set the default model for processing steps")
	rootCmd.AddCommand(configureCmd)
}
