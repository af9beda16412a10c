package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long:  `Prints the merged configuration (file, environment, defaults) with secrets redacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println("Gmail:")
		fmt.Printf("  credentials_file: %s\n", cfg.Gmail.CredentialsFile)
		fmt.Printf("  token_file:       %s\n", cfg.Gmail.TokenFile)
		fmt.Printf("  query:            %s\n", cfg.Gmail.Query)
		fmt.Printf("  max_messages:     %d\n", cfg.Gmail.MaxMessages)
		fmt.Printf("  scopes:           %s\n", strings.Join(cfg.Gmail.Scopes, ", "))

		fmt.Println("OpenAI:")
		fmt.Printf("  api_key:     %s\n", redactKey(cfg.OpenAI.APIKey))
		fmt.Printf("  model:       %s\n", cfg.OpenAI.Model)
		fmt.Printf("  max_tokens:  %d\n", cfg.OpenAI.MaxTokens)
		fmt.Printf("  temperature: %.2f\n", cfg.OpenAI.Temperature)

		fmt.Println("Categorization:")
		fmt.Printf("  categories: %s\n", strings.Join(cfg.Categories, ", "))
		fmt.Printf("  fallback:   %s\n", cfg.Fallback)

		fmt.Println("Processing:")
		fmt.Printf("  max_concurrent: %d\n", cfg.Processing.MaxConcurrent)

		if cfg.PubSub.ProjectID != "" || cfg.PubSub.TopicName != "" {
			fmt.Println("PubSub:")
			fmt.Printf("  project_id: %s\n", cfg.PubSub.ProjectID)
			fmt.Printf("  topic_name: %s\n", cfg.PubSub.TopicName)
		}
		return nil
	},
}

// redactKey keeps just enough of a secret to identify it.
func redactKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func init() {
	rootCmd.AddCommand(configCmd)
}
