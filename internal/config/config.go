package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Gmail struct {
		CredentialsFile string   `mapstructure:"credentials_file"`
		TokenFile       string   `mapstructure:"token_file"`
		Scopes          []string `mapstructure:"scopes"`
		Query           string   `mapstructure:"query"`
		MaxMessages     int      `mapstructure:"max_messages"`
	} `mapstructure:"gmail"`

	OpenAI struct {
		APIKey      string  `mapstructure:"api_key"`
		Model       string  `mapstructure:"model"`
		MaxTokens   int     `mapstructure:"max_tokens"`
		Temperature float32 `mapstructure:"temperature"`
	} `mapstructure:"openai"`

	// Categories is the fixed classification vocabulary; Fallback is
	// the catch-all member returned when no confident answer exists.
	Categories []string `mapstructure:"categories"`
	Fallback   string   `mapstructure:"fallback_category"`

	Processing struct {
		MaxConcurrent int `mapstructure:"max_concurrent"`
	} `mapstructure:"processing"`

	PubSub struct {
		ProjectID        string `mapstructure:"project_id"`
		TopicName        string `mapstructure:"topic_name"`
		SubscriptionName string `mapstructure:"subscription_name"`
	} `mapstructure:"pubsub"`

	Log struct {
		Level string `mapstructure:"level"`
		File  string `mapstructure:"file"`
	} `mapstructure:"log"`
}

func setDefaults() {
	viper.SetDefault("gmail.credentials_file", "credentials.json")
	viper.SetDefault("gmail.token_file", "token.json")
	viper.SetDefault("gmail.scopes", []string{"https://www.googleapis.com/auth/gmail.modify"})
	viper.SetDefault("gmail.query", "in:inbox")
	viper.SetDefault("gmail.max_messages", 50)

	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("openai.max_tokens", 150)
	viper.SetDefault("openai.temperature", 0.3)

	viper.SetDefault("categories", []string{
		"Work", "Personal", "Finance", "Shopping",
		"Newsletter", "Social", "Spam", "Other",
	})
	viper.SetDefault("fallback_category", "Other")

	viper.SetDefault("processing.max_concurrent", 5)

	viper.SetDefault("log.level", "info")
}

// LoadConfig reads config.yaml from the working directory, overlaid
// with GMAILCAT_-prefixed environment variables. A missing config file
// is fine; env vars and defaults carry the run.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvPrefix("GMAILCAT")
	viper.AutomaticEnv()
	// The OpenAI key is conventionally set without the app prefix.
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return &cfg, nil
}
