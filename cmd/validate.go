package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check Gmail and classification connectivity",
	Long: `Validates the configured setup end to end: vocabulary sanity, Gmail
API connectivity, and one test classification call.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println("Configuration:")
		fmt.Printf("  Model:       %s\n", cfg.OpenAI.Model)
		fmt.Printf("  Query:       %s\n", cfg.Gmail.Query)
		fmt.Printf("  Categories:  %s\n", strings.Join(cfg.Categories, ", "))
		fmt.Printf("  Fallback:    %s\n", cfg.Fallback)
		fmt.Println()

		appInstance, err := getApp(cmd)
		if err != nil {
			fmt.Printf("%s setup validation failed: %v\n", color.RedString("✗"), err)
			return err
		}

		if err := appInstance.Processor.ValidateSetup(cmd.Context()); err != nil {
			fmt.Printf("%s setup validation failed: %v\n", color.RedString("✗"), err)
			return err
		}

		fmt.Printf("%s Gmail connection OK\n", color.GreenString("✓"))
		fmt.Printf("%s classification service OK\n", color.GreenString("✓"))
		fmt.Printf("%s setup is valid\n", color.GreenString("✓"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
