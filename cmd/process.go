package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gmailcat/internal/models"
	"gmailcat/internal/processor"
)

var (
	flagQuery         string
	flagMaxMessages   int
	flagNoApplyLabels bool
	flagOutput        string
	flagConcurrent    bool
	flagMaxConcurrent int
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Fetch, categorize, and label inbox emails",
	Long: `Fetches messages matching the query, categorizes each one with the
configured model, and applies the predicted category as a Gmail label.
Per-message failures are reported without aborting the batch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("max-concurrent") && flagMaxConcurrent < 1 {
			return fmt.Errorf("--max-concurrent must be at least 1, got %d", flagMaxConcurrent)
		}
		if flagMaxConcurrent > 20 {
			log.Warnf("--max-concurrent=%d is high and may hit API rate limits", flagMaxConcurrent)
		}

		appInstance, err := getApp(cmd)
		if err != nil {
			return err
		}

		opts := processor.Options{
			Query:         flagQuery,
			MaxMessages:   flagMaxMessages,
			ApplyLabels:   !flagNoApplyLabels,
			Concurrent:    flagConcurrent,
			MaxConcurrent: flagMaxConcurrent,
		}

		result, err := appInstance.Processor.ProcessEmails(cmd.Context(), opts)
		if result != nil {
			printSummary(result)
			if flagOutput != "" {
				if exportErr := exportResult(result, flagOutput); exportErr != nil {
					return exportErr
				}
				fmt.Printf("Results written to %s\n", flagOutput)
			}
		}
		if err != nil {
			return fmt.Errorf("processing failed: %w", err)
		}
		return nil
	},
}

func printSummary(result *models.BatchResult) {
	fmt.Println()
	fmt.Println("Processing Summary")
	fmt.Printf("  Run ID:     %s\n", result.RunID)
	fmt.Printf("  Messages:   %d\n", result.TotalMessages)
	fmt.Printf("  Successful: %s\n", color.GreenString("%d", result.SuccessfulCategorizations))
	if result.FailedCategorizations > 0 {
		fmt.Printf("  Failed:     %s\n", color.RedString("%d", result.FailedCategorizations))
	} else {
		fmt.Printf("  Failed:     %d\n", result.FailedCategorizations)
	}
	fmt.Printf("  Duration:   %s\n", result.ProcessingTime.Round(time.Millisecond))
	fmt.Printf("  Avg confidence: %.2f\n", result.AverageConfidence())
	fmt.Printf("  API calls:  %d Gmail, %d OpenAI\n", result.Stats.APICallsGmail, result.Stats.APICallsOpenAI)
	if result.Stats.LabelsCreated > 0 {
		fmt.Printf("  Labels created: %d\n", result.Stats.LabelsCreated)
	}

	dist := result.CategoryDistribution()
	if len(dist) > 0 {
		names := make([]string, 0, len(dist))
		for name := range dist {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Println()
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Category", "Messages"})
		table.SetBorder(true)
		for _, name := range names {
			table.Append([]string{name, fmt.Sprintf("%d", dist[name])})
		}
		table.Render()
	}

	if len(result.Errors) > 0 {
		fmt.Println()
		fmt.Printf("%s (%d):\n", color.YellowString("Errors"), len(result.Errors))
		shown := result.Errors
		if len(shown) > 5 {
			shown = shown[:5]
		}
		for _, msg := range shown {
			fmt.Printf("  - %s\n", msg)
		}
		if remaining := len(result.Errors) - len(shown); remaining > 0 {
			fmt.Printf("  ... and %d more\n", remaining)
		}
	}
}

func exportResult(result *models.BatchResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write results to %s: %w", path, err)
	}
	return nil
}

func init() {
	processCmd.Flags().StringVarP(&flagQuery, "query", "q", "", "Gmail search query (default from config)")
	processCmd.Flags().IntVarP(&flagMaxMessages, "max-messages", "m", 0, "Maximum messages to process (default from config)")
	processCmd.Flags().BoolVar(&flagNoApplyLabels, "no-apply-labels", false, "Categorize only, do not apply Gmail labels")
	processCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Write the full batch result as JSON to this file")
	processCmd.Flags().BoolVarP(&flagConcurrent, "concurrent", "c", false, "Categorize messages concurrently")
	processCmd.Flags().IntVar(&flagMaxConcurrent, "max-concurrent", 0, "Worker count for concurrent categorization (default from config)")

	rootCmd.AddCommand(processCmd)
}
