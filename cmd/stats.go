package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"gmailcat/internal/models"
)

// statsSampleSize bounds the message count probe so the command stays
// cheap on large mailboxes.
const statsSampleSize = 1000

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show mailbox and label statistics",
	Long: `Shows a sampled message count for the configured query plus a
breakdown of labels, highlighting which categories already have a
matching Gmail label.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := getApp(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		cfg := appInstance.Config

		ids, err := appInstance.Gmail.GetMessageIDs(ctx, cfg.Gmail.Query, statsSampleSize)
		if err != nil {
			return fmt.Errorf("failed to count messages: %w", err)
		}
		if len(ids) >= statsSampleSize {
			fmt.Printf("Messages matching %q: %d+ (sampled)\n", cfg.Gmail.Query, len(ids))
		} else {
			fmt.Printf("Messages matching %q: %d\n", cfg.Gmail.Query, len(ids))
		}

		labels, err := appInstance.Gmail.GetLabels(ctx)
		if err != nil {
			return fmt.Errorf("failed to list labels: %w", err)
		}

		var user, system int
		labeled := make(map[string]bool)
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Label", "Type", "Messages", "Unread"})
		table.SetBorder(true)
		for _, label := range labels {
			if label.Type == models.LabelTypeUser {
				user++
			} else {
				system++
			}
			if canonical, ok := appInstance.Vocabulary.Canonical(label.Name); ok {
				labeled[canonical] = true
			}
			table.Append([]string{
				label.Name,
				label.Type,
				fmt.Sprintf("%d", label.MessagesTotal),
				fmt.Sprintf("%d", label.MessagesUnread),
			})
		}

		fmt.Printf("Labels: %d total (%d user, %d system)\n\n", len(labels), user, system)
		table.Render()

		var missing []string
		for _, name := range appInstance.Vocabulary.Categories {
			if !labeled[name] {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			fmt.Printf("\nCategories without a Gmail label yet: %s\n", strings.Join(missing, ", "))
		} else {
			fmt.Println("\nEvery category has a matching Gmail label.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
