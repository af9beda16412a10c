package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	flagPubSubSetup bool
	flagPubSubStop  bool
)

// pubsubCmd represents the pubsub command
var pubsubCmd = &cobra.Command{
	Use:   "pubsub",
	Short: "Manage Gmail push notifications",
	Long: `Enables or disables Gmail push notifications to the configured
Pub/Sub topic. Requires pubsub.project_id and pubsub.topic_name in the
configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagPubSubSetup == flagPubSubStop {
			return fmt.Errorf("specify exactly one of --setup or --stop")
		}

		appInstance, err := getApp(cmd)
		if err != nil {
			return err
		}

		if flagPubSubSetup {
			if !appInstance.Processor.SetupPushNotifications(cmd.Context()) {
				return fmt.Errorf("failed to set up push notifications")
			}
			fmt.Println("Push notifications enabled.")
			return nil
		}

		if !appInstance.Processor.StopPushNotifications(cmd.Context()) {
			return fmt.Errorf("failed to stop push notifications")
		}
		fmt.Println("Push notifications stopped.")
		return nil
	},
}

func init() {
	pubsubCmd.Flags().BoolVar(&flagPubSubSetup, "setup", false, "Enable push notifications to the configured topic")
	pubsubCmd.Flags().BoolVar(&flagPubSubStop, "stop", false, "Disable push notifications")

	rootCmd.AddCommand(pubsubCmd)
}
