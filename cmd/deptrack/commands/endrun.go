package commands

import (
	"fmt"

	"deptrack/pkg/client"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var endRunCmd = &cobra.Command{
	Use:   "end-run <run-id>",
	Short: "Discard an unfinished aggregation run on the coordinator",
	Long:  `Call this when a multi-unit build fails or is cancelled, so the coordinator does not keep waiting for the missing units.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := viper.GetString("coordinator.addr")
		if addr == "" {
			return fmt.Errorf("no coordinator configured (set --coordinator or coordinator.addr)")
		}
		cli, err := client.NewClient(addr)
		if err != nil {
			return err
		}
		defer cli.Close()

		existed, err := cli.EndRun(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to end run %s: %w", args[0], err)
		}
		if existed {
			fmt.Printf("🧹 Run %s discarded.\n", args[0])
		} else {
			fmt.Printf("Run %s is not active.\n", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(endRunCmd)
}
