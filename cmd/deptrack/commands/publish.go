package commands

import (
	"fmt"
	"os"

	"deptrack/pkg/types"

	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish [manifest]",
	Short: "Upload the unit's dependency report to the remote repository",
	Long: `Uploads the already written <build>-dependencies.txt so that it becomes the
baseline for the next build of the same coordinates.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireApp(); err != nil {
			return err
		}

		m, err := loadManifest(args)
		if err != nil {
			return err
		}
		store := DT.Store(m)

		report := store.ReportPath()
		if _, err := os.Stat(report); err != nil {
			return fmt.Errorf("no dependency report at %s (run 'deptrack track' first): %w", report, err)
		}
		store.Attach(types.Classifier, types.Extension, report)

		if err := store.Publish(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("📤 Published %s (%s)\n", m.Unit.String(), report)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
}
