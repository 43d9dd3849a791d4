package commands

import (
	"fmt"
	"os"

	"deptrack/pkg/compare"

	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare [manifest]",
	Short: "Compare an existing dependency report against the published baseline",
	Long: `Compares the unit's already written <build>-dependencies.txt with the last
published report of the same coordinates, without fingerprinting again.
Writes the result to <build>-comparison.txt: 0 = same, 1 = differs, -1 = no baseline.`,
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

		// 1. 本地报告必须已经存在
		report := store.ReportPath()
		if _, err := os.Stat(report); err != nil {
			return fmt.Errorf("no dependency report at %s (run 'deptrack track' first): %w", report, err)
		}

		// 2. 拉取基线并比较
		baseline, err := store.FetchBaseline(cmd.Context())
		if err != nil {
			return err
		}
		result, err := compare.CompareAndSave(store, report, baseline)
		if err != nil {
			return err
		}

		fmt.Printf("%s %s: %s -> %s\n", resultGlyph(result), m.Unit.String(), result.Label(), store.ResultPath())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
}
