package commands

import (
	"errors"
	"fmt"
	"time"

	"deptrack/pkg/meta"
	"deptrack/pkg/types"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyRun   string
)

var historyCmd = &cobra.Command{
	Use:   "history [manifest]",
	Short: "Show recorded comparison results from the ledger",
	Long: `Lists the most recent comparison results of a unit, or with --run the
aggregated result and per-unit results of one multi-unit build.
Requires ledger.type to be sqlite or postgres.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireApp(); err != nil {
			return err
		}
		if DT.Ledger == nil {
			return fmt.Errorf("no ledger configured (set ledger.type to sqlite or postgres)")
		}
		ctx := cmd.Context()

		if historyRun != "" {
			return showRun(cmd, historyRun)
		}

		m, err := loadManifest(args)
		if err != nil {
			return err
		}
		rows, err := DT.Ledger.RecentUnitResults(ctx, m.Unit.Coordinates, historyLimit)
		if err != nil {
			return fmt.Errorf("failed to read ledger: %w", err)
		}
		if len(rows) == 0 {
			fmt.Printf("No recorded comparisons for %s:%s.\n", m.Unit.GroupID, m.Unit.ArtifactID)
			return nil
		}
		for _, row := range rows {
			printUnitResult(row)
		}
		return nil
	},
}

func showRun(cmd *cobra.Command, id string) error {
	ctx := cmd.Context()
	run, err := DT.Ledger.GetRun(ctx, id)
	if errors.Is(err, meta.ErrRunNotFound) {
		fmt.Printf("Run %s has not been aggregated.\n", id)
	} else if err != nil {
		return fmt.Errorf("failed to read ledger: %w", err)
	} else {
		r := types.Result(run.Result)
		fmt.Printf("%s run %s (%s:%s:%s): %s over %d units, %s\n",
			resultGlyph(r), run.RunID, run.ParentGroupID, run.ParentArtifactID, run.ParentVersion,
			r.Label(), run.Units, run.CreatedAt.Format(time.RFC1123))
	}

	units, err := DT.Ledger.RunUnits(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to read ledger: %w", err)
	}
	for _, row := range units {
		printUnitResult(row)
	}
	return nil
}

func printUnitResult(row meta.UnitResult) {
	r := types.Result(row.Result)
	digest := row.ReportDigest
	if len(digest) > 8 {
		digest = digest[:8]
	}
	fmt.Printf("   %s %s:%s:%s  %-11s  deps=%d  report=%s  %s\n",
		resultGlyph(r), row.GroupID, row.ArtifactID, row.Version,
		r.Label(), row.Dependencies, digest, row.CreatedAt.Format(time.RFC1123))
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of results to show")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Show one multi-unit run instead of a unit")
	rootCmd.AddCommand(historyCmd)
}
