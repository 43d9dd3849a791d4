package commands

import (
	"errors"
	"fmt"

	"deptrack/pkg/aggregate"
	"deptrack/pkg/manifest"
	"deptrack/pkg/tracker"
	"deptrack/pkg/types"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	runCompare       bool
	runPublish       bool
	runID            string
	runFailOnDiffers bool
)

// ErrDependenciesDiffer --fail-on-differs 时聚合结果为 DIFFERS
var ErrDependenciesDiffer = errors.New("dependencies differ from the published baseline")

var runCmd = &cobra.Command{
	Use:   "run [parent-manifest]",
	Short: "Track every unit of a multi-unit build in one process",
	Long: `Loads the parent manifest and all modules it lists (recursively), tracks
every unit concurrently and writes the aggregated verdict to the parent's
<build>-comparison-all.txt once every unit has reported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireApp(); err != nil {
			return err
		}
		ctx := cmd.Context()

		// 1. 展开单元树，父单元排在最后
		parent, err := loadManifest(args)
		if err != nil {
			return err
		}
		units, err := collectUnits(parent)
		if err != nil {
			return err
		}

		id := runID
		if id == "" {
			id = uuid.NewString()
		}
		fmt.Printf("🚀 Run %s: %d units\n", id, len(units))

		// 2. 进程内聚合
		agg := aggregate.NewAggregator(nil)
		defer agg.EndRun()
		run := &tracker.Run{
			ID:               id,
			Parent:           parent.Unit.Coordinates,
			ExpectedChildren: len(units) - 1,
			Target:           aggregate.Target{Dir: parent.OutputDir(), BuildName: parent.BuildName()},
			Submitter:        tracker.LocalSubmitter{Aggregator: agg},
		}
		tr := tracker.New(DT.Fingerprinter, DT.TrackerLedger(), run)
		opts := tracker.Options{Compare: runCompare, Publish: runPublish}

		// 3. 单元之间没有顺序要求，并发执行；任一失败取消其余单元
		outcomes := make([]*tracker.Outcome, len(units))
		g, gctx := errgroup.WithContext(ctx)
		for i, m := range units {
			g.Go(func() error {
				unit, err := DT.Unit(m)
				if err != nil {
					return err
				}
				out, err := tr.Track(gctx, unit, opts)
				if err != nil {
					return err
				}
				outcomes[i] = out
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		// 4. 汇总输出
		var fired *aggregate.Outcome
		for i, out := range outcomes {
			printOutcome(units[i], out)
			if out.Aggregate != nil {
				fired = out.Aggregate
			}
		}
		if fired != nil && fired.Result == types.Differs && runFailOnDiffers {
			return ErrDependenciesDiffer
		}
		return nil
	},
}

// collectUnits 深度优先展开 modules，父单元在子单元之后；同一 manifest 只出现一次
func collectUnits(root *manifest.Manifest) ([]*manifest.Manifest, error) {
	var out []*manifest.Manifest
	visiting := make(map[string]bool)
	seen := make(map[string]bool)

	var walk func(m *manifest.Manifest) error
	walk = func(m *manifest.Manifest) error {
		visiting[m.Path()] = true
		for _, child := range m.ModulePaths() {
			if visiting[child] {
				return fmt.Errorf("module cycle detected at %s", child)
			}
			if seen[child] {
				continue
			}
			cm, err := manifest.Load(child)
			if err != nil {
				return err
			}
			if err := walk(cm); err != nil {
				return err
			}
		}
		visiting[m.Path()] = false
		seen[m.Path()] = true
		out = append(out, m)
		return nil
	}

	if err := walk(root); err != nil {
		return nil, err
	}
	return out, nil
}

func init() {
	runCmd.Flags().BoolVar(&runCompare, "compare", true, "Compare every unit against its last published report")
	runCmd.Flags().BoolVar(&runPublish, "publish", false, "Upload every unit's report after comparing")
	runCmd.Flags().StringVar(&runID, "run-id", "", "Identifier recorded in the ledger (default: generated)")
	runCmd.Flags().BoolVar(&runFailOnDiffers, "fail-on-differs", false, "Exit non-zero when the aggregated result is DIFFERS")
	rootCmd.AddCommand(runCmd)
}
