package commands

import (
	"context"
	"fmt"

	"deptrack/pkg/aggregate"
	"deptrack/pkg/client"
	"deptrack/pkg/manifest"
	"deptrack/pkg/tracker"
	"deptrack/pkg/types"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	trackCompare  bool
	trackPublish  bool
	trackRunID    string
	trackParent   string
	trackChildren int
)

var trackCmd = &cobra.Command{
	Use:   "track [manifest]",
	Short: "Fingerprint a unit's dependencies and write its dependency report",
	Long: `Hashes every resolved dependency of the unit, writes <build>-dependencies.txt
into the unit's output directory and attaches it for publishing.

With --compare the report is compared byte-for-byte against the last published
report of the same coordinates. With --run-id the result is submitted to the
coordinator so the whole build gets a single aggregated verdict.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireApp(); err != nil {
			return err
		}
		ctx := cmd.Context()

		// 1. 读取单元
		m, err := loadManifest(args)
		if err != nil {
			return err
		}
		unit, err := DT.Unit(m)
		if err != nil {
			return err
		}

		// 2. 多单元构建: 连接协调服务
		run, closeRun, err := remoteRun(m)
		if err != nil {
			return err
		}
		defer closeRun()
		if run != nil && !trackCompare {
			fmt.Println("⚠️  --run-id has no effect without --compare")
		}

		// 3. 执行流水线
		out, err := tracker.New(DT.Fingerprinter, DT.TrackerLedger(), run).
			Track(ctx, unit, tracker.Options{Compare: trackCompare, Publish: trackPublish})
		if err != nil {
			if run != nil {
				endRemoteRun(ctx, run)
			}
			return err
		}

		printOutcome(m, out)
		if trackPublish {
			fmt.Printf("📤 Published %s\n", m.Unit.String())
		}
		return nil
	},
}

// remoteRun 根据 --run-id / --parent 构造跨进程的运行描述，未指定 --run-id 时返回 nil
func remoteRun(m *manifest.Manifest) (*tracker.Run, func(), error) {
	noop := func() {}
	if trackRunID == "" {
		return nil, noop, nil
	}
	if trackParent == "" {
		return nil, noop, fmt.Errorf("--parent is required with --run-id")
	}
	addr := viper.GetString("coordinator.addr")
	if addr == "" {
		return nil, noop, fmt.Errorf("--run-id requires a coordinator (set --coordinator or coordinator.addr)")
	}

	parent, err := manifest.Load(trackParent)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to load parent manifest: %w", err)
	}
	children := trackChildren
	if children < 0 {
		// 与 run 一致: 所有后代单元，而不只是直接子单元
		units, err := collectUnits(parent)
		if err != nil {
			return nil, noop, err
		}
		children = len(units) - 1
	}

	cli, err := client.NewClient(addr)
	if err != nil {
		return nil, noop, err
	}

	run := &tracker.Run{
		ID:               trackRunID,
		Parent:           parent.Unit.Coordinates,
		ExpectedChildren: children,
		Target:           aggregate.Target{Dir: parent.OutputDir(), BuildName: parent.BuildName()},
		Submitter:        cli.Submitter(trackRunID, parent.Unit.Coordinates, m.Unit.Coordinates),
	}
	return run, func() { cli.Close() }, nil
}

// endRemoteRun 本单元失败，整次运行不会再收齐，释放服务端会话
func endRemoteRun(ctx context.Context, run *tracker.Run) {
	sub, ok := run.Submitter.(*client.RunSubmitter)
	if !ok {
		return
	}
	if _, err := sub.End(ctx); err != nil {
		fmt.Printf("⚠️  Failed to end run %s: %v\n", run.ID, err)
	}
}

func printOutcome(m *manifest.Manifest, out *tracker.Outcome) {
	fmt.Printf("✅ %s: %d dependencies -> %s\n", m.Unit.String(), out.Report.Len(), out.ReportPath)
	if out.Compared {
		fmt.Printf("   %s comparison: %s\n", resultGlyph(out.Result), out.Result.Label())
	}
	if out.Aggregate != nil {
		fmt.Printf("📊 Aggregated result over %d units: %s -> %s\n",
			len(out.Aggregate.Results), out.Aggregate.Result.Label(), out.Aggregate.Path)
	}
}

func resultGlyph(r types.Result) string {
	switch r {
	case types.Match:
		return "🟢"
	case types.Differs:
		return "🔴"
	default:
		return "⚪"
	}
}

func init() {
	trackCmd.Flags().BoolVar(&trackCompare, "compare", false, "Compare the report against the last published one")
	trackCmd.Flags().BoolVar(&trackPublish, "publish", false, "Upload the report to the remote repository")
	trackCmd.Flags().StringVar(&trackRunID, "run-id", "", "Identifier shared by all units of one multi-unit build")
	trackCmd.Flags().StringVar(&trackParent, "parent", "", "Manifest of the top-level (parent) unit of the run")
	trackCmd.Flags().IntVar(&trackChildren, "children", -1, "Number of descendant units in the run (default: all modules reachable from the parent)")
	rootCmd.AddCommand(trackCmd)
}
