package tracker

import (
	"context"
	"fmt"
	"log/slog"

	"deptrack/pkg/aggregate"
	"deptrack/pkg/artifact"
	"deptrack/pkg/compare"
	"deptrack/pkg/fingerprint"
	"deptrack/pkg/ignore"
	"deptrack/pkg/meta"
	"deptrack/pkg/types"
)

// Submitter 把单元结果交给聚合方: 进程内的 Aggregator，或者远程协调服务
type Submitter interface {
	Begin(ctx context.Context, expectedChildren int, target aggregate.Target) error
	Submit(ctx context.Context, result types.Result) (aggregate.Outcome, error)
}

// Ledger 可选的结果台账
type Ledger interface {
	RecordUnit(ctx context.Context, rec meta.UnitRecord) error
	RecordRun(ctx context.Context, runID string, parent types.Coordinates, results []types.Result, aggregated types.Result) error
}

// Run 多单元构建的拓扑，由宿主构建工具传给每个单元
type Run struct {
	ID               string
	Parent           types.Coordinates
	ExpectedChildren int
	Target           aggregate.Target
	Submitter        Submitter
}

// Unit 一个单元的输入
type Unit struct {
	Store        *artifact.Store
	Dependencies []fingerprint.Descriptor
	Exclude      *ignore.Matcher
}

// Options 对应 CLI 的 --compare / --publish
type Options struct {
	Compare bool
	Publish bool
}

// Outcome 一个单元的处理结果
type Outcome struct {
	ReportPath string
	Report     *fingerprint.Report
	Compared   bool
	Result     types.Result
	Aggregate  *aggregate.Outcome // 本单元的结果触发了聚合时才有值
}

// Tracker 串起单元流水线: 拉基线 -> 指纹 -> 报告 -> 比较 -> 聚合 -> 发布
type Tracker struct {
	fp     *fingerprint.Fingerprinter
	ledger Ledger
	run    *Run
}

// New ledger 和 run 都可以为 nil
func New(fp *fingerprint.Fingerprinter, ledger Ledger, run *Run) *Tracker {
	return &Tracker{fp: fp, ledger: ledger, run: run}
}

// Track 处理一个单元。任何致命错误都会中止本单元，是否中止整个构建由调用方决定。
func (t *Tracker) Track(ctx context.Context, u Unit, opts Options) (*Outcome, error) {
	unit := u.Store.Unit()
	log := slog.With(slog.String("unit", unit.String()))

	// 1. 先解析基线，再保存/发布本次报告，避免本次报告成为自己的基线
	var baseline artifact.Baseline
	if opts.Compare {
		var err error
		baseline, err = u.Store.FetchBaseline(ctx)
		if err != nil {
			return nil, err
		}
	}

	// 2. 指纹 + 报告
	deps := filterExcluded(u.Dependencies, u.Exclude)
	log.Info("capturing project dependencies", slog.Int("tracked", len(deps)), slog.Int("excluded", len(u.Dependencies)-len(deps)))

	digests, err := t.fp.Fingerprint(ctx, deps)
	if err != nil {
		return nil, fmt.Errorf("fingerprint %s: %w", unit, err)
	}
	report := fingerprint.BuildReport(digests)

	reportPath, err := u.Store.SaveReport(report)
	if err != nil {
		return nil, err
	}
	out := &Outcome{ReportPath: reportPath, Report: report}

	// 3. 比较
	if opts.Compare {
		result, err := compare.CompareAndSave(u.Store, reportPath, baseline)
		if err != nil {
			return nil, err
		}
		out.Compared = true
		out.Result = result
		log.Info("dependency comparison finished", slog.String("result", result.Label()))

		if err := t.recordUnit(ctx, unit, report, result); err != nil {
			return nil, err
		}

		// 4. 多单元聚合
		if err := t.submit(ctx, out); err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", unit, err)
		}
	}

	// 5. 发布
	if opts.Publish {
		if err := u.Store.Publish(ctx); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (t *Tracker) recordUnit(ctx context.Context, unit types.Coordinates, report *fingerprint.Report, result types.Result) error {
	if t.ledger == nil {
		return nil
	}
	rec := meta.UnitRecord{
		Unit:         unit,
		ReportDigest: fingerprint.HashBytes(report.Bytes()),
		Dependencies: report.Len(),
		Result:       result,
	}
	if t.run != nil {
		rec.RunID = t.run.ID
	}
	return t.ledger.RecordUnit(ctx, rec)
}

func (t *Tracker) submit(ctx context.Context, out *Outcome) error {
	if t.run == nil || t.run.Submitter == nil {
		return nil
	}
	if err := t.run.Submitter.Begin(ctx, t.run.ExpectedChildren, t.run.Target); err != nil {
		return err
	}
	agg, err := t.run.Submitter.Submit(ctx, out.Result)
	if err != nil {
		return err
	}
	if !agg.Ready {
		slog.Info("comparison result recorded", slog.Int("recorded", agg.Recorded), slog.Int("expected", agg.Expected))
		return nil
	}

	out.Aggregate = &agg
	if t.ledger != nil {
		return t.ledger.RecordRun(ctx, t.run.ID, t.run.Parent, agg.Results, agg.Result)
	}
	return nil
}

func filterExcluded(deps []fingerprint.Descriptor, m *ignore.Matcher) []fingerprint.Descriptor {
	if m == nil {
		return deps
	}
	kept := make([]fingerprint.Descriptor, 0, len(deps))
	for _, d := range deps {
		if m.Matches(d.ID) {
			slog.Debug("dependency excluded", slog.String("id", d.ID.String()))
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

// LocalSubmitter 进程内聚合 (deptrack run)
type LocalSubmitter struct {
	Aggregator *aggregate.Aggregator
}

func (l LocalSubmitter) Begin(ctx context.Context, expectedChildren int, target aggregate.Target) error {
	_, err := l.Aggregator.BeginRun(expectedChildren, target)
	return err
}

func (l LocalSubmitter) Submit(ctx context.Context, result types.Result) (aggregate.Outcome, error) {
	return l.Aggregator.Record(result)
}
