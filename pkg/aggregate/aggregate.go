package aggregate

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"deptrack/pkg/artifact"
	"deptrack/pkg/types"
)

var (
	ErrRunNotBegun = errors.New("aggregation run has not begun")
	ErrRunComplete = errors.New("aggregation already fired for this run")
	ErrUnknownRun  = errors.New("unknown aggregation run")
)

// Aggregate 合并一次构建中所有单元的结果。
// 全部 Match -> Match；任一 Differs -> Differs；其余 -> NoBaseline。
func Aggregate(results []types.Result) types.Result {
	if len(results) == 0 {
		return types.NoBaseline
	}
	allMatch := true
	for _, r := range results {
		if r == types.Differs {
			return types.Differs
		}
		if r != types.Match {
			allMatch = false
		}
	}
	if allMatch {
		return types.Match
	}
	return types.NoBaseline
}

// Target 聚合结果文件写到父单元的哪里
type Target struct {
	Dir       string
	BuildName string
}

// Session 一次顶层构建的聚合状态
type Session struct {
	expectedChildren int
	target           Target
	results          []types.Result
	fired            bool
}

func newSession(expectedChildren int, target Target) *Session {
	return &Session{
		expectedChildren: expectedChildren,
		target:           target,
		results:          make([]types.Result, 0, expectedChildren+1),
	}
}

// recordResult 追加结果；恰好收齐 (所有子单元 + 父单元) 时返回 true
func (s *Session) recordResult(r types.Result) bool {
	s.results = append(s.results, r)
	return len(s.results) == s.expectedChildren+1
}

// Outcome Record 的返回值
type Outcome struct {
	Ready    bool
	Result   types.Result   // 仅 Ready 时有意义
	Path     string         // 聚合结果文件，仅 Ready 时有值
	Results  []types.Result // Ready 时为全部结果的副本
	Recorded int
	Expected int
}

// SaveFunc 聚合结果的落盘方式
type SaveFunc func(result types.Result, dir, buildName string) (string, error)

// Aggregator 持有一次运行的 Session。
// 记录、阈值判断、聚合、落盘在同一把锁里完成，保证每次运行最多触发一次。
type Aggregator struct {
	mu      sync.Mutex
	session *Session
	save    SaveFunc
}

// NewAggregator save 为 nil 时使用 artifact.SaveAggregated
func NewAggregator(save SaveFunc) *Aggregator {
	if save == nil {
		save = artifact.SaveAggregated
	}
	return &Aggregator{save: save}
}

// BeginRun 只有第一次调用生效，运行中途不会被重新设置。
// 返回 true 表示本次调用建立了会话。
func (a *Aggregator) BeginRun(expectedChildren int, target Target) (bool, error) {
	if expectedChildren < 0 {
		return false, fmt.Errorf("expected child count must not be negative: %d", expectedChildren)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session != nil {
		return false, nil
	}
	a.session = newSession(expectedChildren, target)
	slog.Info("aggregation run started",
		slog.Int("expected_children", expectedChildren),
		slog.String("parent_dir", target.Dir),
		slog.String("parent_build_name", target.BuildName),
	)
	return true, nil
}

// Record 记录一个单元的结果；收齐时在锁内聚合并写出 -comparison-all.txt
func (a *Aggregator) Record(r types.Result) (Outcome, error) {
	if !r.IsValid() {
		return Outcome{}, fmt.Errorf("invalid comparison result: %d", int(r))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.session
	if s == nil {
		return Outcome{}, ErrRunNotBegun
	}
	if s.fired {
		return Outcome{}, ErrRunComplete
	}

	ready := s.recordResult(r)
	out := Outcome{Recorded: len(s.results), Expected: s.expectedChildren + 1}
	if !ready {
		return out, nil
	}

	// 不论落盘是否成功都不再触发第二次
	s.fired = true
	out.Ready = true
	out.Results = slices.Clone(s.results)
	out.Result = Aggregate(s.results)
	slog.Info("aggregating dependency comparison results",
		slog.Int("count", len(s.results)),
		slog.String("result", out.Result.Label()),
	)

	path, err := a.save(out.Result, s.target.Dir, s.target.BuildName)
	if err != nil {
		return out, err
	}
	out.Path = path
	return out, nil
}

// EndRun 清空会话，下一次运行必须重新 BeginRun
func (a *Aggregator) EndRun() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = nil
}

// Fired 当前会话是否已经触发过聚合
func (a *Aggregator) Fired() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session != nil && a.session.fired
}
