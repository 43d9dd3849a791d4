package aggregate

import (
	"fmt"
	"log/slog"
	"sync"

	"deptrack/pkg/types"
)

// Registry 管理多个并发运行的聚合会话，供协调服务使用
// 每个 runID 一个 Aggregator；触发后或 End 时移除会话，但 runID 留在 closed 里，
// 同一个 runID 不能再次开始，保证每次运行最多触发一次。
type Registry struct {
	mu     sync.Mutex
	runs   map[string]*Aggregator
	closed map[string]struct{}
	save   SaveFunc
}

func NewRegistry(save SaveFunc) *Registry {
	return &Registry{
		runs:   make(map[string]*Aggregator),
		closed: make(map[string]struct{}),
		save:   save,
	}
}

// Begin 第一个报到的单元建立会话，其余单元的调用被忽略。
// 已触发或已结束的 runID 返回 ErrRunComplete。
func (r *Registry) Begin(runID string, expectedChildren int, target Target) (bool, error) {
	if runID == "" {
		return false, fmt.Errorf("run id is required")
	}

	r.mu.Lock()
	if _, done := r.closed[runID]; done {
		r.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrRunComplete, runID)
	}
	agg, ok := r.runs[runID]
	if !ok {
		agg = NewAggregator(r.save)
		r.runs[runID] = agg
	}
	r.mu.Unlock()

	created, err := agg.BeginRun(expectedChildren, target)
	if err != nil {
		r.mu.Lock()
		if !ok && r.runs[runID] == agg {
			delete(r.runs, runID)
		}
		r.mu.Unlock()
	}
	return created, err
}

// Record 记录结果；触发聚合后会话立即关闭，同一 runID 的后续调用得到 ErrRunComplete
func (r *Registry) Record(runID string, result types.Result) (Outcome, error) {
	r.mu.Lock()
	agg, ok := r.runs[runID]
	_, done := r.closed[runID]
	r.mu.Unlock()
	if done {
		return Outcome{}, fmt.Errorf("%w: %s", ErrRunComplete, runID)
	}
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}

	out, err := agg.Record(result)
	if out.Ready {
		r.drop(runID, agg)
	}
	return out, err
}

// End 显式结束一次运行 (构建失败或取消时由宿主调用)
func (r *Registry) End(runID string) bool {
	r.mu.Lock()
	agg, ok := r.runs[runID]
	r.mu.Unlock()
	if ok {
		r.drop(runID, agg)
	}
	return ok
}

// Active 当前未完成的运行数
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func (r *Registry) drop(runID string, agg *Aggregator) {
	agg.EndRun()
	r.mu.Lock()
	if r.runs[runID] == agg {
		delete(r.runs, runID)
	}
	r.closed[runID] = struct{}{}
	r.mu.Unlock()
	slog.Info("aggregation run closed", slog.String("run_id", runID))
}
