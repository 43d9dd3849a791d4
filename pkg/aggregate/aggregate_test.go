package aggregate

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"deptrack/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSaver 统计落盘次数
type countingSaver struct {
	calls atomic.Int32
	last  atomic.Int32
}

func (c *countingSaver) save(r types.Result, dir, name string) (string, error) {
	c.calls.Add(1)
	c.last.Store(int32(r))
	return filepath.Join(dir, name+"-comparison-all.txt"), nil
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name  string
		input []types.Result
		want  types.Result
	}{
		{"All match", []types.Result{types.Match, types.Match, types.Match}, types.Match},
		{"Differs wins", []types.Result{types.Match, types.Differs, types.NoBaseline}, types.Differs},
		{"Only no baseline", []types.Result{types.NoBaseline, types.NoBaseline}, types.NoBaseline},
		{"Match and no baseline", []types.Result{types.Match, types.NoBaseline}, types.NoBaseline},
		{"Single differs", []types.Result{types.Differs}, types.Differs},
		{"Empty", nil, types.NoBaseline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(tt.input))
		})
	}
}

func TestAggregator_TwoChildRun(t *testing.T) {
	parentDir := filepath.Join(t.TempDir(), "target")
	agg := NewAggregator(nil) // 真实落盘

	created, err := agg.BeginRun(2, Target{Dir: parentDir, BuildName: "parent-1.0"})
	require.NoError(t, err)
	require.True(t, created)

	aggFile := filepath.Join(parentDir, "parent-1.0-comparison-all.txt")

	// parent = MATCH
	out, err := agg.Record(types.Match)
	require.NoError(t, err)
	assert.False(t, out.Ready)
	assert.NoFileExists(t, aggFile)

	// child1 = DIFFERS
	out, err = agg.Record(types.Differs)
	require.NoError(t, err)
	assert.False(t, out.Ready)
	assert.NoFileExists(t, aggFile, "第 2 个结果之后不应写出")

	// child2 = MATCH -> 第 3 个，触发
	out, err = agg.Record(types.Match)
	require.NoError(t, err)
	require.True(t, out.Ready)
	assert.Equal(t, types.Differs, out.Result)
	assert.Equal(t, aggFile, out.Path)
	assert.Equal(t, []types.Result{types.Match, types.Differs, types.Match}, out.Results)

	content, err := os.ReadFile(aggFile)
	require.NoError(t, err)
	assert.Equal(t, "1", string(content))

	// 触发之后再记录会被拒绝
	_, err = agg.Record(types.Match)
	assert.ErrorIs(t, err, ErrRunComplete)
}

func TestAggregator_BeginRunCapturedOnce(t *testing.T) {
	saver := &countingSaver{}
	agg := NewAggregator(saver.save)

	created, err := agg.BeginRun(0, Target{Dir: "/p", BuildName: "p"})
	require.NoError(t, err)
	assert.True(t, created)

	// 子单元再报一个不同的数量，不能覆盖
	created, err = agg.BeginRun(5, Target{Dir: "/other", BuildName: "o"})
	require.NoError(t, err)
	assert.False(t, created)

	out, err := agg.Record(types.Match)
	require.NoError(t, err)
	assert.True(t, out.Ready, "0 个子单元时父单元一个结果即可触发")
	assert.Equal(t, "/p/p-comparison-all.txt", out.Path)
}

func TestAggregator_RecordBeforeBegin(t *testing.T) {
	agg := NewAggregator(nil)
	_, err := agg.Record(types.Match)
	assert.ErrorIs(t, err, ErrRunNotBegun)
}

func TestAggregator_InvalidInput(t *testing.T) {
	agg := NewAggregator(nil)
	_, err := agg.BeginRun(-1, Target{})
	assert.Error(t, err)

	_, err = agg.BeginRun(1, Target{})
	require.NoError(t, err)
	_, err = agg.Record(types.Result(7))
	assert.Error(t, err)
}

func TestAggregator_EndRunResets(t *testing.T) {
	saver := &countingSaver{}
	agg := NewAggregator(saver.save)

	_, err := agg.BeginRun(1, Target{Dir: "/p", BuildName: "p"})
	require.NoError(t, err)
	_, err = agg.Record(types.Differs) // 残留的半截运行
	require.NoError(t, err)

	agg.EndRun()

	// 新一轮运行不应看到上一轮的计数
	_, err = agg.BeginRun(1, Target{Dir: "/p", BuildName: "p"})
	require.NoError(t, err)
	out, err := agg.Record(types.Match)
	require.NoError(t, err)
	assert.False(t, out.Ready)
	out, err = agg.Record(types.Match)
	require.NoError(t, err)
	require.True(t, out.Ready)
	assert.Equal(t, types.Match, out.Result)
	assert.Equal(t, int32(1), saver.calls.Load())
}

func TestAggregator_SaveFailureStillFiresOnce(t *testing.T) {
	var calls atomic.Int32
	agg := NewAggregator(func(types.Result, string, string) (string, error) {
		calls.Add(1)
		return "", errors.New("disk full")
	})
	_, err := agg.BeginRun(0, Target{})
	require.NoError(t, err)

	out, err := agg.Record(types.Match)
	assert.Error(t, err)
	assert.True(t, out.Ready)
	assert.True(t, agg.Fired())

	_, err = agg.Record(types.Match)
	assert.ErrorIs(t, err, ErrRunComplete)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAggregator_ConcurrentUnitsFireExactlyOnce(t *testing.T) {
	const children = 63
	saver := &countingSaver{}
	agg := NewAggregator(saver.save)

	var wg sync.WaitGroup
	var ready atomic.Int32
	for i := range children + 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// 每个单元都报到拓扑，只有第一个生效
			_, err := agg.BeginRun(children, Target{Dir: "/p", BuildName: "p"})
			assert.NoError(t, err)

			r := types.Match
			if i == 17 {
				r = types.Differs
			}
			out, err := agg.Record(r)
			assert.NoError(t, err)
			if out.Ready {
				ready.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ready.Load())
	assert.Equal(t, int32(1), saver.calls.Load())
	assert.Equal(t, int32(types.Differs), saver.last.Load())
}
