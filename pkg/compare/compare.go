// Package compare 对本次报告和基线报告做逐字节比较
package compare

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"deptrack/pkg/artifact"
	"deptrack/pkg/types"
)

// Compare 比较两个已落盘的报告文件。
// 基线不存在 -> NoBaseline；字节完全相同 -> Match；否则 -> Differs。
// 只看字节，不做任何语义解析。
func Compare(currentReport string, baseline artifact.Baseline) (types.Result, error) {
	slog.Info("comparing project dependency reports", slog.String("current", currentReport))

	if !baseline.Found {
		return types.NoBaseline, nil
	}

	current, err := os.ReadFile(currentReport)
	if err != nil {
		return 0, fmt.Errorf("failed to read current report: %w", err)
	}
	remote, err := os.ReadFile(baseline.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to read baseline report: %w", err)
	}

	if bytes.Equal(current, remote) {
		return types.Match, nil
	}
	return types.Differs, nil
}

// CompareAndSave 比较并把结果写入单元的 -comparison.txt
func CompareAndSave(store *artifact.Store, currentReport string, baseline artifact.Baseline) (types.Result, error) {
	result, err := Compare(currentReport, baseline)
	if err != nil {
		return 0, fmt.Errorf("compare %s: %w", store.Unit(), err)
	}
	if _, err := store.SaveResult(result); err != nil {
		return 0, err
	}
	return result, nil
}
