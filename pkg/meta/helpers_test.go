package meta

import (
	"context"
	"testing"

	"deptrack/pkg/types"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// 通用辅助函数 (Helpers)
// -----------------------------------------------------------------------------

func coords(artifact, version string) types.Coordinates {
	return types.Coordinates{GroupID: "org.acme", ArtifactID: artifact, Version: version}
}

// mustRecordUnit 记录单元结果，失败直接终止测试
func mustRecordUnit(t *testing.T, repo *Repository, rec UnitRecord, msgAndArgs ...any) {
	t.Helper()
	err := repo.RecordUnit(context.Background(), rec)
	require.NoError(t, err, msgAndArgs...)
}

// mustRecordRun 记录聚合结果，失败直接终止测试
func mustRecordRun(t *testing.T, repo *Repository, runID string, results []types.Result, agg types.Result, msgAndArgs ...any) {
	t.Helper()
	err := repo.RecordRun(context.Background(), runID, coords("parent", "1.0"), results, agg)
	require.NoError(t, err, msgAndArgs...)
}
