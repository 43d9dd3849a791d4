package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"deptrack/pkg/manifest"
	"deptrack/pkg/storage/disk"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitStore_Disk(t *testing.T) {
	// 1. Mock 配置
	viper.Reset()
	viper.Set("storage.type", "disk")
	viper.Set("storage.path", filepath.Join(t.TempDir(), "repository"))

	// 2. 调用私有函数 (因为我们在同一个包)
	store, err := initStore(context.Background())

	// 3. 验证
	require.NoError(t, err)
	assert.IsType(t, &disk.Adapter{}, store)
}

func TestInitStore_S3_MissingBucket(t *testing.T) {
	viper.Reset()
	viper.Set("storage.type", "s3")
	// 故意不设置 bucket

	store, err := initStore(context.Background())
	assert.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), "bucket is required")
}

func TestInitStore_UnknownType(t *testing.T) {
	viper.Reset()
	viper.Set("storage.type", "ftp") // 不支持的类型

	store, err := initStore(context.Background())
	assert.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), "unsupported storage type")
}

func TestOpenLedger(t *testing.T) {
	viper.Reset()
	db, err := OpenLedger(context.Background())
	require.NoError(t, err)
	assert.Nil(t, db)

	viper.Set("ledger.type", "mongo")
	_, err = OpenLedger(context.Background())
	assert.ErrorContains(t, err, "unsupported ledger type")
}

func TestNewApp_WithSQLiteLedger(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	viper.Set("storage.path", filepath.Join(dir, "repository"))
	viper.Set("ledger.type", "sqlite")
	viper.Set("ledger.path", filepath.Join(dir, "ledger.db"))
	viper.Set("fingerprint.workers", 2)
	viper.Set("fingerprint.exclude", []string{"*-SNAPSHOT"})

	a, err := NewApp(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	assert.NotNil(t, a.Ledger)
	assert.NotNil(t, a.TrackerLedger())
	assert.FileExists(t, filepath.Join(dir, "ledger.db"))

	// manifest -> tracker.Unit
	unitDir := filepath.Join(dir, "unit")
	require.NoError(t, os.MkdirAll(unitDir, 0755))
	path := filepath.Join(unitDir, "deptrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
unit: {group: g, artifact: app, version: "1"}
dependencies:
  - {group: g, artifact: lib, version: "2", file: lib.jar}
  - {group: g, artifact: snap, version: "3-SNAPSHOT", file: snap.jar}
`), 0644))
	m, err := manifest.Load(path)
	require.NoError(t, err)

	u, err := a.Unit(m)
	require.NoError(t, err)
	assert.Len(t, u.Dependencies, 2)
	assert.True(t, u.Exclude.Matches("g:snap:jar:3-SNAPSHOT"))
	assert.False(t, u.Exclude.Matches("g:lib:jar:2"))
	assert.Equal(t, filepath.Join(unitDir, "target", "app-1-dependencies.txt"), u.Store.ReportPath())
}

func TestApp_TrackerLedgerNil(t *testing.T) {
	a := &App{}
	assert.Nil(t, a.TrackerLedger())
}
