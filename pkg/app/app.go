// pkg/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"deptrack/pkg/artifact"
	"deptrack/pkg/fingerprint"
	"deptrack/pkg/ignore"
	"deptrack/pkg/manifest"
	"deptrack/pkg/meta"
	"deptrack/pkg/storage"
	"deptrack/pkg/storage/cache"
	"deptrack/pkg/storage/disk"
	"deptrack/pkg/storage/s3"
	"deptrack/pkg/tracker"

	"github.com/spf13/viper"
)

// App 是整个应用程序的依赖容器 (Dependency Container)
// 它只认 Viper 配置，不知道具体的 CLI 命令
type App struct {
	Remote        storage.Repository
	Ledger        *meta.Repository // ledger.type=none 时为 nil
	Fingerprinter *fingerprint.Fingerprinter

	// Exclude 配置里的全局排除规则，和单元目录下的 .deptrackignore 合并
	Exclude []string

	closers []io.Closer
}

// NewApp 组装远程仓库、缓存、台账
func NewApp(ctx context.Context) (*App, error) {
	// 1. 远程仓库
	remote, err := initStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}
	a := &App{
		Remote:        remote,
		Fingerprinter: fingerprint.NewFingerprinter(viper.GetInt("fingerprint.workers")),
		Exclude:       viper.GetStringSlice("fingerprint.exclude"),
	}

	// 2. 基线缓存 (可选)
	if url := viper.GetString("cache.redis_url"); url != "" {
		cached, err := cache.NewCachedRepository(remote, cache.Config{
			RedisURL: url,
			TTL:      viper.GetDuration("cache.ttl"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init cache: %w", err)
		}
		a.Remote = cached
		a.closers = append(a.closers, cached)
	}

	// 3. 台账 (可选)
	db, err := OpenLedger(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to init ledger: %w", err)
	}
	if db != nil {
		a.Ledger = meta.NewRepository(db)
		a.closers = append(a.closers, db)
	}

	return a, nil
}

func initStore(ctx context.Context) (storage.Repository, error) {
	switch storeType := viper.GetString("storage.type"); storeType {
	case "disk", "":
		path := viper.GetString("storage.path")
		if path == "" {
			return nil, errors.New("storage path not set")
		}
		return disk.NewAdapter(path)
	case "s3":
		return s3.NewAdapter(ctx, s3.Config{
			Endpoint:        viper.GetString("s3.endpoint"),
			Region:          viper.GetString("s3.region"),
			Bucket:          viper.GetString("s3.bucket"),
			Prefix:          viper.GetString("s3.prefix"),
			AccessKeyID:     viper.GetString("s3.access_key"),
			SecretAccessKey: viper.GetString("s3.secret_key"),
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storeType)
	}
}

// OpenLedger 按 ledger.type 打开台账，none 时返回 nil, nil
func OpenLedger(ctx context.Context) (*meta.DB, error) {
	switch ledgerType := viper.GetString("ledger.type"); ledgerType {
	case "none", "":
		return nil, nil
	case "sqlite":
		return meta.NewSQLite(viper.GetString("ledger.path"))
	case "postgres":
		return meta.NewDB(ctx, meta.Config{
			Host:     viper.GetString("database.host"),
			Port:     viper.GetInt("database.port"),
			User:     viper.GetString("database.user"),
			Password: viper.GetString("database.password"),
			DBName:   viper.GetString("database.dbname"),
			SSLMode:  viper.GetString("database.sslmode"),
		})
	default:
		return nil, fmt.Errorf("unsupported ledger type: %s", ledgerType)
	}
}

// TrackerLedger 避免把 nil 指针包进非 nil 接口
func (a *App) TrackerLedger() tracker.Ledger {
	if a.Ledger == nil {
		return nil
	}
	return a.Ledger
}

// Unit 把 manifest 转成流水线的输入
func (a *App) Unit(m *manifest.Manifest) (tracker.Unit, error) {
	matcher, err := ignore.NewMatcher(m.Dir(), a.Exclude...)
	if err != nil {
		return tracker.Unit{}, fmt.Errorf("failed to load exclusion rules for %s: %w", m.Unit.String(), err)
	}
	return tracker.Unit{
		Store:        a.Store(m),
		Dependencies: m.Descriptors(),
		Exclude:      matcher,
	}, nil
}

// Store 单元的产物仓库
func (a *App) Store(m *manifest.Manifest) *artifact.Store {
	return artifact.NewStore(a.Remote, m.Unit.Coordinates, m.OutputDir(), m.BuildName())
}

// Close 释放缓存和数据库连接
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
