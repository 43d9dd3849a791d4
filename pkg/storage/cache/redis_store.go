package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"deptrack/pkg/storage"

	"github.com/redis/go-redis/v9"
)

// CachedRepository 是一个装饰器，为底层的 storage.Repository 添加 Redis 缓存层
// 报告文件很小，所以这里缓存的是内容本身，而不只是存在性
type CachedRepository struct {
	backend storage.Repository // 被装饰的底层仓库 (如 S3)
	client  *redis.Client
	ttl     time.Duration
}

type Config struct {
	RedisURL string        // 标准连接字符串: redis://<user>:<password>@<host>:<port>/<db>
	TTL      time.Duration // 过期时间
}

func NewCachedRepository(backend storage.Repository, cfg Config) (*CachedRepository, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Fail-fast 连接检查
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &CachedRepository{
		backend: backend,
		client:  client,
		ttl:     cfg.TTL,
	}, nil
}

// cacheKey 添加前缀防止冲突
func (s *CachedRepository) cacheKey(key string) string {
	return "deptrack:artifact:" + key
}

// Get 优先读 Redis；未命中时读底层仓库并回填。
// 不缓存 "不存在"，否则别的构建机刚发布的基线会被挡住。
func (s *CachedRepository) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	ck := s.cacheKey(key)

	data, err := s.client.Get(ctx, ck).Bytes()
	switch {
	case err == nil:
		return io.NopCloser(bytes.NewReader(data)), nil
	case errors.Is(err, redis.Nil):
		// miss
	default:
		// 缓存故障降级为直连底层仓库
		slog.Warn("redis get failed, falling back to backend", slog.String("key", key), slog.Any("err", err))
	}

	rc, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err = io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	if err := s.client.Set(ctx, ck, data, s.ttl).Err(); err != nil {
		slog.Warn("redis cache fill failed", slog.String("key", key), slog.Any("err", err))
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Put 写穿: 先写底层仓库，成功后刷新缓存
func (s *CachedRepository) Put(ctx context.Context, key string, data []byte) error {
	if err := s.backend.Put(ctx, key, data); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.cacheKey(key), data, s.ttl).Err(); err != nil {
		// 缓存可能还留着旧内容，删掉它
		s.client.Del(ctx, s.cacheKey(key))
		slog.Warn("redis cache update failed", slog.String("key", key), slog.Any("err", err))
	}
	return nil
}

// Has 缓存命中直接返回，否则查底层
func (s *CachedRepository) Has(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.cacheKey(key)).Result()
	if err != nil {
		slog.Warn("redis exists failed, falling back to backend", slog.String("key", key), slog.Any("err", err))
	} else if n > 0 {
		return true, nil
	}
	return s.backend.Has(ctx, key)
}

// Close 释放 Redis 连接
func (s *CachedRepository) Close() error {
	return s.client.Close()
}
