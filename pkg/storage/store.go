package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"deptrack/pkg/types"
)

var (
	ErrNotFound = errors.New("artifact not found")
)

// Repository defines the remote artifact repository reports are published to
// and baselines are resolved from.
// Implementations can be a local/shared directory or an S3-compatible bucket.
type Repository interface {
	// Put 发布 (覆盖) 一个产物。SNAPSHOT 版本会被反复发布，所以不能像 CAS 那样跳过已存在的 key
	Put(ctx context.Context, key string, data []byte) error

	// Get 读取产物。key 从未发布过时必须返回 ErrNotFound，其它错误原样返回
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Has 检查产物是否存在
	Has(ctx context.Context, key string) (bool, error)
}

// Key 按 Maven 仓库布局生成产物路径:
// org/acme/app/1.0/app-1.0-dependencies.txt
func Key(c types.Coordinates, classifier, ext string) string {
	name := c.ArtifactID + "-" + c.Version
	if classifier != "" {
		name += "-" + classifier
	}
	name += "." + ext
	return path.Join(strings.ReplaceAll(c.GroupID, ".", "/"), c.ArtifactID, c.Version, name)
}
