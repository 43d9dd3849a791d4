package disk

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"deptrack/pkg/storage"
)

// Adapter 实现了 storage.Repository 接口
// 以目录作为远程仓库 (例如挂载的共享盘或 file:// 仓库)
type Adapter struct {
	rootPath string // 比如: /mnt/repo/releases
}

// NewAdapter 创建一个新的磁盘仓库适配器
func NewAdapter(root string) (*Adapter, error) {
	// 确保根目录存在
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create repository root dir: %w", err)
	}
	return &Adapter{rootPath: root}, nil
}

// layout 返回 key 对应的物理路径，key 使用 '/' 分隔
func (s *Adapter) layout(key string) string {
	return filepath.Join(s.rootPath, filepath.FromSlash(key))
}

func (s *Adapter) Put(ctx context.Context, key string, data []byte) error {
	targetPath := s.layout(key)

	// 1. 准备目录
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// 2. 原子写入 (Atomic Write)
	// 先写临时文件再 Rename，读者要么看到旧版本，要么看到完整的新版本
	tempFile, err := os.CreateTemp(dir, "temp-*")
	if err != nil {
		return err
	}
	// Rename 成功后这个删除是无害的
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return err
	}
	if err := tempFile.Close(); err != nil { // 必须先关闭才能 Rename
		return err
	}

	// 3. 移动到最终位置 (覆盖旧版本)
	return os.Rename(tempFile.Name(), targetPath)
}

func (s *Adapter) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.layout(key))
	if os.IsNotExist(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Adapter) Has(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.layout(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
