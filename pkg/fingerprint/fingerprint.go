package fingerprint

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"deptrack/pkg/types"

	"golang.org/x/sync/errgroup"
)

// ErrUnreadable 依赖内容无法读取。整个指纹计算失败，不产出部分报告。
var ErrUnreadable = errors.New("dependency content unreadable")

// Source 提供依赖的原始字节
type Source interface {
	Open() (io.ReadCloser, error)
}

// FileSource 从本地文件读取 (解析后的 jar/pom 等)
type FileSource string

func (f FileSource) Open() (io.ReadCloser, error) { return os.Open(string(f)) }

// BytesSource 内存中的内容，主要给测试和内嵌依赖用
type BytesSource []byte

func (b BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}

// Descriptor 一个已解析的依赖: 规范 ID + 可读内容
type Descriptor struct {
	ID     types.DependencyID
	Source Source
}

// Fingerprinter 为依赖集合计算 SHA-1 指纹
type Fingerprinter struct {
	workers int
}

// NewFingerprinter workers <= 0 时使用 GOMAXPROCS
func NewFingerprinter(workers int) *Fingerprinter {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Fingerprinter{workers: workers}
}

// Fingerprint 并发读取并哈希每个依赖，结果按规范 ID 折叠。
// 重复 ID 按输入顺序后者覆盖前者，与并发调度顺序无关。
func (f *Fingerprinter) Fingerprint(ctx context.Context, deps []Descriptor) (map[types.DependencyID]types.Digest, error) {
	slog.Info("fingerprinting dependencies", slog.Int("count", len(deps)))

	digests := make([]types.Digest, len(deps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i, d := range deps {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slog.Debug("generating sha1 for dependency", slog.String("id", d.ID.String()))
			digest, err := HashSource(d.Source)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrUnreadable, d.ID, err)
			}
			digests[i] = digest
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[types.DependencyID]types.Digest, len(deps))
	for i, d := range deps {
		if prev, ok := out[d.ID]; ok && prev != digests[i] {
			slog.Warn("duplicate dependency id with different content, keeping the last one",
				slog.String("id", d.ID.String()),
				slog.String("dropped", prev.String()),
				slog.String("kept", digests[i].String()),
			)
		}
		out[d.ID] = digests[i]
	}
	return out, nil
}

// HashSource 流式计算 SHA-1，不把整个文件读进内存
func HashSource(src Source) (types.Digest, error) {
	if src == nil {
		return "", errors.New("no content source")
	}
	rc, err := src.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return HashReader(rc)
}

// HashReader 计算 reader 全部内容的小写 hex SHA-1
func HashReader(r io.Reader) (types.Digest, error) {
	h := sha1.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return types.Digest(hex.EncodeToString(h.Sum(nil))), nil
}

// HashBytes 同 HashReader，用于内存数据
func HashBytes(data []byte) types.Digest {
	sum := sha1.Sum(data)
	return types.Digest(hex.EncodeToString(sum[:]))
}
