package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"deptrack/pkg/fingerprint"
	"deptrack/pkg/storage"
	"deptrack/pkg/types"
)

// BaselineDir 下载的基线报告放在单元输出目录下的这个子目录，避免覆盖本次报告
const BaselineDir = "deptrack-baseline"

// Attachment 一个已登记、可发布的构建产物
type Attachment struct {
	Classifier string
	Extension  string
	Path       string
}

// Baseline 基线解析结果。Found=false 表示从未发布过，不是错误。
// 其它失败通过 error 返回，调用方不能把它当成 "没有基线"。
type Baseline struct {
	Path  string
	Found bool
}

// Store 负责一个单元的产物: 本地落盘、登记、发布、拉取基线
type Store struct {
	remote    storage.Repository
	unit      types.Coordinates
	outputDir string
	buildName string

	mu       sync.Mutex
	attached []Attachment
}

// NewStore remote 可以为 nil，此时只能本地落盘，不能拉取或发布
func NewStore(remote storage.Repository, unit types.Coordinates, outputDir, buildName string) *Store {
	return &Store{
		remote:    remote,
		unit:      unit,
		outputDir: outputDir,
		buildName: buildName,
	}
}

func (s *Store) Unit() types.Coordinates { return s.unit }

func (s *Store) OutputDir() string { return s.outputDir }

// ReportPath <outputDir>/<buildName>-dependencies.txt
func (s *Store) ReportPath() string {
	return filepath.Join(s.outputDir, types.ArtifactFileName(s.buildName, types.Classifier))
}

// ResultPath <outputDir>/<buildName>-comparison.txt
func (s *Store) ResultPath() string {
	return filepath.Join(s.outputDir, types.ArtifactFileName(s.buildName, types.CompareClassifier))
}

// SaveReport 写出依赖报告并登记为 dependencies/txt 产物。
// 输出目录不存在时先创建 (pom 类型的父单元通常没有其它产物)。
func (s *Store) SaveReport(report *fingerprint.Report) (string, error) {
	path := s.ReportPath()

	for _, line := range report.Lines() {
		slog.Debug("tracked dependency", slog.String("line", line))
	}
	slog.Info("saving dependency report", slog.String("path", path), slog.Int("entries", report.Len()))

	if err := WriteFile(path, report.Bytes()); err != nil {
		return "", fmt.Errorf("failed to save dependency report for %s: %w", s.unit, err)
	}

	s.Attach(types.Classifier, types.Extension, path)
	return path, nil
}

// SaveResult 把比较结果的字面值写入 <buildName>-comparison.txt
func (s *Store) SaveResult(result types.Result) (string, error) {
	path := s.ResultPath()
	slog.Info("saving comparison result", slog.String("path", path), slog.String("result", result.Label()))

	if err := WriteFile(path, []byte(result.String())); err != nil {
		return "", fmt.Errorf("failed to save comparison result for %s: %w", s.unit, err)
	}
	return path, nil
}

// Attach 登记一个产物，Publish 时上传
func (s *Store) Attach(classifier, ext, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 同一 classifier/extension 只保留最新的一次
	s.attached = slices.DeleteFunc(s.attached, func(a Attachment) bool {
		return a.Classifier == classifier && a.Extension == ext
	})
	s.attached = append(s.attached, Attachment{Classifier: classifier, Extension: ext, Path: path})
}

// Attached 返回已登记产物的副本
func (s *Store) Attached() []Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.attached)
}

// Publish 将所有已登记产物上传到远程仓库
func (s *Store) Publish(ctx context.Context) error {
	if s.remote == nil {
		return fmt.Errorf("publish %s: no remote repository configured", s.unit)
	}
	for _, a := range s.Attached() {
		data, err := os.ReadFile(a.Path)
		if err != nil {
			return fmt.Errorf("publish %s: %w", s.unit, err)
		}
		key := storage.Key(s.unit, a.Classifier, a.Extension)
		slog.Info("publishing artifact", slog.String("unit", s.unit.String()), slog.String("key", key))
		if err := s.remote.Put(ctx, key, data); err != nil {
			return fmt.Errorf("publish %s (%s): %w", s.unit, key, err)
		}
	}
	return nil
}

// FetchBaseline 从远程仓库解析同坐标、classifier=dependencies、extension=txt 的报告
func (s *Store) FetchBaseline(ctx context.Context) (Baseline, error) {
	if s.remote == nil {
		return Baseline{}, fmt.Errorf("resolve baseline for %s: no remote repository configured", s.unit)
	}

	key := storage.Key(s.unit, types.Classifier, types.Extension)
	rc, err := s.remote.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		slog.Info("no remote dependency report found", slog.String("unit", s.unit.String()), slog.String("key", key))
		return Baseline{Found: false}, nil
	}
	if err != nil {
		return Baseline{}, fmt.Errorf("resolve baseline for %s: %w", s.unit, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return Baseline{}, fmt.Errorf("resolve baseline for %s: %w", s.unit, err)
	}

	local := filepath.Join(s.outputDir, BaselineDir, filepath.Base(key))
	if err := WriteFile(local, data); err != nil {
		return Baseline{}, fmt.Errorf("resolve baseline for %s: %w", s.unit, err)
	}
	slog.Info("resolved remote dependency report", slog.String("unit", s.unit.String()), slog.String("path", local))
	return Baseline{Path: local, Found: true}, nil
}

// SaveAggregated 把整次构建的聚合结果写入父单元的 <buildName>-comparison-all.txt
func SaveAggregated(result types.Result, parentDir, parentBuildName string) (string, error) {
	path := filepath.Join(parentDir, types.ArtifactFileName(parentBuildName, types.AggregatedClassifier))
	slog.Info("saving aggregated comparison result", slog.String("path", path), slog.String("result", result.Label()))

	if err := WriteFile(path, []byte(result.String())); err != nil {
		return "", fmt.Errorf("failed to save aggregated result: %w", err)
	}
	return path, nil
}

// WriteFile 原子写入: 先写临时文件再 Rename，失败时不会留下半个文件。
// 父目录不存在会自动创建。
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}
	// CreateTemp 默认 0600，报告需要可读
	if err := os.Chmod(tempFile.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tempFile.Name(), path)
}
