// pkg/manifest/manifest.go
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"deptrack/pkg/fingerprint"
	"deptrack/pkg/types"

	"gopkg.in/yaml.v3"
)

// DefaultOutputDir 与 Maven 的 target 目录保持一致
const DefaultOutputDir = "target"

// Unit 描述被构建的单元 (一个 project/module)
type Unit struct {
	types.Coordinates `yaml:",inline"`

	// Packaging 为 "pom" 的单元通常没有其它产物，输出目录可能不存在
	Packaging string `yaml:"packaging,omitempty"`
	BuildName string `yaml:"build_name,omitempty"` // 默认 artifact-version
	OutputDir string `yaml:"output_dir,omitempty"` // 相对 manifest 所在目录
}

// Dependency 一个已解析的直接依赖
type Dependency struct {
	types.Coordinates `yaml:",inline"`
	File              string `yaml:"file"`
}

// Manifest 宿主构建工具导出的已解析依赖集合
// YAML 是 JSON 的超集，所以 .json 文件同样可以加载
type Manifest struct {
	Unit         Unit         `yaml:"unit"`
	Dependencies []Dependency `yaml:"dependencies"`
	// Modules 子单元 manifest 路径，只有父单元才有
	Modules []string `yaml:"modules,omitempty"`

	path string
	dir  string
}

// Load 读取并校验 manifest，相对路径全部以 manifest 所在目录为基准解析
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("corrupted manifest %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	m.path = abs
	m.dir = filepath.Dir(abs)

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if err := m.Unit.Validate(); err != nil {
		return fmt.Errorf("unit: %w", err)
	}
	var errs []error
	for i, d := range m.Dependencies {
		if err := d.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("dependency #%d: %w", i, err))
			continue
		}
		if d.File == "" {
			errs = append(errs, fmt.Errorf("dependency %s: file is required", d.ID()))
		}
	}
	return errors.Join(errs...)
}

// Path manifest 文件的绝对路径
func (m *Manifest) Path() string { return m.path }

// Dir manifest 所在目录 (单元根目录)
func (m *Manifest) Dir() string { return m.dir }

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.dir, p)
}

// BuildName 产物文件的基础名
func (m *Manifest) BuildName() string {
	if m.Unit.BuildName != "" {
		return m.Unit.BuildName
	}
	return m.Unit.ArtifactID + "-" + m.Unit.Version
}

// OutputDir 单元输出目录的绝对路径
func (m *Manifest) OutputDir() string {
	if m.Unit.OutputDir != "" {
		return m.resolve(m.Unit.OutputDir)
	}
	return m.resolve(DefaultOutputDir)
}

// Descriptors 转换为指纹计算的输入
func (m *Manifest) Descriptors() []fingerprint.Descriptor {
	out := make([]fingerprint.Descriptor, 0, len(m.Dependencies))
	for _, d := range m.Dependencies {
		out = append(out, fingerprint.Descriptor{
			ID:     d.ID(),
			Source: fingerprint.FileSource(m.resolve(d.File)),
		})
	}
	return out
}

// ModulePaths 子单元 manifest 的绝对路径
func (m *Manifest) ModulePaths() []string {
	out := make([]string, len(m.Modules))
	for i, p := range m.Modules {
		out[i] = m.resolve(p)
	}
	return out
}
