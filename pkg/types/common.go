// pkg/types/common.go
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Digest 代表依赖内容的 SHA-1 摘要 (小写 Hex String)
// 已发布的基线都是这个编码，改编码等于让所有历史基线失效。
type Digest string

func (d Digest) String() string { return string(d) }

func (d Digest) IsZero() bool { return d == "" }

// IsValid 40 个小写 hex 字符
func (d Digest) IsValid() bool {
	if len(d) != 40 {
		return false
	}
	for _, c := range d {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// DependencyID 是依赖的规范标识，格式同 Maven:
// group:artifact:type[:classifier]:version
type DependencyID string

func (id DependencyID) String() string { return string(id) }

// Coordinates 描述一个构件的坐标
type Coordinates struct {
	GroupID    string `yaml:"group" json:"group"`
	ArtifactID string `yaml:"artifact" json:"artifact"`
	Version    string `yaml:"version" json:"version"`
	Classifier string `yaml:"classifier,omitempty" json:"classifier,omitempty"`
	Type       string `yaml:"type,omitempty" json:"type,omitempty"`
}

// ID 生成规范标识。Type 为空时按 "jar" 处理，Classifier 为空则省略。
func (c Coordinates) ID() DependencyID {
	typ := c.Type
	if typ == "" {
		typ = "jar"
	}
	parts := []string{c.GroupID, c.ArtifactID, typ}
	if c.Classifier != "" {
		parts = append(parts, c.Classifier)
	}
	parts = append(parts, c.Version)
	return DependencyID(strings.Join(parts, ":"))
}

func (c Coordinates) String() string {
	return c.GroupID + ":" + c.ArtifactID + ":" + c.Version
}

// Validate 检查 group/artifact/version 是否齐全
func (c Coordinates) Validate() error {
	switch {
	case c.GroupID == "":
		return fmt.Errorf("coordinates %q: group is required", c.String())
	case c.ArtifactID == "":
		return fmt.Errorf("coordinates %q: artifact is required", c.String())
	case c.Version == "":
		return fmt.Errorf("coordinates %q: version is required", c.String())
	}
	return nil
}

// Result 是三态比较结果，对外编码为 {0, 1, -1}
type Result int

const (
	NoBaseline Result = -1
	Match      Result = 0
	Differs    Result = 1
)

// String 返回写入结果文件的字面值 ("-1" / "0" / "1")
func (r Result) String() string { return strconv.Itoa(int(r)) }

func (r Result) IsValid() bool {
	return r == NoBaseline || r == Match || r == Differs
}

// Label 仅用于日志与 CLI 输出
func (r Result) Label() string {
	switch r {
	case Match:
		return "MATCH"
	case Differs:
		return "DIFFERS"
	case NoBaseline:
		return "NO_BASELINE"
	default:
		return "UNKNOWN(" + r.String() + ")"
	}
}

// ParseResult 解析结果文件内容，容忍首尾空白
func ParseResult(s string) (Result, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid comparison result %q: %w", s, err)
	}
	r := Result(n)
	if !r.IsValid() {
		return 0, fmt.Errorf("comparison result out of range: %d", n)
	}
	return r, nil
}

// 产物文件命名
const (
	Classifier           = "dependencies"
	Extension            = "txt"
	CompareClassifier    = "comparison"
	AggregatedClassifier = "comparison-all"

	OutputSeparator   = "="
	FileNameSeparator = "-"
)

// ArtifactFileName 返回 "<buildName>-<classifier>.txt"
func ArtifactFileName(buildName, classifier string) string {
	return buildName + FileNameSeparator + classifier + "." + Extension
}
