package ignore

import (
	"os"
	"path/filepath"

	"deptrack/pkg/types"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileName 单元目录下的排除规则文件
const FileName = ".deptrackignore"

// Matcher 判断一个依赖是否应该被排除在指纹报告之外
// 规则使用 gitignore 语法，直接作用在规范 ID 上，例如:
//
//	*-SNAPSHOT
//	org.acme.internal:*
//	!org.acme.internal:api:jar:*
type Matcher struct {
	ignorer *gitignore.GitIgnore
}

// NewMatcher 读取 unitDir/.deptrackignore (若存在) 并与 extra 规则合并编译
func NewMatcher(unitDir string, extra ...string) (*Matcher, error) {
	ignoreFilePath := filepath.Join(unitDir, FileName)

	var ignorer *gitignore.GitIgnore
	var err error
	if _, errStat := os.Stat(ignoreFilePath); errStat == nil {
		// 文件内容和配置里的规则一起编译
		ignorer, err = gitignore.CompileIgnoreFileAndLines(ignoreFilePath, extra...)
	} else if len(extra) > 0 {
		ignorer = gitignore.CompileIgnoreLines(extra...)
	}
	if err != nil {
		return nil, err
	}

	return &Matcher{ignorer: ignorer}, nil
}

// Matches 返回 true 表示该依赖应被排除
func (m *Matcher) Matches(id types.DependencyID) bool {
	if m == nil || m.ignorer == nil {
		return false
	}
	return m.ignorer.MatchesPath(string(id))
}
