package fingerprint

import (
	"slices"
	"strings"

	"deptrack/pkg/types"
)

// Entry 报告中的一行
type Entry struct {
	ID     types.DependencyID
	Digest types.Digest
}

// Line 渲染为 "id=digest"
func (e Entry) Line() string {
	return e.ID.String() + types.OutputSeparator + e.Digest.String()
}

// Report 按 ID 字节序升序排列的依赖指纹报告，构建后不可变
type Report struct {
	entries []Entry
}

// BuildReport 由 id->digest 映射生成报告。
// 输出只由排序决定，与 map 的遍历顺序无关。
func BuildReport(digests map[types.DependencyID]types.Digest) *Report {
	entries := make([]Entry, 0, len(digests))
	for id, d := range digests {
		entries = append(entries, Entry{ID: id, Digest: d})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return &Report{entries: entries}
}

func (r *Report) Len() int { return len(r.entries) }

// Entries 返回副本
func (r *Report) Entries() []Entry {
	return slices.Clone(r.entries)
}

func (r *Report) Lines() []string {
	lines := make([]string, len(r.entries))
	for i, e := range r.entries {
		lines[i] = e.Line()
	}
	return lines
}

// Bytes 落盘格式: 每行以 '\n' 结尾，空报告为空文件
func (r *Report) Bytes() []byte {
	var sb strings.Builder
	for _, e := range r.entries {
		sb.WriteString(e.Line())
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}
