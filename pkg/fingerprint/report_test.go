package fingerprint

import (
	"testing"

	"deptrack/pkg/types"

	"github.com/stretchr/testify/assert"
)

func TestBuildReport_SortedByID(t *testing.T) {
	// 发现顺序是 B 在前
	report := BuildReport(map[types.DependencyID]types.Digest{
		"B": "hash2",
		"A": "hash1",
	})

	assert.Equal(t, []string{"A=hash1", "B=hash2"}, report.Lines())
	assert.Equal(t, "A=hash1\nB=hash2\n", string(report.Bytes()))
}

func TestBuildReport_ByteOrdering(t *testing.T) {
	report := BuildReport(map[types.DependencyID]types.Digest{
		"groupId-1:artifactId-1:type-1:version-1":  "h1",
		"agroupId-3:artifactId-3:type-3:version-3": "h3",
		"Zeta:z:jar:1":                             "hz",
		"groupId-2:artifactId-2:type-2:version-2":  "h2",
	})

	// 大写字母在 ASCII 中排在小写之前
	assert.Equal(t, []string{
		"Zeta:z:jar:1=hz",
		"agroupId-3:artifactId-3:type-3:version-3=h3",
		"groupId-1:artifactId-1:type-1:version-1=h1",
		"groupId-2:artifactId-2:type-2:version-2=h2",
	}, report.Lines())
}

func TestBuildReport_OrderIndependent(t *testing.T) {
	ids := []types.DependencyID{"c:c:jar:1", "a:a:jar:1", "b:b:jar:1", "a:a:jar:2", "d:d:pom:1"}

	var first []byte
	// 每次用不同的插入顺序构建 map
	for shift := range ids {
		m := make(map[types.DependencyID]types.Digest)
		for i := range ids {
			id := ids[(i+shift)%len(ids)]
			m[id] = HashBytes([]byte(id))
		}
		got := BuildReport(m).Bytes()
		if first == nil {
			first = got
			continue
		}
		assert.Equal(t, first, got)
	}
}

func TestBuildReport_Empty(t *testing.T) {
	report := BuildReport(nil)
	assert.Equal(t, 0, report.Len())
	assert.Empty(t, report.Bytes())
}

func TestReport_EntriesIsCopy(t *testing.T) {
	report := BuildReport(map[types.DependencyID]types.Digest{"A": "1"})
	entries := report.Entries()
	entries[0].Digest = "tampered"

	assert.Equal(t, []string{"A=1"}, report.Lines())
}
