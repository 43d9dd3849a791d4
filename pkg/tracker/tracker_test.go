package tracker

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"deptrack/pkg/aggregate"
	"deptrack/pkg/artifact"
	"deptrack/pkg/fingerprint"
	"deptrack/pkg/ignore"
	"deptrack/pkg/meta"
	"deptrack/pkg/storage"
	"deptrack/pkg/storage/disk"
	"deptrack/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUnit = types.Coordinates{GroupID: "org.acme", ArtifactID: "app", Version: "1.0"}

type fakeLedger struct {
	mu    sync.Mutex
	units []meta.UnitRecord
	runs  []types.Result
}

func (f *fakeLedger) RecordUnit(ctx context.Context, rec meta.UnitRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.units = append(f.units, rec)
	return nil
}

func (f *fakeLedger) RecordRun(ctx context.Context, runID string, parent types.Coordinates, results []types.Result, aggregated types.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, aggregated)
	return nil
}

func deps() []fingerprint.Descriptor {
	return []fingerprint.Descriptor{
		{ID: "org.acme:b:jar:1", Source: fingerprint.BytesSource("bbb")},
		{ID: "org.acme:a:jar:1", Source: fingerprint.BytesSource("aaa")},
	}
}

func newStore(t *testing.T, remote storage.Repository, unit types.Coordinates) *artifact.Store {
	return artifact.NewStore(remote, unit, filepath.Join(t.TempDir(), "target"), unit.ArtifactID+"-"+unit.Version)
}

func newRemote(t *testing.T) storage.Repository {
	remote, err := disk.NewAdapter(t.TempDir())
	require.NoError(t, err)
	return remote
}

func TestTrack_ReportOnly(t *testing.T) {
	store := newStore(t, nil, testUnit)
	tr := New(fingerprint.NewFingerprinter(2), nil, nil)

	out, err := tr.Track(context.Background(), Unit{Store: store, Dependencies: deps()}, Options{})
	require.NoError(t, err)

	assert.False(t, out.Compared)
	content, err := os.ReadFile(out.ReportPath)
	require.NoError(t, err)
	want := "org.acme:a:jar:1=" + string(fingerprint.HashBytes([]byte("aaa"))) + "\n" +
		"org.acme:b:jar:1=" + string(fingerprint.HashBytes([]byte("bbb"))) + "\n"
	assert.Equal(t, want, string(content))
}

func TestTrack_CompareLifecycle(t *testing.T) {
	ctx := context.Background()
	remote := newRemote(t)
	ledger := &fakeLedger{}
	tr := New(fingerprint.NewFingerprinter(2), ledger, nil)

	// 1. 第一次: 没有基线，发布
	out, err := tr.Track(ctx, Unit{Store: newStore(t, remote, testUnit), Dependencies: deps()}, Options{Compare: true, Publish: true})
	require.NoError(t, err)
	assert.Equal(t, types.NoBaseline, out.Result)

	// 2. 第二次: 相同依赖 -> Match
	out, err = tr.Track(ctx, Unit{Store: newStore(t, remote, testUnit), Dependencies: deps()}, Options{Compare: true})
	require.NoError(t, err)
	assert.Equal(t, types.Match, out.Result)

	// 3. 第三次: 内容变化 -> Differs
	changed := deps()
	changed[0].Source = fingerprint.BytesSource("bbb-patched")
	store := newStore(t, remote, testUnit)
	out, err = tr.Track(ctx, Unit{Store: store, Dependencies: changed}, Options{Compare: true})
	require.NoError(t, err)
	assert.Equal(t, types.Differs, out.Result)

	data, err := os.ReadFile(store.ResultPath())
	require.NoError(t, err)
	assert.Equal(t, "1", string(data))

	require.Len(t, ledger.units, 3)
	assert.Equal(t, 2, ledger.units[0].Dependencies)
	assert.True(t, ledger.units[0].ReportDigest.IsValid())
	assert.Equal(t, ledger.units[0].ReportDigest, ledger.units[1].ReportDigest)
	assert.NotEqual(t, ledger.units[1].ReportDigest, ledger.units[2].ReportDigest)
}

func TestTrack_ExcludedDependenciesDoNotAffectReport(t *testing.T) {
	m, err := ignore.NewMatcher(t.TempDir(), "org.acme:b:*")
	require.NoError(t, err)

	store := newStore(t, nil, testUnit)
	out, err := New(fingerprint.NewFingerprinter(1), nil, nil).
		Track(context.Background(), Unit{Store: store, Dependencies: deps(), Exclude: m}, Options{})
	require.NoError(t, err)

	require.Equal(t, 1, out.Report.Len())
	assert.Equal(t, types.DependencyID("org.acme:a:jar:1"), out.Report.Entries()[0].ID)
}

func TestTrack_UnreadableDependencyFailsUnit(t *testing.T) {
	store := newStore(t, nil, testUnit)
	bad := append(deps(), fingerprint.Descriptor{ID: "x:y:jar:1", Source: fingerprint.FileSource(filepath.Join(t.TempDir(), "missing.jar"))})

	_, err := New(fingerprint.NewFingerprinter(2), nil, nil).
		Track(context.Background(), Unit{Store: store, Dependencies: bad}, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, fingerprint.ErrUnreadable)

	_, statErr := os.Stat(store.ReportPath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestTrack_CompareWithoutRemoteFails(t *testing.T) {
	_, err := New(fingerprint.NewFingerprinter(1), nil, nil).
		Track(context.Background(), Unit{Store: newStore(t, nil, testUnit), Dependencies: deps()}, Options{Compare: true})
	assert.Error(t, err)
}

func TestTrack_MultiUnitAggregation(t *testing.T) {
	ctx := context.Background()
	remote := newRemote(t)
	parentDir := filepath.Join(t.TempDir(), "parent", "target")
	ledger := &fakeLedger{}

	run := &Run{
		ID:               "run-1",
		Parent:           types.Coordinates{GroupID: "org.acme", ArtifactID: "parent", Version: "1.0"},
		ExpectedChildren: 2,
		Target:           aggregate.Target{Dir: parentDir, BuildName: "parent-1.0"},
		Submitter:        LocalSubmitter{Aggregator: aggregate.NewAggregator(nil)},
	}
	tr := New(fingerprint.NewFingerprinter(2), ledger, run)

	units := []types.Coordinates{
		{GroupID: "org.acme", ArtifactID: "child-a", Version: "1.0"},
		{GroupID: "org.acme", ArtifactID: "child-b", Version: "1.0"},
		run.Parent,
	}
	aggPath := filepath.Join(parentDir, "parent-1.0-comparison-all.txt")

	var fired []*aggregate.Outcome
	for i, u := range units {
		out, err := tr.Track(ctx, Unit{Store: newStore(t, remote, u), Dependencies: deps()}, Options{Compare: true})
		require.NoError(t, err)
		if out.Aggregate != nil {
			fired = append(fired, out.Aggregate)
		}
		if i < len(units)-1 {
			_, statErr := os.Stat(aggPath)
			assert.True(t, os.IsNotExist(statErr), "aggregated file must not exist before all units report")
		}
	}

	require.Len(t, fired, 1)
	assert.Equal(t, types.NoBaseline, fired[0].Result)
	data, err := os.ReadFile(aggPath)
	require.NoError(t, err)
	assert.Equal(t, "-1", string(data))
	assert.Equal(t, []types.Result{types.NoBaseline}, ledger.runs)
}
