package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"deptrack/pkg/types"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRunNotFound = errors.New("run not found in ledger")
)

// Repository 封装对台账数据库的所有操作
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// UnitRecord RecordUnit 的输入
type UnitRecord struct {
	RunID        string
	Unit         types.Coordinates
	ReportDigest types.Digest
	Dependencies int
	Result       types.Result
}

// RecordUnit 记录一个单元的比较结果
func (r *Repository) RecordUnit(ctx context.Context, rec UnitRecord) error {
	model := UnitResult{
		RunID:        rec.RunID,
		GroupID:      rec.Unit.GroupID,
		ArtifactID:   rec.Unit.ArtifactID,
		Version:      rec.Unit.Version,
		ReportDigest: rec.ReportDigest.String(),
		Dependencies: rec.Dependencies,
		Result:       int(rec.Result),
	}
	if err := r.db.GetConn().WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to record unit result: %w", err)
	}
	return nil
}

// RecordRun 记录聚合结果。同一个 RunID 只保留第一次写入 (幂等)
func (r *Repository) RecordRun(ctx context.Context, runID string, parent types.Coordinates, results []types.Result, aggregated types.Result) error {
	ints := make([]int, len(results))
	for i, res := range results {
		ints[i] = int(res)
	}
	resultsJSON, err := json.Marshal(ints)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	model := RunModel{
		RunID:            runID,
		ParentGroupID:    parent.GroupID,
		ParentArtifactID: parent.ArtifactID,
		ParentVersion:    parent.Version,
		Result:           int(aggregated),
		Units:            len(results),
		Results:          datatypes.JSON(resultsJSON),
	}

	err = r.db.GetConn().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}},
			DoNothing: true,
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

func (r *Repository) GetRun(ctx context.Context, runID string) (*RunModel, error) {
	var run RunModel
	err := r.db.GetConn().WithContext(ctx).
		Where("run_id = ?", runID).
		First(&run).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// RecentUnitResults 按时间倒序列出某个单元最近的比较记录
func (r *Repository) RecentUnitResults(ctx context.Context, unit types.Coordinates, limit int) ([]UnitResult, error) {
	var rows []UnitResult
	err := r.db.GetConn().WithContext(ctx).
		Where("group_id = ? AND artifact_id = ?", unit.GroupID, unit.ArtifactID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// RunUnits 某次运行里记录过的全部单元
func (r *Repository) RunUnits(ctx context.Context, runID string) ([]UnitResult, error) {
	var rows []UnitResult
	err := r.db.GetConn().WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
