package meta

import (
	"encoding/json"
	"time"

	"deptrack/pkg/types"

	"gorm.io/datatypes"
)

// UnitResult 单个单元一次比较的记录
type UnitResult struct {
	ID uint `gorm:"primaryKey"`

	// RunID 单单元构建时为空
	RunID string `gorm:"index;type:varchar(128)"`

	GroupID    string `gorm:"index:idx_unit_coords;type:varchar(255);not null"`
	ArtifactID string `gorm:"index:idx_unit_coords;type:varchar(255);not null"`
	Version    string `gorm:"index:idx_unit_coords;type:varchar(128);not null"`

	// ReportDigest 报告文件本身的 SHA-1，方便排查两次构建到底差在哪
	ReportDigest string `gorm:"type:char(40)"`
	Dependencies int
	Result       int `gorm:"not null"`

	CreatedAt time.Time `gorm:"index"`
}

// RunModel 一次多单元构建的聚合结果
type RunModel struct {
	RunID string `gorm:"primaryKey;type:varchar(128)"`

	ParentGroupID    string `gorm:"type:varchar(255)"`
	ParentArtifactID string `gorm:"type:varchar(255)"`
	ParentVersion    string `gorm:"type:varchar(128)"`

	Result int `gorm:"not null"`
	Units  int

	// Results 按记录顺序的各单元结果，例如 [0, 1, 0]
	Results datatypes.JSON

	CreatedAt time.Time `gorm:"index"`
}

// TableName 强制指定表名
func (RunModel) TableName() string {
	return "runs"
}

// ResultList 解码 Results 列
func (r *RunModel) ResultList() ([]types.Result, error) {
	if len(r.Results) == 0 {
		return nil, nil
	}
	var out []types.Result
	if err := json.Unmarshal(r.Results, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Models 需要迁移的全部表
func Models() []any {
	return []any{&UnitResult{}, &RunModel{}}
}
