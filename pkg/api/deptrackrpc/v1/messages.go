package deptrackrpc

import "deptrack/pkg/types"

type BeginRunRequest struct {
	RunID            string            `cbor:"run_id"`
	ExpectedChildren int32             `cbor:"expected_children"`
	Parent           types.Coordinates `cbor:"parent"`
	ParentDir        string            `cbor:"parent_dir"`
	ParentBuildName  string            `cbor:"parent_build_name"`
}

type BeginRunResponse struct {
	// Created 为 false 表示会话已由其它单元建立
	Created bool `cbor:"created"`
}

type SubmitRequest struct {
	RunID  string            `cbor:"run_id"`
	Unit   types.Coordinates `cbor:"unit"`
	Result int32             `cbor:"result"`
}

type SubmitResponse struct {
	Ready    bool    `cbor:"ready"`
	Result   int32   `cbor:"result"`
	Path     string  `cbor:"path,omitempty"`
	Results  []int32 `cbor:"results,omitempty"`
	Recorded int32   `cbor:"recorded"`
	Expected int32   `cbor:"expected"`
}

type EndRunRequest struct {
	RunID string `cbor:"run_id"`
}

type EndRunResponse struct {
	Existed bool `cbor:"existed"`
}

type GetRunRequest struct {
	RunID string `cbor:"run_id"`
}

type GetRunResponse struct {
	Parent  types.Coordinates `cbor:"parent"`
	Result  int32             `cbor:"result"`
	Units   int32             `cbor:"units"`
	Results []int32           `cbor:"results"`
}

// GetRunID 供拦截器在日志里带上 run_id
func (r *BeginRunRequest) GetRunID() string { return r.RunID }

func (r *SubmitRequest) GetRunID() string { return r.RunID }

func (r *EndRunRequest) GetRunID() string { return r.RunID }

func (r *GetRunRequest) GetRunID() string { return r.RunID }
