package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	deptrackrpc "deptrack/pkg/api/deptrackrpc/v1"
	"deptrack/pkg/aggregate"
	"deptrack/pkg/meta"
	"deptrack/pkg/types"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RunLedger 协调服务需要的台账能力
type RunLedger interface {
	RecordRun(ctx context.Context, runID string, parent types.Coordinates, results []types.Result, aggregated types.Result) error
	GetRun(ctx context.Context, runID string) (*meta.RunModel, error)
}

// AggregationService 跨进程的聚合协调: 每个单元进程把自己的结果提交到这里，
// 收齐后在服务端一次性写出父单元的 -comparison-all.txt
type AggregationService struct {
	registry *aggregate.Registry
	ledger   RunLedger // 可以为 nil

	mu      sync.Mutex
	parents map[string]types.Coordinates
}

func NewAggregationService(registry *aggregate.Registry, ledger RunLedger) *AggregationService {
	return &AggregationService{
		registry: registry,
		ledger:   ledger,
		parents:  make(map[string]types.Coordinates),
	}
}

func (s *AggregationService) BeginRun(ctx context.Context, req *deptrackrpc.BeginRunRequest) (*deptrackrpc.BeginRunResponse, error) {
	// 1. 参数校验
	if req.RunID == "" {
		return nil, status.Error(codes.InvalidArgument, "run_id is required")
	}
	if req.ExpectedChildren < 0 {
		return nil, status.Errorf(codes.InvalidArgument, "expected_children must not be negative: %d", req.ExpectedChildren)
	}
	if req.ParentDir == "" || req.ParentBuildName == "" {
		return nil, status.Error(codes.InvalidArgument, "parent_dir and parent_build_name are required")
	}

	// 2. 只有第一个报到的单元生效
	created, err := s.registry.Begin(req.RunID, int(req.ExpectedChildren), aggregate.Target{
		Dir:       req.ParentDir,
		BuildName: req.ParentBuildName,
	})
	if errors.Is(err, aggregate.ErrRunComplete) {
		return nil, status.Error(codes.AlreadyExists, err.Error())
	}
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "begin run: %v", err)
	}
	if created {
		s.mu.Lock()
		s.parents[req.RunID] = req.Parent
		s.mu.Unlock()
	}

	return &deptrackrpc.BeginRunResponse{Created: created}, nil
}

func (s *AggregationService) Submit(ctx context.Context, req *deptrackrpc.SubmitRequest) (*deptrackrpc.SubmitResponse, error) {
	if req.RunID == "" {
		return nil, status.Error(codes.InvalidArgument, "run_id is required")
	}
	result := types.Result(req.Result)
	if !result.IsValid() {
		return nil, status.Errorf(codes.InvalidArgument, "invalid comparison result: %d", req.Result)
	}

	out, err := s.registry.Record(req.RunID, result)
	if err != nil && !out.Ready {
		return nil, toStatus(err)
	}

	resp := &deptrackrpc.SubmitResponse{
		Ready:    out.Ready,
		Recorded: int32(out.Recorded),
		Expected: int32(out.Expected),
	}
	slog.Info("unit result submitted",
		slog.String("run_id", req.RunID),
		slog.String("unit", req.Unit.String()),
		slog.String("result", result.Label()),
		slog.Int("recorded", out.Recorded),
		slog.Int("expected", out.Expected),
	)
	if !out.Ready {
		return resp, nil
	}

	// 3. 已触发: 会话在 Registry 中已被移除
	parent := s.takeParent(req.RunID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to save aggregated result: %v", err)
	}

	resp.Result = int32(out.Result)
	resp.Path = out.Path
	resp.Results = make([]int32, len(out.Results))
	for i, r := range out.Results {
		resp.Results[i] = int32(r)
	}

	if s.ledger != nil {
		if err := s.ledger.RecordRun(ctx, req.RunID, parent, out.Results, out.Result); err != nil {
			// 结果文件已经写出，台账失败只记录
			slog.Error("failed to record run in ledger", slog.String("run_id", req.RunID), slog.String("err", err.Error()))
		}
	}
	return resp, nil
}

func (s *AggregationService) EndRun(ctx context.Context, req *deptrackrpc.EndRunRequest) (*deptrackrpc.EndRunResponse, error) {
	if req.RunID == "" {
		return nil, status.Error(codes.InvalidArgument, "run_id is required")
	}
	existed := s.registry.End(req.RunID)
	s.takeParent(req.RunID)
	return &deptrackrpc.EndRunResponse{Existed: existed}, nil
}

func (s *AggregationService) GetRun(ctx context.Context, req *deptrackrpc.GetRunRequest) (*deptrackrpc.GetRunResponse, error) {
	if req.RunID == "" {
		return nil, status.Error(codes.InvalidArgument, "run_id is required")
	}
	if s.ledger == nil {
		return nil, status.Error(codes.Unimplemented, "no ledger configured")
	}

	run, err := s.ledger.GetRun(ctx, req.RunID)
	if errors.Is(err, meta.ErrRunNotFound) {
		return nil, status.Errorf(codes.NotFound, "run %s not found", req.RunID)
	}
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to read run: %v", err)
	}

	results, err := run.ResultList()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "corrupted run record: %v", err)
	}
	resp := &deptrackrpc.GetRunResponse{
		Parent: types.Coordinates{
			GroupID:    run.ParentGroupID,
			ArtifactID: run.ParentArtifactID,
			Version:    run.ParentVersion,
		},
		Result:  int32(run.Result),
		Units:   int32(run.Units),
		Results: make([]int32, len(results)),
	}
	for i, r := range results {
		resp.Results[i] = int32(r)
	}
	return resp, nil
}

func (s *AggregationService) takeParent(runID string) types.Coordinates {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.parents[runID]
	delete(s.parents, runID)
	return p
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, aggregate.ErrUnknownRun), errors.Is(err, aggregate.ErrRunNotBegun):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, aggregate.ErrRunComplete):
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		return status.Error(codes.Internal, fmt.Sprintf("record result: %v", err))
	}
}
