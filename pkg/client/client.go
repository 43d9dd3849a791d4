package client

import (
	"context"
	"fmt"
	"time"

	deptrackrpc "deptrack/pkg/api/deptrackrpc/v1"
	"deptrack/pkg/aggregate"
	"deptrack/pkg/types"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// Client 封装与协调服务 (deptrack-server) 的连接
type Client struct {
	conn *grpc.ClientConn

	Aggregation *deptrackrpc.AggregationServiceClient
}

// NewClient 立即返回，连接在后台建立；地址不通会在第一次调用时报错
func NewClient(addr string, extra ...grpc.DialOption) (*Client, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             20 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	opts = append(opts, extra...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", addr, err)
	}

	return &Client{
		conn:        conn,
		Aggregation: deptrackrpc.NewAggregationServiceClient(conn),
	}, nil
}

// Close 关闭底层连接
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// RunSubmitter 把一个单元绑定到协调服务上的某次运行，实现 tracker.Submitter
type RunSubmitter struct {
	client *Client
	runID  string
	parent types.Coordinates
	unit   types.Coordinates
}

func (c *Client) Submitter(runID string, parent, unit types.Coordinates) *RunSubmitter {
	return &RunSubmitter{client: c, runID: runID, parent: parent, unit: unit}
}

func (s *RunSubmitter) Begin(ctx context.Context, expectedChildren int, target aggregate.Target) error {
	_, err := s.client.Aggregation.BeginRun(ctx, &deptrackrpc.BeginRunRequest{
		RunID:            s.runID,
		ExpectedChildren: int32(expectedChildren),
		Parent:           s.parent,
		ParentDir:        target.Dir,
		ParentBuildName:  target.BuildName,
	})
	if err != nil {
		return fmt.Errorf("begin run %s: %w", s.runID, err)
	}
	return nil
}

func (s *RunSubmitter) Submit(ctx context.Context, result types.Result) (aggregate.Outcome, error) {
	resp, err := s.client.Aggregation.Submit(ctx, &deptrackrpc.SubmitRequest{
		RunID:  s.runID,
		Unit:   s.unit,
		Result: int32(result),
	})
	if err != nil {
		return aggregate.Outcome{}, fmt.Errorf("submit to run %s: %w", s.runID, err)
	}

	out := aggregate.Outcome{
		Ready:    resp.Ready,
		Result:   types.Result(resp.Result),
		Path:     resp.Path,
		Recorded: int(resp.Recorded),
		Expected: int(resp.Expected),
	}
	for _, r := range resp.Results {
		out.Results = append(out.Results, types.Result(r))
	}
	return out, nil
}

// EndRun 构建失败或取消时释放服务端会话
func (c *Client) EndRun(ctx context.Context, runID string) (bool, error) {
	resp, err := c.Aggregation.EndRun(ctx, &deptrackrpc.EndRunRequest{RunID: runID})
	if err != nil {
		return false, err
	}
	return resp.Existed, nil
}

// End 释放本单元所属运行的服务端会话
func (s *RunSubmitter) End(ctx context.Context) (bool, error) {
	return s.client.EndRun(ctx, s.runID)
}
