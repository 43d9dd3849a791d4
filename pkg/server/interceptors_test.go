package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var testInfo = &grpc.UnaryServerInfo{FullMethod: "/deptrack.v1.AggregationService/Submit"}

type scopedReq struct{ id string }

func (r scopedReq) GetRunID() string { return r.id }

func TestUnaryRecoveryInterceptor(t *testing.T) {
	_, err := UnaryRecoveryInterceptor(context.Background(), nil, testInfo, func(ctx context.Context, req any) (any, error) {
		panic("boom")
	})
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestUnaryRecoveryInterceptor_PassThrough(t *testing.T) {
	resp, err := UnaryRecoveryInterceptor(context.Background(), nil, testInfo, func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

func TestUnaryLoggingInterceptor_PreservesResult(t *testing.T) {
	wantErr := status.Error(codes.FailedPrecondition, "unknown run")

	resp, err := UnaryLoggingInterceptor(context.Background(), scopedReq{id: "run-1"}, testInfo, func(ctx context.Context, req any) (any, error) {
		return nil, wantErr
	})
	assert.Nil(t, resp)
	assert.Equal(t, wantErr, err)

	resp, err = UnaryLoggingInterceptor(context.Background(), "plain", testInfo, func(ctx context.Context, req any) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, resp)

	_, err = UnaryLoggingInterceptor(context.Background(), nil, testInfo, func(ctx context.Context, req any) (any, error) {
		return nil, errors.New("raw")
	})
	assert.Equal(t, codes.Unknown, status.Code(err))
}
