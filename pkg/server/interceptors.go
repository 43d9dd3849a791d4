package server

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// runScoped 带 run_id 的请求
type runScoped interface {
	GetRunID() string
}

// UnaryLoggingInterceptor 每个请求一条结构化日志
func UnaryLoggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	runID := ""
	if r, ok := req.(runScoped); ok {
		runID = r.GetRunID()
	}
	logRPC(ctx, info.FullMethod, runID, time.Since(start), err)

	return resp, err
}

func logRPC(ctx context.Context, method, runID string, duration time.Duration, err error) {
	code := status.Code(err)

	// 参数错误、会话不存在这类属于调用方问题，Warn 即可
	level := slog.LevelInfo
	switch code {
	case codes.OK:
	case codes.Internal, codes.Unknown:
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("code", code.String()),
		slog.Duration("dur", duration),
	}
	if runID != "" {
		attrs = append(attrs, slog.String("run_id", runID))
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", err.Error()))
	}
	slog.LogAttrs(ctx, level, "gRPC Request", attrs...)
}

// UnaryRecoveryInterceptor 捕获 handler 里的 panic，转成 Internal
func UnaryRecoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("🔥 PANIC RECOVERED",
				slog.String("method", info.FullMethod),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = status.Errorf(codes.Internal, "internal server error: panic recovered")
		}
	}()
	return handler(ctx, req)
}
