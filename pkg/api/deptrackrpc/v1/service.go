package deptrackrpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "deptrack.v1.AggregationService"

const (
	AggregationService_BeginRun_FullMethodName = "/" + ServiceName + "/BeginRun"
	AggregationService_Submit_FullMethodName   = "/" + ServiceName + "/Submit"
	AggregationService_EndRun_FullMethodName   = "/" + ServiceName + "/EndRun"
	AggregationService_GetRun_FullMethodName   = "/" + ServiceName + "/GetRun"
)

// AggregationServiceServer 协调服务需要实现的接口
type AggregationServiceServer interface {
	BeginRun(context.Context, *BeginRunRequest) (*BeginRunResponse, error)
	Submit(context.Context, *SubmitRequest) (*SubmitResponse, error)
	EndRun(context.Context, *EndRunRequest) (*EndRunResponse, error)
	GetRun(context.Context, *GetRunRequest) (*GetRunResponse, error)
}

func RegisterAggregationServiceServer(s grpc.ServiceRegistrar, srv AggregationServiceServer) {
	s.RegisterService(&AggregationService_ServiceDesc, srv)
}

// unaryHandler 解码请求并经过拦截器链调用 call
func unaryHandler[Req, Resp any](fullMethod string, call func(AggregationServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AggregationServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AggregationServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var AggregationService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AggregationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "BeginRun",
			Handler:    unaryHandler(AggregationService_BeginRun_FullMethodName, AggregationServiceServer.BeginRun),
		},
		{
			MethodName: "Submit",
			Handler:    unaryHandler(AggregationService_Submit_FullMethodName, AggregationServiceServer.Submit),
		},
		{
			MethodName: "EndRun",
			Handler:    unaryHandler(AggregationService_EndRun_FullMethodName, AggregationServiceServer.EndRun),
		},
		{
			MethodName: "GetRun",
			Handler:    unaryHandler(AggregationService_GetRun_FullMethodName, AggregationServiceServer.GetRun),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "deptrack/v1/aggregation",
}

// AggregationServiceClient 客户端存根，所有调用强制使用 CBOR 编码
type AggregationServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAggregationServiceClient(cc grpc.ClientConnInterface) *AggregationServiceClient {
	return &AggregationServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AggregationServiceClient) BeginRun(ctx context.Context, in *BeginRunRequest, opts ...grpc.CallOption) (*BeginRunResponse, error) {
	return invoke[BeginRunResponse](ctx, c.cc, AggregationService_BeginRun_FullMethodName, in, opts)
}

func (c *AggregationServiceClient) Submit(ctx context.Context, in *SubmitRequest, opts ...grpc.CallOption) (*SubmitResponse, error) {
	return invoke[SubmitResponse](ctx, c.cc, AggregationService_Submit_FullMethodName, in, opts)
}

func (c *AggregationServiceClient) EndRun(ctx context.Context, in *EndRunRequest, opts ...grpc.CallOption) (*EndRunResponse, error) {
	return invoke[EndRunResponse](ctx, c.cc, AggregationService_EndRun_FullMethodName, in, opts)
}

func (c *AggregationServiceClient) GetRun(ctx context.Context, in *GetRunRequest, opts ...grpc.CallOption) (*GetRunResponse, error) {
	return invoke[GetRunResponse](ctx, c.cc, AggregationService_GetRun_FullMethodName, in, opts)
}
