package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The control service uses protobuf well-known types only, so no generated code is needed.
// Proto equivalent:
//
//	service ScanControl {
//	  rpc StartScan(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  rpc StopScan(google.protobuf.Empty) returns (google.protobuf.Struct);
//	  rpc GetStatus(google.protobuf.Empty) returns (google.protobuf.Struct);
//	  rpc GetHistory(google.protobuf.StringValue) returns (google.protobuf.Struct);
//	}
const ServiceName = "alpharadar.ScanControl"

const (
	StartScanMethod  = "/" + ServiceName + "/StartScan"
	StopScanMethod   = "/" + ServiceName + "/StopScan"
	GetStatusMethod  = "/" + ServiceName + "/GetStatus"
	GetHistoryMethod = "/" + ServiceName + "/GetHistory"
)

// ScanControlServer is the server API for the ScanControl service.
type ScanControlServer interface {
	StartScan(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StopScan(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetHistory(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

// RegisterScanControlServer attaches the service to a gRPC server.
func RegisterScanControlServer(s grpc.ServiceRegistrar, srv ScanControlServer) {
	s.RegisterService(&ScanControl_ServiceDesc, srv)
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

func _ScanControl_StartScan_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScanControlServer).StartScan(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: StartScanMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ScanControlServer).StartScan(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _ScanControl_StopScan_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScanControlServer).StopScan(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: StopScanMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ScanControlServer).StopScan(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _ScanControl_GetStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScanControlServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetStatusMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ScanControlServer).GetStatus(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _ScanControl_GetHistory_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScanControlServer).GetHistory(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetHistoryMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ScanControlServer).GetHistory(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// ScanControl_ServiceDesc is the grpc.ServiceDesc for the ScanControl service.
var ScanControl_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ScanControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartScan", Handler: _ScanControl_StartScan_Handler},
		{MethodName: "StopScan", Handler: _ScanControl_StopScan_Handler},
		{MethodName: "GetStatus", Handler: _ScanControl_GetStatus_Handler},
		{MethodName: "GetHistory", Handler: _ScanControl_GetHistory_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "alpharadar/scan_control.proto",
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

// ScanControlClient calls the ScanControl service.
type ScanControlClient struct {
	cc grpc.ClientConnInterface
}

func NewScanControlClient(cc grpc.ClientConnInterface) *ScanControlClient {
	return &ScanControlClient{cc: cc}
}

func (c *ScanControlClient) StartScan(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, StartScanMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ScanControlClient) StopScan(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, StopScanMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ScanControlClient) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetStatusMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ScanControlClient) GetHistory(ctx context.Context, symbol string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetHistoryMethod, wrapperspb.String(symbol), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
