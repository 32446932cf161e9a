// Package rpc exposes an engine over gRPC. Messages are google.protobuf.Struct
// values carrying the same JSON shapes the engine's types already marshal to,
// so the service needs no generated code.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "affect.v1.AffectService"

const (
	methodUpdate       = "Update"
	methodCurrentState = "CurrentState"
	methodReport       = "Report"
	methodExport       = "Export"
	methodReset        = "Reset"
	methodIngest       = "Ingest"
)

// #region server-interface
// AffectServiceServer is the server side of the service.
type AffectServiceServer interface {
	Update(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CurrentState(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Report(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Export(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Reset(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Ingest(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterAffectServiceServer attaches srv to a gRPC server.
func RegisterAffectServiceServer(s grpc.ServiceRegistrar, srv AffectServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

type unaryFunc func(context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(method string, pick func(AffectServiceServer) unaryFunc) grpc.MethodHandler {
	full := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		call := pick(srv.(AffectServiceServer))
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(ctx, req.(*structpb.Struct))
		})
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AffectServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: methodUpdate, Handler: handler(methodUpdate, func(s AffectServiceServer) unaryFunc { return s.Update })},
		{MethodName: methodCurrentState, Handler: handler(methodCurrentState, func(s AffectServiceServer) unaryFunc { return s.CurrentState })},
		{MethodName: methodReport, Handler: handler(methodReport, func(s AffectServiceServer) unaryFunc { return s.Report })},
		{MethodName: methodExport, Handler: handler(methodExport, func(s AffectServiceServer) unaryFunc { return s.Export })},
		{MethodName: methodReset, Handler: handler(methodReset, func(s AffectServiceServer) unaryFunc { return s.Reset })},
		{MethodName: methodIngest, Handler: handler(methodIngest, func(s AffectServiceServer) unaryFunc { return s.Ingest })},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "affect/v1/affect.proto",
}

// #endregion server-interface

// #region client-interface
// AffectServiceClient is the client side of the service.
type AffectServiceClient interface {
	Update(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	CurrentState(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Report(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Export(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Reset(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Ingest(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type affectServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAffectServiceClient wraps a connection.
func NewAffectServiceClient(cc grpc.ClientConnInterface) AffectServiceClient {
	return &affectServiceClient{cc: cc}
}

func (c *affectServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *affectServiceClient) Update(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodUpdate, in, opts)
}

func (c *affectServiceClient) CurrentState(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodCurrentState, in, opts)
}

func (c *affectServiceClient) Report(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodReport, in, opts)
}

func (c *affectServiceClient) Export(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodExport, in, opts)
}

func (c *affectServiceClient) Reset(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodReset, in, opts)
}

func (c *affectServiceClient) Ingest(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodIngest, in, opts)
}

// #endregion client-interface

// #region codec
// toStruct converts any JSON-marshalable value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("message is not an object: %w", err)
	}
	return structpb.NewStruct(m)
}

// fromStruct decodes a Struct into v through its JSON form.
func fromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	raw, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal struct: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}

// #endregion codec
