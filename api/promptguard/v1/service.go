// Package promptguardv1 defines the promptguard.v1.SafetyService gRPC API.
//
// Every RPC carries a google.protobuf.Struct whose fields follow the JSON
// encoding of the request and result types below, so the service needs no
// generated message code.
package promptguardv1

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ppiankov/promptguard/internal/model"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "promptguard.v1.SafetyService"

// CheckInputRequest is the CheckInput payload.
type CheckInputRequest struct {
	Query string `json:"query"`
}

// CheckOutputRequest is the CheckOutput payload.
type CheckOutputRequest struct {
	Response string         `json:"response"`
	Sources  []model.Source `json:"sources,omitempty"`
}

// ClearEventsResponse reports how many events were dropped.
type ClearEventsResponse struct {
	Cleared int `json:"cleared"`
}

// Encode converts v to a Struct through its JSON form.
func Encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return s, nil
}

// Decode fills v from a Struct through its JSON form. A nil Struct leaves v untouched.
func Decode(s *structpb.Struct, v any) error {
	if s == nil {
		return nil
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// SafetyServiceServer is the server API for SafetyService.
type SafetyServiceServer interface {
	CheckInput(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckOutput(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClearEvents(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterSafetyServiceServer registers srv on s.
func RegisterSafetyServiceServer(s grpc.ServiceRegistrar, srv SafetyServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type unaryMethod func(SafetyServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SafetyServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(SafetyServiceServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ServiceDesc is the grpc.ServiceDesc for SafetyService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SafetyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		handler("CheckInput", SafetyServiceServer.CheckInput),
		handler("CheckOutput", SafetyServiceServer.CheckOutput),
		handler("Stats", SafetyServiceServer.Stats),
		handler("ClearEvents", SafetyServiceServer.ClearEvents),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "promptguard/v1/safety.proto",
}

// SafetyServiceClient is the client API for SafetyService.
type SafetyServiceClient interface {
	CheckInput(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	CheckOutput(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Stats(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ClearEvents(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type safetyServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSafetyServiceClient wraps a connection.
func NewSafetyServiceClient(cc grpc.ClientConnInterface) SafetyServiceClient {
	return &safetyServiceClient{cc: cc}
}

func (c *safetyServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *safetyServiceClient) CheckInput(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CheckInput", in, opts...)
}

func (c *safetyServiceClient) CheckOutput(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CheckOutput", in, opts...)
}

func (c *safetyServiceClient) Stats(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Stats", in, opts...)
}

func (c *safetyServiceClient) ClearEvents(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ClearEvents", in, opts...)
}
