// Package rpc exposes plain Go handlers as gRPC methods. Requests and
// responses travel as google.protobuf.Struct documents whose fields follow
// the JSON tags of the Go types.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	svcErr "github.com/oggyb/ffm-club/internal/errors"
)

// Encode converts v into a Struct. v must marshal to a JSON object.
func Encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return s, nil
}

// Decode fills v from s. A nil Struct decodes as an empty object.
func Decode(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	raw, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// Service groups the methods of one gRPC service.
type Service struct {
	Name    string
	Methods []grpc.MethodDesc
	Streams []grpc.StreamDesc
}

// Desc builds the descriptor for grpc.Server.RegisterService. Handlers are
// closures, so the registered implementation value is not used. Metadata
// names the proto file registered for reflection. Desc panics when the
// method names cannot form a valid descriptor.
func (s Service) Desc() *grpc.ServiceDesc {
	file, err := describe(s)
	if err != nil {
		panic(err)
	}
	return &grpc.ServiceDesc{
		ServiceName: s.Name,
		HandlerType: (*any)(nil),
		Methods:     s.Methods,
		Streams:     s.Streams,
		Metadata:    file,
	}
}

// FullMethod returns "/service/method".
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

// Unary adapts fn into a unary method of service.
func Unary[In, Out any](service, method string, fn func(ctx context.Context, in *In) (*Out, error)) grpc.MethodDesc {
	full := FullMethod(service, method)
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(structpb.Struct)
			if err := dec(req); err != nil {
				return nil, err
			}
			call := func(ctx context.Context, req any) (any, error) {
				var in In
				if err := Decode(req.(*structpb.Struct), &in); err != nil {
					return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
				}
				out, err := fn(ctx, &in)
				if err != nil {
					return nil, svcErr.Map(err)
				}
				resp, err := Encode(out)
				if err != nil {
					return nil, status.Error(codes.Internal, err.Error())
				}
				return resp, nil
			}
			if interceptor == nil {
				return call(ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			return interceptor(ctx, req, info, call)
		},
	}
}

// ServerStream adapts fn into a server-streaming method. fn pushes values
// through send and returns when the stream should end.
func ServerStream[In, Out any](method string, fn func(ctx context.Context, in *In, send func(*Out) error) error) grpc.StreamDesc {
	return grpc.StreamDesc{
		StreamName:    method,
		ServerStreams: true,
		Handler: func(_ any, stream grpc.ServerStream) error {
			req := new(structpb.Struct)
			if err := stream.RecvMsg(req); err != nil {
				return err
			}
			var in In
			if err := Decode(req, &in); err != nil {
				return status.Errorf(codes.InvalidArgument, "decode request: %v", err)
			}
			send := func(out *Out) error {
				msg, err := Encode(out)
				if err != nil {
					return status.Error(codes.Internal, err.Error())
				}
				return stream.SendMsg(msg)
			}
			return svcErr.Map(fn(stream.Context(), &in, send))
		},
	}
}

// Invoke calls a unary method on cc and decodes the response into Out.
func Invoke[Out any](ctx context.Context, cc grpc.ClientConnInterface, fullMethod string, in any, opts ...grpc.CallOption) (*Out, error) {
	req, err := Encode(in)
	if err != nil {
		return nil, err
	}
	resp := new(structpb.Struct)
	if err := cc.Invoke(ctx, fullMethod, req, resp, opts...); err != nil {
		return nil, err
	}
	var out Out
	if err := Decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stream opens a server-streaming call and returns a receive function that
// decodes each message into Out.
func Stream[Out any](ctx context.Context, cc grpc.ClientConnInterface, fullMethod string, in any, opts ...grpc.CallOption) (func() (*Out, error), error) {
	req, err := Encode(in)
	if err != nil {
		return nil, err
	}
	desc := &grpc.StreamDesc{ServerStreams: true}
	cs, err := cc.NewStream(ctx, desc, fullMethod, opts...)
	if err != nil {
		return nil, err
	}
	if err := cs.SendMsg(req); err != nil {
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		return nil, err
	}
	return func() (*Out, error) {
		msg := new(structpb.Struct)
		if err := cs.RecvMsg(msg); err != nil {
			return nil, err
		}
		var out Out
		if err := Decode(msg, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}, nil
}
