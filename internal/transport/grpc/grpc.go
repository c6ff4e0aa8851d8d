// Package grpc implements the gRPC transport for the respeecher daemon.
//
// The service respeecher.v1.Synthesis is declared by hand and carries the
// message package types as JSON (content-subtype "json"), so callers need no
// generated stubs. The standard grpc.health.v1 service is registered next to it.
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/respeecher/internal/message"
	"github.com/nadzzz/respeecher/internal/transport"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "respeecher.v1.Synthesis"

// Full method names, usable with grpc.ClientConn.Invoke.
const (
	SynthesizeMethod = "/" + ServiceName + "/Synthesize"
	VoicesMethod     = "/" + ServiceName + "/Voices"
)

// VoicesRequest is the empty request of the Voices method.
type VoicesRequest struct{}

// VoicesResponse wraps the voice catalogue.
type VoicesResponse struct {
	Voices []message.VoiceInfo `json:"voices"`
}

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	server *grpc.Server
	health *health.Server
}

var _ transport.Transport = (*Transport)(nil)

// New creates a new gRPC transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Register adds the synthesis and health services to s.
func (t *Transport) Register(s *grpc.Server, handler transport.Handler) {
	s.RegisterService(&serviceDesc, &service{handler: handler})

	t.health = health.NewServer()
	t.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, t.health)
}

// Listen starts the gRPC server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	t.server = grpc.NewServer()
	t.Register(t.server, handler)

	slog.Info("grpc transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.health.Shutdown()
		t.server.GracefulStop()
	}()

	return t.server.Serve(lis)
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}

// synthesisServer is the handler type checked by RegisterService.
type synthesisServer interface {
	Synthesize(ctx context.Context, req *message.SynthesisRequest) (*message.SynthesisResult, error)
	Voices(ctx context.Context, req *VoicesRequest) (*VoicesResponse, error)
}

type service struct {
	handler transport.Handler
}

func (s *service) Synthesize(ctx context.Context, req *message.SynthesisRequest) (*message.SynthesisResult, error) {
	result, err := s.handler.Synthesize(ctx, req)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "synthesis: %v", err)
	}
	return result, nil
}

func (s *service) Voices(ctx context.Context, _ *VoicesRequest) (*VoicesResponse, error) {
	voices, err := s.handler.Voices(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "listing voices: %v", err)
	}
	return &VoicesResponse{Voices: voices}, nil
}

func synthesizeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(message.SynthesisRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(synthesisServer).Synthesize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SynthesizeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(synthesisServer).Synthesize(ctx, req.(*message.SynthesisRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func voicesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(VoicesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(synthesisServer).Voices(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: VoicesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(synthesisServer).Voices(ctx, req.(*VoicesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*synthesisServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Synthesize", Handler: synthesizeHandler},
		{MethodName: "Voices", Handler: voicesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "respeecher/v1/synthesis",
}
