// Package transport defines the interface for pluggable request transports.
//
// Each transport (gRPC, HTTP) implements this interface and hands every
// decoded request to the same Handler. The dispatcher doesn't care how
// requests arrive; it only works with the Handler contract.
package transport

import (
	"context"

	"github.com/nadzzz/respeecher/internal/message"
)

// Handler processes requests on behalf of a transport. The dispatcher implements it.
type Handler interface {
	// Synthesize runs one request to completion. Synthesis failures are
	// reported in the result; a non-nil error means the request could not be
	// handled at all.
	Synthesize(ctx context.Context, req *message.SynthesisRequest) (*message.SynthesisResult, error)

	// Voices lists the selectable voices.
	Voices(ctx context.Context) ([]message.VoiceInfo, error)
}

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http").
	Name() string

	// Listen starts accepting requests and passes them to the handler.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, handler Handler) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
