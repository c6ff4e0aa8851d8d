// Package http implements the HTTP transport for the respeecher daemon.
//
// This transport exposes a small REST API for synthesis and the voice
// catalogue, plus the Swagger UI. It is best suited for web clients and
// services that prefer HTTP-based communication.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/nadzzz/respeecher/docs" // registers the OpenAPI spec
	"github.com/nadzzz/respeecher/internal/dispatch"
	"github.com/nadzzz/respeecher/internal/message"
	"github.com/nadzzz/respeecher/internal/transport"
)

// maxBodyBytes bounds the JSON request body.
const maxBodyBytes = 1 << 20

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port   int
	server *http.Server
}

var _ transport.Transport = (*Transport)(nil)

// New creates a new HTTP transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Routes returns the HTTP routes backed by handler.
func (t *Transport) Routes(handler transport.Handler) http.Handler {
	mux := http.NewServeMux()

	// POST /synthesize: text in, recording URL or audio out.
	mux.HandleFunc("POST /synthesize", func(w http.ResponseWriter, r *http.Request) {
		t.handleSynthesize(w, r, handler)
	})

	// GET /voices: the selectable voice catalogue.
	mux.HandleFunc("GET /voices", func(w http.ResponseWriter, r *http.Request) {
		t.handleVoices(w, r, handler)
	})

	// Swagger UI: serves the registered OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// Listen starts the HTTP server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Routes(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// handleSynthesize processes a POST /synthesize request.
//
// @Summary     Synthesize text with a Respeecher voice
// @Description Submits the text, orders one conversion and waits for it. The response carries the
// @Description recording URL and, unless direct_link is set, the decoded audio as base64 WAV.
// @Description Send "Accept: audio/wav" to receive the WAV bytes directly.
// @Tags        synthesis
// @Accept      json
// @Produce     json
// @Produce     audio/wav
// @Param       request  body      message.SynthesisRequest  true  "Synthesis request"
// @Success     200  {object}  message.SynthesisResult  "Finished conversion"
// @Failure     400  {object}  message.SynthesisResult  "Invalid request"
// @Failure     404  {object}  message.SynthesisResult  "Unknown voice or narration style"
// @Failure     502  {object}  message.SynthesisResult  "Conversion or backend failure"
// @Failure     504  {object}  message.SynthesisResult  "Conversion still pending at the deadline"
// @Router      /synthesize [post]
func (t *Transport) handleSynthesize(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	var req message.SynthesisRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if source := r.Header.Get("X-Respeecher-Source"); source != "" && req.Source == "" {
		req.Source = source
	}

	result, err := handler.Synthesize(r.Context(), &req)
	if err != nil {
		slog.Error("synthesis failed", "error", err)
		http.Error(w, "synthesis error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if !result.Failed() && result.Audio != "" && r.Header.Get("Accept") == "audio/wav" {
		data, err := result.AudioBytes()
		if err != nil {
			http.Error(w, "encoding audio: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Header().Set("X-Respeecher-Conversion-Id", result.ConversionID)
		_, _ = w.Write(data)
		return
	}

	writeJSON(w, statusFor(result), result)
}

// handleVoices processes a GET /voices request.
//
// @Summary     List voices
// @Description Returns every voice that has at least one narration style.
// @Tags        voices
// @Produce     json
// @Success     200  {array}   message.VoiceInfo  "Voice catalogue"
// @Failure     502  {string}  string  "Backend failure"
// @Router      /voices [get]
func (t *Transport) handleVoices(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	voices, err := handler.Voices(r.Context())
	if err != nil {
		slog.Error("listing voices failed", "error", err)
		http.Error(w, "listing voices: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, voices)
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

func statusFor(result *message.SynthesisResult) int {
	switch result.ErrorKind {
	case "":
		return http.StatusOK
	case dispatch.KindInvalid:
		return http.StatusBadRequest
	case dispatch.KindNotFound:
		return http.StatusNotFound
	case dispatch.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
