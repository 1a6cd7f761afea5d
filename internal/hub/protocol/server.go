package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// HandlerFunc implements one JSON-RPC method. params is the raw,
// undecoded params value from the request; implementations decode it
// into their own argument type.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Middleware wraps a HandlerFunc, e.g. to inject per-session state or log
// each call.
type Middleware func(HandlerFunc) HandlerFunc

// Server is a method registry dispatched by both transports.
type Server struct {
	methods map[string]HandlerFunc
	chain   []Middleware
}

// NewServer creates an empty registry. Middlewares are applied in the
// order given, so the first one wraps outermost.
func NewServer(mw ...Middleware) *Server {
	return &Server{methods: make(map[string]HandlerFunc), chain: mw}
}

// Register binds name to fn, wrapping it with the server's middleware
// chain.
func (s *Server) Register(name string, fn HandlerFunc) {
	wrapped := fn
	for i := len(s.chain) - 1; i >= 0; i-- {
		wrapped = s.chain[i](wrapped)
	}
	s.methods[name] = wrapped
}

// Dispatch decodes, routes, and executes a single request, always
// producing a Response (never an error return) so transports can simply
// serialize the result. Notifications (request.ID == nil) still execute
// but transports should not write their response.
func (s *Server) Dispatch(ctx context.Context, raw []byte) *Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return &Response{
			JSONRPC: "2.0",
			Error:   &ResponseError{Code: CodeParseError, Message: "invalid JSON: " + err.Error()},
		}
	}
	return s.dispatchRequest(ctx, req)
}

func (s *Server) dispatchRequest(ctx context.Context, req Request) *Response {
	if req.JSONRPC != "2.0" || req.Method == "" {
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: &ResponseError{
			Code: CodeInvalidRequest, Message: "malformed JSON-RPC 2.0 request",
		}}
	}

	handler, ok := s.methods[req.Method]
	if !ok {
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: &ResponseError{
			Code: CodeMethodNotFound, Message: fmt.Sprintf("unknown method %q", req.Method),
		}}
	}

	result, err := handler(ctx, req.Params)
	if err != nil {
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: toResponseError(err)}
	}
	return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func toResponseError(err error) *ResponseError {
	var he *HandlerError
	if errors.As(err, &he) {
		return &ResponseError{Code: he.Code, Message: he.Message, Data: he.Data}
	}
	slog.Error("protocol: handler error", "err", err)
	return &ResponseError{Code: CodeInternalError, Message: err.Error()}
}
