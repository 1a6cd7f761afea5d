package protocol

import (
	"encoding/json"
	"io"
	"net/http"
)

// HTTPHandler serves the /mcp endpoint: one JSON-RPC request body per
// POST, one JSON-RPC response body per reply. The SSE transport variant
// wraps the same dispatch loop over a streamed connection and is
// constructed separately by the caller (cmd/hubd) since it requires a
// flushing writer the plain http.Handler signature doesn't guarantee.
func (s *Server) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		resp := s.Dispatch(r.Context(), body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	})
}
