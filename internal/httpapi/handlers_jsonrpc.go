package httpapi

import (
	"encoding/json"
	"net/http"
)

// rpcRequest is the standard JSON-RPC 2.0 envelope LMS clients send to
// /jsonrpc: params is always [playerID, command-array].
type rpcRequest struct {
	ID     any    `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type rpcResponse struct {
	ID     any            `json:"id"`
	Method string         `json:"method"`
	Result map[string]any `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// handleJSONRPC implements the slim.request JSON-RPC 2.0 surface
// (spec.md §4.8): POST a {method:"slim.request", params:[playerID,
// command]} envelope, get back {result: {...}}.
func (h *Handlers) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	resp := rpcResponse{ID: req.ID, Method: req.Method}

	if len(req.Params) < 2 {
		resp.Error = "jsonrpc: params must be [playerID, command]"
		writeJSON(w, resp)
		return
	}
	playerID, _ := req.Params[0].(string)
	command, _ := req.Params[1].([]any)

	result, err := h.Dispatcher.Dispatch(r.Context(), playerID, command)
	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, resp)
		return
	}
	resp.Result = result
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
