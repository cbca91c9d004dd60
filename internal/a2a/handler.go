package a2a

import (
	"context"
	"encoding/json"
	"net/http"
)

// SendFunc answers one incoming message with a task. It implements
// http.Handler for the JSON-RPC endpoint.
type SendFunc func(ctx context.Context, req SendMessageRequest) (*Task, error)

// NewHandler serves card at the well-known path and send at POST /.
func NewHandler(card AgentCard, send SendFunc) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+CardPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(card)
	})
	mux.Handle("POST /", send)
	return mux
}

func (send SendFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var call envelope
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		writeError(w, nil, CodeParse, "parse: "+err.Error())
		return
	}
	if call.Method != MethodSendMessage {
		writeError(w, call.ID, CodeMethodNotFound, "unknown method "+call.Method)
		return
	}
	var req SendMessageRequest
	if err := json.Unmarshal(call.Params, &req); err != nil {
		writeError(w, call.ID, CodeInvalidParams, "params: "+err.Error())
		return
	}

	task, err := send(r.Context(), req)
	if err != nil {
		writeError(w, call.ID, CodeInternal, err.Error())
		return
	}
	writeResult(w, call.ID, task)
}
