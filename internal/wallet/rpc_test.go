package wallet

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// rpcRecorder is a JSON-RPC mock that serves fixed results per method and
// records every request it receives.
type rpcRecorder struct {
	mu        sync.Mutex
	responses map[string]interface{}
	calls     []string
	params    map[string][]json.RawMessage
}

func newRPC(t *testing.T, responses map[string]interface{}) (*rpcRecorder, *httptest.Server) {
	t.Helper()
	rec := &rpcRecorder{responses: responses, params: make(map[string][]json.RawMessage)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
			ID     int               `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		rec.mu.Lock()
		rec.calls = append(rec.calls, req.Method)
		rec.params[req.Method] = req.Params
		result, ok := rec.responses[req.Method]
		rec.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if ok {
			json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
				"jsonrpc": "2.0", "id": req.ID, "result": result,
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
			"jsonrpc": "2.0", "id": req.ID,
			"error": map[string]interface{}{"code": -32601, "message": "method not found"},
		})
	}))
	t.Cleanup(srv.Close)
	return rec, srv
}

func (r *rpcRecorder) called(method string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if c == method {
			return true
		}
	}
	return false
}

// param returns the i-th param of the last call to method, decoded as a string.
func (r *rpcRecorder) param(method string, i int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s string
	if ps := r.params[method]; i < len(ps) {
		json.Unmarshal(ps[i], &s) //nolint:errcheck
	}
	return s
}
