package gateway

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// idempotencyTTL is how long a replayed response stays valid.
const idempotencyTTL = 5 * time.Minute

// RPCRouter dispatches JSON-RPC requests to registered handlers.
// Requests carrying an idempotency key get their response cached, so a
// console retrying after a dropped connection sees the original result
// instead of re-running the call.
type RPCRouter struct {
	mu       sync.RWMutex
	handlers map[string]RequestHandler
	replays  map[string]cachedRPCResponse
}

type cachedRPCResponse struct {
	response  RPCResponse
	expiresAt time.Time
}

// NewRPCRouter creates an empty router.
func NewRPCRouter() *RPCRouter {
	return &RPCRouter{
		handlers: make(map[string]RequestHandler),
		replays:  make(map[string]cachedRPCResponse),
	}
}

// RegisterMethod registers an RPC method handler.
func (r *RPCRouter) RegisterMethod(name string, handler RequestHandler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
	return nil
}

// UnregisterMethod removes an RPC method handler.
func (r *RPCRouter) UnregisterMethod(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, name)
}

// ParseRequest parses and validates a JSON-RPC request.
func (r *RPCRouter) ParseRequest(data []byte) (*RPCRequest, error) {
	var req RPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, &RPCError{Code: ParseError, Message: "Parse error", Data: err.Error()}
	}

	if req.ID == "" {
		return nil, &RPCError{Code: InvalidRequest, Message: "Invalid request: missing id field"}
	}
	if req.Method == "" {
		return nil, &RPCError{Code: InvalidRequest, Message: "Invalid request: missing method field"}
	}

	if req.JSONRPC == "" {
		req.JSONRPC = "2.0"
	}
	return &req, nil
}

func errorResponse(id string, code int, message string) *RPCResponse {
	return &RPCResponse{
		ID:      id,
		JSONRPC: "2.0",
		Error:   &RPCError{Code: code, Message: message},
	}
}

// RouteRequest runs a request through its handler, replaying a cached
// response when the idempotency key matches a recent call.
func (r *RPCRouter) RouteRequest(req *RPCRequest) *RPCResponse {
	if req == nil {
		return errorResponse("", InvalidRequest, "invalid request")
	}

	replayKey := ""
	if req.IdempotencyKey != "" {
		replayKey = req.Method + ":" + req.IdempotencyKey
		if cached, ok := r.replayResponse(replayKey); ok {
			cached.ID = req.ID
			return &cached
		}
	}

	r.mu.RLock()
	handler, exists := r.handlers[req.Method]
	r.mu.RUnlock()

	if !exists {
		return errorResponse(req.ID, MethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}

	response := r.invoke(handler, req)
	if replayKey != "" {
		r.storeReplay(replayKey, *response)
	}
	return response
}

func (r *RPCRouter) invoke(handler RequestHandler, req *RPCRequest) *RPCResponse {
	result, err := handler(req.Params)
	if err != nil {
		// Handlers returning an RPCError keep their code on the wire
		code := InternalError
		if rpcErr, ok := err.(*RPCError); ok {
			code = rpcErr.Code
		}
		return errorResponse(req.ID, code, err.Error())
	}

	return &RPCResponse{ID: req.ID, JSONRPC: "2.0", Result: result}
}

// HasMethod checks if a method is registered.
func (r *RPCRouter) HasMethod(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.handlers[name]
	return exists
}

// GetMethods returns all registered method names.
func (r *RPCRouter) GetMethods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

func (r *RPCRouter) replayResponse(key string) (RPCResponse, bool) {
	r.mu.RLock()
	entry, exists := r.replays[key]
	r.mu.RUnlock()
	if !exists {
		return RPCResponse{}, false
	}

	now := time.Now()
	if now.After(entry.expiresAt) {
		r.mu.Lock()
		if current, ok := r.replays[key]; ok && now.After(current.expiresAt) {
			delete(r.replays, key)
		}
		r.mu.Unlock()
		return RPCResponse{}, false
	}

	return cloneRPCResponse(entry.response), true
}

func (r *RPCRouter) storeReplay(key string, response RPCResponse) {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.replays[key] = cachedRPCResponse{
		response:  cloneRPCResponse(response),
		expiresAt: now.Add(idempotencyTTL),
	}
	for staleKey, entry := range r.replays {
		if now.After(entry.expiresAt) {
			delete(r.replays, staleKey)
		}
	}
}

func cloneRPCResponse(src RPCResponse) RPCResponse {
	cloned := RPCResponse{
		ID:      src.ID,
		Result:  src.Result,
		JSONRPC: src.JSONRPC,
	}
	if src.Error != nil {
		errCopy := *src.Error
		cloned.Error = &errCopy
	}
	return cloned
}
