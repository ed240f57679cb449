package gateway

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRPCRouter_ParseRequest(t *testing.T) {
	router := NewRPCRouter()

	t.Run("should parse valid request", func(t *testing.T) {
		req, err := router.ParseRequest([]byte(`{"id":"1","method":"ping","jsonrpc":"2.0"}`))
		require.NoError(t, err)
		assert.Equal(t, "1", req.ID)
		assert.Equal(t, "ping", req.Method)
	})

	t.Run("should default jsonrpc version", func(t *testing.T) {
		req, err := router.ParseRequest([]byte(`{"id":"1","method":"ping"}`))
		require.NoError(t, err)
		assert.Equal(t, "2.0", req.JSONRPC)
	})

	t.Run("should reject malformed JSON", func(t *testing.T) {
		_, err := router.ParseRequest([]byte(`{invalid`))
		require.Error(t, err)
		rpcErr, ok := err.(*RPCError)
		require.True(t, ok)
		assert.Equal(t, ParseError, rpcErr.Code)
	})

	t.Run("should reject missing id", func(t *testing.T) {
		_, err := router.ParseRequest([]byte(`{"method":"ping"}`))
		require.Error(t, err)
		rpcErr, ok := err.(*RPCError)
		require.True(t, ok)
		assert.Equal(t, InvalidRequest, rpcErr.Code)
	})

	t.Run("should reject missing method", func(t *testing.T) {
		_, err := router.ParseRequest([]byte(`{"id":"1"}`))
		require.Error(t, err)
	})
}

func TestRPCRouter_RouteRequest(t *testing.T) {
	t.Run("should route to registered handler", func(t *testing.T) {
		router := NewRPCRouter()
		require.NoError(t, router.RegisterMethod("echo", func(params map[string]interface{}) (interface{}, error) {
			return params["value"], nil
		}))

		resp := router.RouteRequest(&RPCRequest{
			ID:     "1",
			Method: "echo",
			Params: map[string]interface{}{"value": "hello"},
		})

		require.Nil(t, resp.Error)
		assert.Equal(t, "hello", resp.Result)
		assert.Equal(t, "1", resp.ID)
	})

	t.Run("should return method not found", func(t *testing.T) {
		router := NewRPCRouter()

		resp := router.RouteRequest(&RPCRequest{ID: "1", Method: "missing"})

		require.NotNil(t, resp.Error)
		assert.Equal(t, MethodNotFound, resp.Error.Code)
	})

	t.Run("should wrap handler errors", func(t *testing.T) {
		router := NewRPCRouter()
		require.NoError(t, router.RegisterMethod("boom", func(map[string]interface{}) (interface{}, error) {
			return nil, fmt.Errorf("it broke")
		}))

		resp := router.RouteRequest(&RPCRequest{ID: "1", Method: "boom"})

		require.NotNil(t, resp.Error)
		assert.Equal(t, InternalError, resp.Error.Code)
		assert.Equal(t, "it broke", resp.Error.Message)
	})

	t.Run("should preserve RPCError codes from handlers", func(t *testing.T) {
		router := NewRPCRouter()
		require.NoError(t, router.RegisterMethod("bad", func(map[string]interface{}) (interface{}, error) {
			return nil, &RPCError{Code: InvalidParams, Message: "missing parameter"}
		}))

		resp := router.RouteRequest(&RPCRequest{ID: "1", Method: "bad"})

		require.NotNil(t, resp.Error)
		assert.Equal(t, InvalidParams, resp.Error.Code)
	})

	t.Run("should reject nil handler registration", func(t *testing.T) {
		router := NewRPCRouter()
		assert.Error(t, router.RegisterMethod("nil", nil))
	})
}

func TestRPCRouter_Idempotency(t *testing.T) {
	router := NewRPCRouter()

	calls := 0
	require.NoError(t, router.RegisterMethod("counted", func(map[string]interface{}) (interface{}, error) {
		calls++
		return calls, nil
	}))

	t.Run("should replay cached response for same key", func(t *testing.T) {
		first := router.RouteRequest(&RPCRequest{ID: "1", Method: "counted", IdempotencyKey: "k1"})
		second := router.RouteRequest(&RPCRequest{ID: "2", Method: "counted", IdempotencyKey: "k1"})

		assert.Equal(t, 1, calls)
		assert.Equal(t, first.Result, second.Result)
		assert.Equal(t, "2", second.ID)
	})

	t.Run("should execute again for different key", func(t *testing.T) {
		router.RouteRequest(&RPCRequest{ID: "3", Method: "counted", IdempotencyKey: "k2"})
		assert.Equal(t, 2, calls)
	})

	t.Run("should execute again without key", func(t *testing.T) {
		router.RouteRequest(&RPCRequest{ID: "4", Method: "counted"})
		router.RouteRequest(&RPCRequest{ID: "5", Method: "counted"})
		assert.Equal(t, 4, calls)
	})
}

func TestRPCRouter_Registration(t *testing.T) {
	router := NewRPCRouter()
	require.NoError(t, router.RegisterMethod("a", func(map[string]interface{}) (interface{}, error) { return nil, nil }))

	assert.True(t, router.HasMethod("a"))
	assert.Contains(t, router.GetMethods(), "a")

	router.UnregisterMethod("a")
	assert.False(t, router.HasMethod("a"))
}
