package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/chatwarden/pkg/domain/interfaces"
	"github.com/secmon-lab/chatwarden/pkg/domain/model"
	"github.com/secmon-lab/chatwarden/pkg/service/llm"
)

func newStubServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func testTools() []interfaces.ToolSpec {
	return []interfaces.ToolSpec{
		{
			Name:        model.ToolFlagInappropriate,
			Description: "flag a message",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

func TestToolCompletion(t *testing.T) {
	t.Run("returns tool calls from response", func(t *testing.T) {
		var gotReq map[string]any
		srv := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
			gt.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"choices": [{
					"message": {
						"role": "assistant",
						"tool_calls": [{
							"id": "call_1",
							"type": "function",
							"function": {
								"name": "flagInappropriate",
								"arguments": "{\"chatId\":\"c1\",\"messageId\":\"m1\",\"reason\":\"spam\"}"
							}
						}]
					}
				}]
			}`))
		})

		client, err := llm.New("test-key", srv.URL)
		gt.NoError(t, err).Required()

		calls, err := client.ToolCompletion(context.Background(), "system", "user", testTools())
		gt.NoError(t, err).Required()

		gt.Array(t, calls).Length(1)
		gt.Value(t, calls[0].Name).Equal(model.ToolFlagInappropriate)
		gt.String(t, calls[0].Arguments).Contains("spam")

		// The request must carry the tool catalog and let the model choose.
		gt.Value(t, gotReq["tool_choice"]).Equal("auto")
		tools := gt.Cast[[]any](t, gotReq["tools"])
		gt.Array(t, tools).Length(1)
	})

	t.Run("no tool calls yields empty slice", func(t *testing.T) {
		srv := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"choices": [{
					"message": {"role": "assistant", "content": "all fine"}
				}]
			}`))
		})

		client, err := llm.New("test-key", srv.URL)
		gt.NoError(t, err).Required()

		calls, err := client.ToolCompletion(context.Background(), "system", "user", testTools())
		gt.NoError(t, err).Required()
		gt.Array(t, calls).Length(0)
	})

	t.Run("server error returns error", func(t *testing.T) {
		srv := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error": {"message": "upstream broken", "type": "server_error"}}`))
		})

		client, err := llm.New("test-key", srv.URL)
		gt.NoError(t, err).Required()

		_, err = client.ToolCompletion(context.Background(), "system", "user", testTools())
		gt.Value(t, err).NotNil()
	})
}

func TestJSONCompletion(t *testing.T) {
	t.Run("returns content and requests JSON mode", func(t *testing.T) {
		var gotReq map[string]any
		srv := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
			gt.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"choices": [{
					"message": {"role": "assistant", "content": "{\"summary\":\"ok\"}"}
				}]
			}`))
		})

		client, err := llm.New("test-key", srv.URL)
		gt.NoError(t, err).Required()

		content, err := client.JSONCompletion(context.Background(), "system", "user")
		gt.NoError(t, err).Required()
		gt.Value(t, content).Equal(`{"summary":"ok"}`)

		format := gt.Cast[map[string]any](t, gotReq["response_format"])
		gt.Value(t, format["type"]).Equal("json_object")
	})

	t.Run("server error returns error", func(t *testing.T) {
		srv := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error": {"message": "bad gateway"}}`))
		})

		client, err := llm.New("test-key", srv.URL)
		gt.NoError(t, err).Required()

		_, err = client.JSONCompletion(context.Background(), "system", "user")
		gt.Value(t, err).NotNil()
	})
}

func TestNew(t *testing.T) {
	t.Run("empty API key fails", func(t *testing.T) {
		_, err := llm.New("", "")
		gt.Value(t, err).NotNil()
	})
}
