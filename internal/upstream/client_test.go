package upstream

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dynamo-works/claude-engine/internal/apierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMessage(t *testing.T) {
	var gotAuth, gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		assert.Equal(t, "/messages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","content":[{"type":"text","text":"hi"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key", nil)
	raw, err := c.CreateMessage(t.Context(), []byte(`{"model":"m"}`))
	require.NoError(t, err)

	assert.Equal(t, "secret-key", gotAuth)
	assert.Equal(t, apiVersion, gotVersion)
	assert.Contains(t, string(raw), `"msg_1"`)
}

func TestCreateMessage_ErrorMapsToUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", nil)
	_, err := c.CreateMessage(t.Context(), []byte(`{}`))

	var ue *apierror.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusTooManyRequests, ue.StatusCode)
	assert.Contains(t, string(ue.Body), "rate_limit_error")
}

const sampleStream = `event: message_start
data: {"type":"message_start","message":{"id":"msg_1","model":"claude-sonnet-4-20250514","usage":{"input_tokens":12}}}

event: content_block_delta
data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"Hello"}}

event: content_block_delta
data: {"type":"content_block_delta","delta":{"type":"text_delta","text":" world"}}

event: message_delta
data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":7}}

event: message_stop
data: {"type":"message_stop"}

`

func TestStreamMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(sampleStream))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", nil)
	events, err := c.StreamMessages(t.Context(), []byte(`{"stream":true}`))
	require.NoError(t, err)

	var types []string
	for ev := range events {
		require.NoError(t, ev.Err)
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{
		"message_start", "content_block_delta", "content_block_delta",
		"message_delta", "message_stop",
	}, types)
}

func TestStreamMessages_ErrorBeforeStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"type":"overloaded_error","message":"busy"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", nil)
	_, err := c.StreamMessages(t.Context(), []byte(`{}`))

	var ue *apierror.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusBadGateway, ue.StatusCode)
}

func TestParseSSELine(t *testing.T) {
	tests := []struct {
		line      string
		wantEvent string
		wantData  string
		wantOK    bool
	}{
		{"event: message_start", "message_start", "", true},
		{"data: {\"a\":1}", "", "{\"a\":1}", true},
		{"", "", "", false},
		{": keep-alive", "", "", false},
		{"id: 7", "", "", false},
	}
	for _, tt := range tests {
		event, data, ok := parseSSELine(tt.line)
		assert.Equal(t, tt.wantEvent, event, tt.line)
		assert.Equal(t, tt.wantData, data, tt.line)
		assert.Equal(t, tt.wantOK, ok, tt.line)
	}
}
