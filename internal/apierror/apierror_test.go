package apierror

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body struct {
		Error map[string]string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestWrite_ApplicationError(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, "req-123", BudgetExceeded("over the limit"))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	errBody := decodeBody(t, rec)
	assert.Equal(t, "budget_exceeded", errBody["code"])
	assert.Equal(t, "rate_limit_error", errBody["type"])
	assert.Equal(t, "over the limit", errBody["message"])
	assert.Equal(t, "req-123", errBody["requestId"])
}

func TestWrite_UnknownErrorBecomesInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, "req-456", errors.New("something leaked"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	errBody := decodeBody(t, rec)
	assert.Equal(t, "internal_error", errBody["code"])
	assert.NotContains(t, errBody["message"], "leaked")
}

func TestFromUpstream_AuthError(t *testing.T) {
	ue := &UpstreamError{
		StatusCode: 401,
		Body:       []byte(`{"error":{"type":"authentication_error","message":"bad key"}}`),
	}
	mapped := FromUpstream(ue)
	assert.Equal(t, http.StatusBadGateway, mapped.Status)
	assert.Equal(t, CodeUpstreamAuthError, mapped.Code)
}

func TestFromUpstream_RateLimit(t *testing.T) {
	ue := &UpstreamError{
		StatusCode: 429,
		Body:       []byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`),
	}
	mapped := FromUpstream(ue)
	assert.Equal(t, http.StatusBadGateway, mapped.Status)
	assert.Equal(t, CodeRateLimited, mapped.Code)
}

func TestFromUpstream_Overloaded(t *testing.T) {
	ue := &UpstreamError{
		StatusCode: 529,
		Body:       []byte(`{"error":{"type":"overloaded_error","message":"busy"}}`),
	}
	mapped := FromUpstream(ue)
	assert.Equal(t, http.StatusBadGateway, mapped.Status)
	assert.Equal(t, CodeAPIOverloaded, mapped.Code)
}

func TestFromUpstream_OtherPreservesClientStatus(t *testing.T) {
	ue := &UpstreamError{
		StatusCode: 400,
		Body:       []byte(`{"error":{"type":"invalid_request_error","message":"bad body"}}`),
	}
	mapped := FromUpstream(ue)
	assert.Equal(t, http.StatusBadRequest, mapped.Status)
	assert.Equal(t, CodeUpstreamError, mapped.Code)
	assert.Equal(t, "bad body", mapped.Message)

	server := &UpstreamError{StatusCode: 503, Body: []byte(`{}`)}
	mapped = FromUpstream(server)
	assert.Equal(t, http.StatusBadGateway, mapped.Status)
}

func TestWrite_UpstreamErrorMappedThroughTaxonomy(t *testing.T) {
	rec := httptest.NewRecorder()
	ue := &UpstreamError{
		StatusCode: 429,
		Body:       []byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`),
	}
	Write(rec, "req-789", ue)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	errBody := decodeBody(t, rec)
	assert.Equal(t, "rate_limited", errBody["code"])
}
