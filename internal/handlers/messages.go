package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dynamo-works/claude-engine/internal/apierror"
	"github.com/dynamo-works/claude-engine/internal/middleware"
	"github.com/dynamo-works/claude-engine/internal/models"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Messages serves POST /v1/messages: the provider-native surface. Requests
// and responses pass through with only policy rewrites applied.
func (p *Proxy) Messages(w http.ResponseWriter, r *http.Request) {
	rc := middleware.GetRequestContext(r)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		apierror.Write(w, rc.RequestID, apierror.InvalidRequest("Failed to read request body"))
		return
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		apierror.Write(w, rc.RequestID, apierror.InvalidRequest("Invalid JSON body"))
		return
	}

	msgs := gjson.GetBytes(body, "messages")
	if !msgs.IsArray() || len(msgs.Array()) == 0 {
		apierror.Write(w, rc.RequestID, apierror.InvalidRequest("messages must be a non-empty array"))
		return
	}

	maxTokens := int(gjson.GetBytes(body, "max_tokens").Int())
	if maxTokens <= 0 {
		apierror.Write(w, rc.RequestID, apierror.InvalidRequest("max_tokens is required"))
		return
	}
	if clamped := clampMaxTokens(maxTokens, rc.Role); clamped != maxTokens {
		if raw, err := json.Marshal(clamped); err == nil {
			payload["max_tokens"] = raw
		}
	}

	stream := gjson.GetBytes(body, "stream").Bool()
	model := gjson.GetBytes(body, "model").String()

	if stream {
		p.streamMessages(w, r, rc, payload, model)
		return
	}

	delete(payload, "stream")
	upBody, err := json.Marshal(payload)
	if err != nil {
		apierror.Write(w, rc.RequestID, apierror.Internal())
		return
	}

	raw, err := p.upstream.CreateMessage(r.Context(), upBody)
	if err != nil {
		p.logger.Warn("upstream call failed",
			zap.String("request_id", rc.RequestID), zap.Error(err))
		apierror.Write(w, rc.RequestID, err)
		p.finishRequest(rc, model, 0, 0, "", models.AuditStatusError)
		return
	}

	parsed := gjson.ParseBytes(raw)
	if m := parsed.Get("model").String(); m != "" {
		model = m
	}
	inputTokens := parsed.Get("usage.input_tokens").Int()
	outputTokens := parsed.Get("usage.output_tokens").Int()

	var texts []string
	parsed.Get("content").ForEach(func(_, block gjson.Result) bool {
		if block.Get("type").String() == "text" {
			texts = append(texts, block.Get("text").String())
		}
		return true
	})

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(raw); err != nil {
		p.logger.Warn("failed to write response",
			zap.String("request_id", rc.RequestID), zap.Error(err))
	}

	p.finishRequest(rc, model, inputTokens, outputTokens,
		strings.Join(texts, ""), models.AuditStatusSuccess)
}

// streamMessages relays the upstream event stream verbatim while
// accumulating token counts for the post-stream writes.
func (p *Proxy) streamMessages(w http.ResponseWriter, r *http.Request,
	rc *middleware.RequestContext, payload map[string]json.RawMessage, model string) {
	payload["stream"] = json.RawMessage("true")
	upBody, err := json.Marshal(payload)
	if err != nil {
		apierror.Write(w, rc.RequestID, apierror.Internal())
		return
	}

	events, err := p.upstream.StreamMessages(r.Context(), upBody)
	if err != nil {
		p.logger.Warn("upstream stream failed",
			zap.String("request_id", rc.RequestID), zap.Error(err))
		apierror.Write(w, rc.RequestID, err)
		p.finishRequest(rc, model, 0, 0, "", models.AuditStatusError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)

	var inputTokens, outputTokens int64
	var preview strings.Builder
	var streamErr, completed bool

	for ev := range events {
		if ev.Err != nil {
			p.logger.Warn("upstream stream error",
				zap.String("request_id", rc.RequestID), zap.Error(ev.Err))
			streamErr = true
			break
		}

		parsed := gjson.ParseBytes(ev.Data)
		switch ev.Type {
		case "message_start":
			inputTokens = parsed.Get("message.usage.input_tokens").Int()
			if m := parsed.Get("message.model").String(); m != "" {
				model = m
			}
		case "content_block_delta":
			if parsed.Get("delta.type").String() == "text_delta" {
				preview.WriteString(parsed.Get("delta.text").String())
			}
		case "message_delta":
			outputTokens = parsed.Get("usage.output_tokens").Int()
			if parsed.Get("delta.stop_reason").String() != "" {
				completed = true
			}
		case "message_stop":
			completed = true
		}

		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data); err != nil {
			break
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	status := models.AuditStatusSuccess
	if streamErr || !completed {
		status = models.AuditStatusError
	}
	p.finishRequest(rc, model, inputTokens, outputTokens,
		preview.String(), status)
}
