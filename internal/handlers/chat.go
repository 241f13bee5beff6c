package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dynamo-works/claude-engine/internal/apierror"
	"github.com/dynamo-works/claude-engine/internal/middleware"
	"github.com/dynamo-works/claude-engine/internal/models"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int           `json:"index"`
	Message      chatChoiceMsg `json:"message"`
	FinishReason *string       `json:"finish_reason"`
}

type chatChoiceMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// ChatCompletions serves POST /v1/chat/completions: translate, call
// upstream, re-shape the answer, then schedule the usage and audit writes.
func (p *Proxy) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	rc := middleware.GetRequestContext(r)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Write(w, rc.RequestID, apierror.InvalidRequest("Invalid JSON body"))
		return
	}

	upReq, err := translateChatRequest(&req, rc.Role, p.defaultMaxTokens)
	if err != nil {
		apierror.Write(w, rc.RequestID, err)
		return
	}

	if req.Stream {
		p.streamChat(w, r, rc, upReq)
		return
	}

	upReq.Stream = false
	body, err := json.Marshal(upReq)
	if err != nil {
		apierror.Write(w, rc.RequestID, apierror.Internal())
		return
	}

	raw, err := p.upstream.CreateMessage(r.Context(), body)
	if err != nil {
		p.logger.Warn("upstream call failed",
			zap.String("request_id", rc.RequestID), zap.Error(err))
		apierror.Write(w, rc.RequestID, err)
		p.finishRequest(rc, upReq.Model, 0, 0, "", models.AuditStatusError)
		return
	}

	parsed := gjson.ParseBytes(raw)
	var texts []string
	parsed.Get("content").ForEach(func(_, block gjson.Result) bool {
		if block.Get("type").String() == "text" {
			texts = append(texts, block.Get("text").String())
		}
		return true
	})
	content := strings.Join(texts, "")

	model := parsed.Get("model").String()
	if model == "" {
		model = upReq.Model
	}
	inputTokens := parsed.Get("usage.input_tokens").Int()
	outputTokens := parsed.Get("usage.output_tokens").Int()

	resp := chatResponse{
		ID:      "chatcmpl-" + parsed.Get("id").String(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []chatChoice{{
			Message:      chatChoiceMsg{Role: "assistant", Content: content},
			FinishReason: mapStopReason(parsed.Get("stop_reason").String()),
		}},
		Usage: chatUsage{
			PromptTokens:     inputTokens,
			CompletionTokens: outputTokens,
			TotalTokens:      inputTokens + outputTokens,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		p.logger.Warn("failed to write response",
			zap.String("request_id", rc.RequestID), zap.Error(err))
	}

	p.finishRequest(rc, model, inputTokens, outputTokens, content, models.AuditStatusSuccess)
}

// chatStreamState accumulates what the post-stream writes need.
type chatStreamState struct {
	id           string
	model        string
	inputTokens  int64
	outputTokens int64
	stopReason   string
	text         strings.Builder
}

func (p *Proxy) streamChat(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext, upReq *upstreamRequest) {
	upReq.Stream = true
	body, err := json.Marshal(upReq)
	if err != nil {
		apierror.Write(w, rc.RequestID, apierror.Internal())
		return
	}

	events, err := p.upstream.StreamMessages(r.Context(), body)
	if err != nil {
		p.logger.Warn("upstream stream failed",
			zap.String("request_id", rc.RequestID), zap.Error(err))
		apierror.Write(w, rc.RequestID, err)
		p.finishRequest(rc, upReq.Model, 0, 0, "", models.AuditStatusError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	emit := func(chunk map[string]interface{}) bool {
		data, err := json.Marshal(chunk)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return false
		}
		if flusher != nil {
			flusher.Flush()
		}
		return true
	}

	state := &chatStreamState{model: upReq.Model}
	created := time.Now().Unix()

	// The role chunk opens every stream.
	emit(p.deltaChunk(state, created, map[string]interface{}{"role": "assistant"}, nil))

	var streamErr, completed, finishSent bool
	emitFinish := func() {
		if finishSent {
			return
		}
		finishSent = true
		emit(p.finishChunk(state, created))
	}

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
			state.id = parsed.Get("message.id").String()
			if m := parsed.Get("message.model").String(); m != "" {
				state.model = m
			}
			state.inputTokens = parsed.Get("message.usage.input_tokens").Int()

		case "content_block_delta":
			if parsed.Get("delta.type").String() == "text_delta" {
				text := parsed.Get("delta.text").String()
				state.text.WriteString(text)
				emit(p.deltaChunk(state, created, map[string]interface{}{"content": text}, nil))
			}

		case "message_delta":
			state.outputTokens = parsed.Get("usage.output_tokens").Int()
			// The terminal facts arrive here; the finish chunk goes out now so
			// a stream cut before message_stop still terminates cleanly.
			if sr := parsed.Get("delta.stop_reason").String(); sr != "" {
				state.stopReason = sr
				completed = true
				emitFinish()
			}

		case "message_stop":
			completed = true
			emitFinish()
		}
	}
	emitFinish()

	fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}

	status := models.AuditStatusSuccess
	if streamErr || !completed {
		status = models.AuditStatusError
	}
	p.finishRequest(rc, state.model, state.inputTokens, state.outputTokens,
		state.text.String(), status)
}

// finishChunk is the terminal frame: the finish reason plus the accumulated
// usage the downstream footer reads.
func (p *Proxy) finishChunk(state *chatStreamState, created int64) map[string]interface{} {
	chunk := p.deltaChunk(state, created, map[string]interface{}{},
		mapStopReason(state.stopReason))
	chunk["usage"] = map[string]int64{
		"prompt_tokens":     state.inputTokens,
		"completion_tokens": state.outputTokens,
		"total_tokens":      state.inputTokens + state.outputTokens,
	}
	return chunk
}

func (p *Proxy) deltaChunk(state *chatStreamState, created int64,
	delta map[string]interface{}, finishReason *string) map[string]interface{} {
	var fr interface{}
	if finishReason != nil {
		fr = *finishReason
	}
	return map[string]interface{}{
		"id":      "chatcmpl-" + state.id,
		"object":  "chat.completion.chunk",
		"created": created,
		"model":   state.model,
		"choices": []map[string]interface{}{{
			"index":         0,
			"delta":         delta,
			"finish_reason": fr,
		}},
	}
}
