package handlers

import (
	"encoding/json"
	"strings"

	"github.com/dynamo-works/claude-engine/internal/apierror"
	"github.com/dynamo-works/claude-engine/internal/catalog"
)

// chatRequest is the chat-completion surface request shape.
type chatRequest struct {
	Model       string          `json:"model"`
	Messages    []chatMessage   `json:"messages"`
	Stream      bool            `json:"stream"`
	MaxTokens   *int            `json:"max_tokens"`
	Temperature *float64        `json:"temperature"`
	TopP        *float64        `json:"top_p"`
	Stop        json.RawMessage `json:"stop"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// upstreamRequest is the provider-native messages call.
type upstreamRequest struct {
	Model         string        `json:"model"`
	MaxTokens     int           `json:"max_tokens"`
	Messages      []upstreamMsg `json:"messages"`
	System        string        `json:"system,omitempty"`
	Temperature   *float64      `json:"temperature,omitempty"`
	TopP          *float64      `json:"top_p,omitempty"`
	StopSequences []string      `json:"stop_sequences,omitempty"`
	Stream        bool          `json:"stream,omitempty"`
}

type upstreamMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// translateChatRequest converts the chat-completion shape to the native
// upstream call. System messages collapse into the system field; max_tokens
// falls back to the configured default and is clamped to the role cap.
func translateChatRequest(req *chatRequest, role string, defaultMaxTokens int) (*upstreamRequest, error) {
	if len(req.Messages) == 0 {
		return nil, apierror.InvalidRequest("messages must be a non-empty array")
	}

	out := &upstreamRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}

	var system []string
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "user", "assistant":
			out.Messages = append(out.Messages, upstreamMsg{Role: m.Role, Content: m.Content})
		default:
			return nil, apierror.InvalidRequest("message role must be system, user, or assistant")
		}
	}
	out.System = strings.Join(system, "\n")

	if len(out.Messages) == 0 {
		return nil, apierror.InvalidRequest("messages must include at least one user or assistant message")
	}

	maxTokens := defaultMaxTokens
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}
	out.MaxTokens = clampMaxTokens(maxTokens, role)

	if len(req.Stop) > 0 {
		out.StopSequences = parseStop(req.Stop)
	}

	return out, nil
}

// clampMaxTokens caps a request at the role's per-request limit.
func clampMaxTokens(requested int, role string) int {
	limit := catalog.GetRole(role).MaxTokensPerRequest
	if role == catalog.RoleAdmin || limit == nil {
		return requested
	}
	if requested > *limit {
		return *limit
	}
	return requested
}

// parseStop accepts either a single string or an array of strings.
func parseStop(raw json.RawMessage) []string {
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

// mapStopReason maps the upstream stop reason onto the chat-completion
// finish_reason vocabulary. Unknown reasons map to null.
func mapStopReason(reason string) *string {
	switch reason {
	case "end_turn", "stop_sequence":
		s := "stop"
		return &s
	case "max_tokens":
		s := "length"
		return &s
	default:
		return nil
	}
}
