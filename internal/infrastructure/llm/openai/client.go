package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mirceapaciu/econ-assistant/internal/core/domain"
	"github.com/mirceapaciu/econ-assistant/internal/infrastructure/resilience"
)

// Client talks to an OpenAI-compatible API. One instance serves both the
// embedding provider and the reasoning model so ingestion-time and
// query-time vectors stay comparable.
type Client struct {
	baseURL    string
	apiKey     string
	chatModel  string
	embedModel string
	httpClient *http.Client

	// Embeddings and completions fail differently: embedding calls are
	// cheap and worth retrying patiently, completions are not. Each side
	// gets its own executor profile.
	embedExecutor *resilience.Executor
	chatExecutor  *resilience.Executor
}

func New(baseURL, apiKey, chatModel, embedModel string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		chatModel:  chatModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},

		embedExecutor: resilience.NewExecutor(resilience.EmbeddingConfig()),
		chatExecutor:  resilience.NewExecutor(resilience.ReasoningConfig()),
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	call := func(callCtx context.Context) error {
		return e.client.postJSON(callCtx, "/v1/embeddings", request, &response, "embed")
	}
	if err := e.client.embedExecutor.Execute(ctx, "openai.embed", call, classifyAPIError); err != nil {
		return nil, wrapTemporaryIfNeeded("embed", err)
	}

	out := make([][]float32, 0, len(response.Data))
	for _, item := range response.Data {
		out = append(out, item.Embedding)
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("embeddings/texts mismatch: %d/%d", len(out), len(texts))
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

type ChatModel struct {
	client *Client
}

func NewChatModel(client *Client) *ChatModel {
	return &ChatModel{client: client}
}

type wireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

func (m *ChatModel) Complete(ctx context.Context, messages []domain.ModelMessage, tools []domain.ToolDefinition) (*domain.ModelReply, error) {
	wireMessages := make([]wireMessage, 0, len(messages))
	for _, msg := range messages {
		wm := wireMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for _, call := range msg.ToolCalls {
			wc := wireToolCall{ID: call.ID, Type: "function"}
			wc.Function.Name = call.Name
			wc.Function.Arguments = call.Arguments
			wm.ToolCalls = append(wm.ToolCalls, wc)
		}
		wireMessages = append(wireMessages, wm)
	}

	request := map[string]any{
		"model":    m.client.chatModel,
		"messages": wireMessages,
	}
	if len(tools) > 0 {
		wireTools := make([]map[string]any, 0, len(tools))
		for _, tool := range tools {
			wireTools = append(wireTools, map[string]any{
				"type": "function",
				"function": map[string]any{
					"name":        tool.Name,
					"description": tool.Description,
					"parameters":  tool.Parameters,
				},
			})
		}
		request["tools"] = wireTools
	}

	var response struct {
		Choices []struct {
			Message wireMessage `json:"message"`
		} `json:"choices"`
	}
	call := func(callCtx context.Context) error {
		return m.client.postJSON(callCtx, "/v1/chat/completions", request, &response, "chat")
	}
	if err := m.client.chatExecutor.Execute(ctx, "openai.chat", call, classifyAPIError); err != nil {
		return nil, wrapTemporaryIfNeeded("chat", err)
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("chat response has no choices")
	}
	message := response.Choices[0].Message

	reply := &domain.ModelReply{Content: strings.TrimSpace(message.Content)}
	for _, call := range message.ToolCalls {
		reply.ToolCalls = append(reply.ToolCalls, domain.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return reply, nil
}
