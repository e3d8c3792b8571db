package domain

import "fmt"

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CitationDetails maps a citation token back to the retrieved chunk it was
// minted for. Built per request during prompt assembly, never persisted.
type CitationDetails struct {
	SourceName string `json:"source_name"`
	FileName   string `json:"file_name"`
	URL        string `json:"url,omitempty"`
	PageNumber int    `json:"page_number"`
	Excerpt    string `json:"excerpt"`
}

func (d CitationDetails) Metadata() string {
	return fmt.Sprintf("source=%s file=%s page=%d url=%s", d.SourceName, d.FileName, d.PageNumber, d.URL)
}

type Citation struct {
	Token    string `json:"token"`
	Metadata string `json:"metadata"`
	Excerpt  string `json:"excerpt"`
}

type Answer struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`

	// KnowledgeBaseEmpty marks answers produced by the empty-store
	// short-circuit, for instrumentation; it is not part of the API body.
	KnowledgeBaseEmpty bool `json:"-"`
}

type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ModelMessage is one entry of the transcript sent to the reasoning model.
// Role "tool" messages carry the ToolCallID they answer.
type ModelMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ModelReply is either a final answer (Content, no ToolCalls) or a request
// to execute one or more tools.
type ModelReply struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}
