package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mirceapaciu/econ-assistant/internal/core/domain"
	"github.com/mirceapaciu/econ-assistant/internal/core/ports"
)

const (
	toolGDPGrowth    = "get_gdp_growth"
	toolExchangeRate = "get_exchange_rate"
	toolCPIInflation = "get_cpi_inflation"

	unknownFunctionResult = "unknown function"

	emptyKnowledgeBaseAnswer = "The knowledge database is empty. Load the source corpus before asking questions."
	toolLoopExceededAnswer   = "I could not complete the request: the tool-calling loop exceeded its limit. Please rephrase the question."
	insufficientContextNote  = "The provided context is not sufficient to answer this question."
)

var citationPattern = regexp.MustCompile(`\[([^,\[\]]+), p\.(\d+)\]`)

// ChatAgentUseCase answers economic questions grounded in the retrieved
// corpus, letting the reasoning model call live data functions on the way.
type ChatAgentUseCase struct {
	embedder      ports.Embedder
	vectorDB      ports.VectorStore
	model         ports.ReasoningModel
	econData      ports.EconDataClient
	tabular       ports.TabularStore
	topK          int
	maxIterations int
}

func NewChatAgentUseCase(
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	model ports.ReasoningModel,
	econData ports.EconDataClient,
	tabular ports.TabularStore,
	topK int,
	maxIterations int,
) *ChatAgentUseCase {
	if topK <= 0 {
		topK = 5
	}
	if maxIterations <= 0 {
		maxIterations = 6
	}
	return &ChatAgentUseCase{
		embedder:      embedder,
		vectorDB:      vectorDB,
		model:         model,
		econData:      econData,
		tabular:       tabular,
		topK:          topK,
		maxIterations: maxIterations,
	}
}

func (uc *ChatAgentUseCase) Answer(ctx context.Context, question string, history []domain.ChatTurn) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer question", fmt.Errorf("question is empty"))
	}

	count, err := uc.vectorDB.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	if count == 0 {
		return &domain.Answer{
			Text:               emptyKnowledgeBaseAnswer,
			Citations:          make([]domain.Citation, 0),
			KnowledgeBaseEmpty: true,
		}, nil
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := uc.vectorDB.Search(ctx, queryVector, uc.topK)
	if err != nil {
		return nil, fmt.Errorf("search vector db: %w", err)
	}

	prompt, citations := buildGroundingPrompt(question, chunks)

	answerText, err := uc.runToolLoop(ctx, prompt, history)
	if err != nil {
		return nil, err
	}

	return &domain.Answer{
		Text:      answerText,
		Citations: extractCitations(answerText, citations),
	}, nil
}

// buildGroundingPrompt renders one context block per retrieved chunk, each
// bound to a citation token of the form [<file_name>, p.<page>], and returns
// the token lookup used later to resolve citations in the final answer.
func buildGroundingPrompt(question string, chunks []domain.RetrievedChunk) (string, map[string]domain.CitationDetails) {
	details := make(map[string]domain.CitationDetails, len(chunks))
	blocks := make([]string, 0, len(chunks))

	for _, chunk := range chunks {
		token := fmt.Sprintf("[%s, p.%d]", chunk.FileName, chunk.PageNumber)
		if _, seen := details[token]; !seen {
			details[token] = domain.CitationDetails{
				SourceName: chunk.SourceName,
				FileName:   chunk.FileName,
				URL:        chunk.URL,
				PageNumber: chunk.PageNumber,
				Excerpt:    chunk.Text,
			}
		}

		url := chunk.URL
		if url == "" {
			url = "(no url)"
		}
		blocks = append(blocks, fmt.Sprintf("Title: %s\nURL: %s\nCitation: %s\nExcerpt:\n%s",
			chunk.SourceName, url, token, chunk.Text))
	}

	contextText := strings.Join(blocks, "\n---\n")
	if contextText == "" {
		contextText = "(no matching passages)"
	}

	prompt := fmt.Sprintf(`Answer the question using only the context below.
Cite every supporting passage with exactly its citation token, for example [report.pdf, p.3].
If the context is not sufficient, reply: %q

Context:
%s

Question: %s`, insufficientContextNote, contextText, question)

	return prompt, details
}

func (uc *ChatAgentUseCase) runToolLoop(ctx context.Context, prompt string, history []domain.ChatTurn) (string, error) {
	messages := make([]domain.ModelMessage, 0, len(history)+2)
	messages = append(messages, domain.ModelMessage{
		Role:    "system",
		Content: "You are an economic research assistant. Ground every answer in the supplied context and call the available data functions when the question needs live figures.",
	})
	for _, turn := range history {
		role := strings.ToLower(strings.TrimSpace(turn.Role))
		if role != "user" && role != "assistant" {
			continue
		}
		messages = append(messages, domain.ModelMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, domain.ModelMessage{Role: "user", Content: prompt})

	tools := toolDefinitions()

	for iteration := 0; ; iteration++ {
		if iteration >= uc.maxIterations {
			return toolLoopExceededAnswer, nil
		}

		reply, err := uc.model.Complete(ctx, messages, tools)
		if err != nil {
			return "", fmt.Errorf("reasoning model: %w", err)
		}
		if len(reply.ToolCalls) == 0 {
			return reply.Content, nil
		}

		messages = append(messages, domain.ModelMessage{
			Role:      "assistant",
			Content:   reply.Content,
			ToolCalls: reply.ToolCalls,
		})
		for _, call := range reply.ToolCalls {
			messages = append(messages, domain.ModelMessage{
				Role:       "tool",
				Content:    uc.executeTool(ctx, call),
				ToolCallID: call.ID,
			})
		}
	}
}

// executeTool never fails the turn: collaborator errors and unknown function
// names are fed back to the model as the tool's textual result.
func (uc *ChatAgentUseCase) executeTool(ctx context.Context, call domain.ToolCall) string {
	args := parseToolArguments(call.Arguments)

	switch call.Name {
	case toolGDPGrowth:
		result, err := uc.econData.GDPGrowth(ctx, stringArg(args, "country"), stringArg(args, "period"))
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return result
	case toolExchangeRate:
		result, err := uc.econData.ExchangeRate(ctx, stringArg(args, "base"), stringArg(args, "quote"))
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return result
	case toolCPIInflation:
		return uc.cpiInflation(ctx, args)
	default:
		return unknownFunctionResult
	}
}

func (uc *ChatAgentUseCase) cpiInflation(ctx context.Context, args map[string]any) string {
	areaCode := stringArg(args, "area_code")
	year := intArg(args, "year")
	month := intArg(args, "month")

	rows, err := uc.tabular.QueryObservations(ctx, areaCode, year, month)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	if len(rows) == 0 {
		return fmt.Sprintf("no observations for area %q", areaCode)
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("%s (%s) %s: %.2f", row.AreaName, row.AreaCode, row.Period, row.Value))
	}
	return strings.Join(lines, "\n")
}

func toolDefinitions() []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Name:        toolGDPGrowth,
			Description: "Fetch annual GDP growth for a country.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"country": map[string]any{"type": "string", "description": "ISO country code, e.g. DEU"},
					"period":  map[string]any{"type": "string", "description": "Year, e.g. 2024"},
				},
				"required": []string{"country", "period"},
			},
		},
		{
			Name:        toolExchangeRate,
			Description: "Fetch the current exchange rate between two currencies.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"base":  map[string]any{"type": "string", "description": "Base currency code, e.g. EUR"},
					"quote": map[string]any{"type": "string", "description": "Quote currency code, e.g. USD"},
				},
				"required": []string{"base", "quote"},
			},
		},
		{
			Name:        toolCPIInflation,
			Description: "Fetch stored CPI inflation observations for an area.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"area_code": map[string]any{"type": "string", "description": "Area code, e.g. DEU"},
					"year":      map[string]any{"type": "integer"},
					"month":     map[string]any{"type": "integer", "description": "Optional month 1-12"},
				},
				"required": []string{"area_code", "year"},
			},
		},
	}
}

// extractCitations resolves every citation token the model actually used, in
// first-seen order, dropping duplicates and tokens that match no retrieved
// chunk.
func extractCitations(answer string, details map[string]domain.CitationDetails) []domain.Citation {
	citations := make([]domain.Citation, 0)
	seen := make(map[string]bool)

	for _, token := range citationPattern.FindAllString(answer, -1) {
		if seen[token] {
			continue
		}
		seen[token] = true

		d, ok := details[token]
		if !ok {
			continue
		}
		citations = append(citations, domain.Citation{
			Token:    token,
			Metadata: d.Metadata(),
			Excerpt:  d.Excerpt,
		})
	}
	return citations
}

func parseToolArguments(raw string) map[string]any {
	args := make(map[string]any)
	if strings.TrimSpace(raw) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return make(map[string]any)
	}
	return args
}

func stringArg(args map[string]any, key string) string {
	value, ok := args[key]
	if !ok || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}

func intArg(args map[string]any, key string) int {
	value, ok := args[key]
	if !ok || value == nil {
		return 0
	}
	switch typed := value.(type) {
	case float64:
		return int(typed)
	case int:
		return typed
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(typed))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
