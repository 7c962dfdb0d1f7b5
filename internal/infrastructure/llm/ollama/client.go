package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
	"github.com/kirillkom/relationship-assistant/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	chatModel  string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, chatModel, embedModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		chatModel:  chatModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
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
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	return response.Embeddings, nil
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

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  g.client.chatModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	var response struct {
		Response string `json:"response"`
	}
	if err := g.client.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

// ChatCompleter drives /api/chat with the tool vocabulary attached.
type ChatCompleter struct {
	client *Client
}

func NewChatCompleter(client *Client) *ChatCompleter {
	return &ChatCompleter{client: client}
}

type chatMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolName  string         `json:"tool_name,omitempty"`
	ToolCalls []chatToolCall `json:"tool_calls,omitempty"`
}

type chatToolCall struct {
	Function chatToolFunction `json:"function"`
}

type chatToolFunction struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (c *ChatCompleter) Complete(
	ctx context.Context,
	messages []domain.ChatMessage,
	tools []domain.ToolSchema,
) (*domain.Completion, error) {
	reqBody := map[string]any{
		"model":    c.client.chatModel,
		"messages": encodeChatMessages(messages),
		"stream":   false,
	}
	if len(tools) > 0 {
		reqBody["tools"] = encodeToolSchemas(tools)
	}

	var response struct {
		Message chatMessage `json:"message"`
	}
	if err := c.client.postJSON(ctx, "/api/chat", reqBody, &response, "chat"); err != nil {
		return nil, err
	}

	completion := &domain.Completion{
		Text: strings.TrimSpace(response.Message.Content),
	}
	for _, call := range response.Message.ToolCalls {
		completion.ToolRequests = append(completion.ToolRequests, domain.ToolRequest{
			// The wire protocol carries no call ids; mint one per request
			// so tool results can be correlated in the transcript.
			ID:   uuid.NewString(),
			Name: call.Function.Name,
			Args: call.Function.Arguments,
		})
	}
	return completion, nil
}

func encodeChatMessages(messages []domain.ChatMessage) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, msg := range messages {
		encoded := chatMessage{
			Role:     string(msg.Role),
			Content:  msg.Content,
			ToolName: msg.ToolName,
		}
		for _, call := range msg.ToolCalls {
			encoded.ToolCalls = append(encoded.ToolCalls, chatToolCall{
				Function: chatToolFunction{
					Name:      call.Name,
					Arguments: call.Args,
				},
			})
		}
		out = append(out, encoded)
	}
	return out
}

func encodeToolSchemas(tools []domain.ToolSchema) []map[string]any {
	out := make([]map[string]any, 0, len(tools))
	for _, tool := range tools {
		properties := make(map[string]any, len(tool.Args))
		required := make([]string, 0)
		for _, arg := range tool.Args {
			prop := map[string]any{
				"type":        jsonSchemaType(arg.Type),
				"description": arg.Description,
			}
			if len(arg.Enum) > 0 {
				prop["enum"] = arg.Enum
			}
			if arg.Type == "array" {
				prop["items"] = map[string]any{"type": "string"}
			}
			properties[arg.Name] = prop
			if arg.Required {
				required = append(required, arg.Name)
			}
		}
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        tool.Name,
				"description": tool.Description,
				"parameters": map[string]any{
					"type":       "object",
					"properties": properties,
					"required":   required,
				},
			},
		})
	}
	return out
}

func jsonSchemaType(argType string) string {
	switch argType {
	case "integer", "number", "boolean", "array", "string":
		return argType
	default:
		return "string"
	}
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	if c.executor == nil {
		return wrapTemporaryIfNeeded(operation, c.doPostJSON(ctx, path, payload, out, operation))
	}
	err := c.executor.Execute(ctx, "ollama_"+operation, func(ctx context.Context) error {
		return c.doPostJSON(ctx, path, payload, out, operation)
	}, classifyOllamaError)
	return wrapTemporaryIfNeeded(operation, err)
}
