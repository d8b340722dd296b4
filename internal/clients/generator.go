package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-support/internal/domain"
	support_errors "storefront-support/pkg/errors"

	"github.com/sony/gobreaker"
	openai "github.com/sashabaranov/go-openai"
)

type Turn struct {
	Role string
	Text string
}

// OrderFinder looks up an order on behalf of one already-authenticated customer.
type OrderFinder func(ctx context.Context, orderNumber string) (Order, error)

type GenerationRequest struct {
	History    []Turn
	CustomerID string
	Language   domain.LanguageCode
	// Orders, when set, is offered to the model as a tool scoped to CustomerID.
	Orders OrderFinder
}

// Generator produces a free-form assistant reply.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

func NewOpenAIGenerator(apiKey, model, baseURL string, timeout time.Duration) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIGenerator{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		breaker: newBreaker("language-generation"),
		timeout: timeout,
	}
}

const systemPrompt = `You are the customer support assistant of an online store.
Answer briefly and politely. Never invent order details or prices.
Reply in the customer's language: %s.`

// jsonGuard goes last so the model sees it right before answering.
const jsonGuard = `Reply ONLY with valid JSON.
No text outside the JSON.
Exact format:
{"answer":"string"}
Replies in any other format are discarded.`

const (
	orderToolName = "lookup_order"
	maxToolRounds = 2
)

var orderTool = openai.Tool{
	Type: openai.ToolTypeFunction,
	Function: &openai.FunctionDefinition{
		Name:        orderToolName,
		Description: "Look up one of the current customer's own orders by order number.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"order_number": map[string]any{"type": "string"},
			},
			"required": []string{"order_number"},
		},
	},
}

type orderToolArgs struct {
	OrderNumber string `json:"order_number"`
}

type generatedAnswer struct {
	Answer string `json:"answer"`
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: fmt.Sprintf(systemPrompt, req.Language),
	})
	for _, turn := range req.History {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: turn.Role, Content: turn.Text})
	}
	var tools []openai.Tool
	if req.Orders != nil {
		tools = []openai.Tool{orderTool}
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		for round := 0; ; round++ {
			offer := tools
			if round == maxToolRounds {
				offer = nil
			}
			resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:    g.model,
				Messages: append(msgs[:len(msgs):len(msgs)], openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: jsonGuard}),
				Tools:    offer,
				User:     req.CustomerID,
			})
			if err != nil {
				return nil, err
			}
			if len(resp.Choices) == 0 {
				return nil, fmt.Errorf("empty choices: %w", support_errors.ErrUpstream)
			}
			choice := resp.Choices[0].Message
			if len(choice.ToolCalls) == 0 || offer == nil {
				return parseAnswer(choice.Content)
			}
			msgs = append(msgs, choice)
			for _, call := range choice.ToolCalls {
				msgs = append(msgs, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					ToolCallID: call.ID,
					Content:    runOrderTool(ctx, req.Orders, call),
				})
			}
		}
	})
	if err != nil {
		return "", classify("language-generation", err)
	}
	return result.(string), nil
}

// runOrderTool answers one tool call with JSON the model can read. Lookup failures are reported, not raised.
func runOrderTool(ctx context.Context, find OrderFinder, call openai.ToolCall) string {
	if call.Function.Name != orderToolName {
		return `{"error":"unknown tool"}`
	}
	var args orderToolArgs
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil || strings.TrimSpace(args.OrderNumber) == "" {
		return `{"error":"order_number is required"}`
	}
	order, err := find(ctx, strings.TrimSpace(args.OrderNumber))
	switch {
	case errors.Is(err, support_errors.ErrNotFound):
		return `{"error":"order not found for this customer"}`
	case err != nil:
		return `{"error":"order service unavailable"}`
	}
	out, err := json.Marshal(order)
	if err != nil {
		return `{"error":"order could not be read"}`
	}
	return string(out)
}

// parseAnswer extracts the answer field, tolerating a fenced code block around the JSON.
func parseAnswer(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")

	var out generatedAnswer
	if err := json.Unmarshal([]byte(strings.TrimSpace(trimmed)), &out); err != nil {
		return "", fmt.Errorf("unparsable answer: %w", support_errors.ErrUpstream)
	}
	if strings.TrimSpace(out.Answer) == "" {
		return "", fmt.Errorf("empty answer: %w", support_errors.ErrUpstream)
	}
	return out.Answer, nil
}
