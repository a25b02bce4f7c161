package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Natanaelvich/ai-smart-marketplace/internal/vector"
)

const classifyPrompt = `You are a marketplace assistant with culinary knowledge. Identify which action the user is requesting:
- 'send_message': use this action to reply to the user before committing to anything. If the user asked for something but you still need more information, use this action to ask. Put the assistant reply in "message".
- 'suggest_carts': use this action only when you already have everything needed to suggest a shopping cart. Put in "input" a description of what the user wants together with the products you would suggest for the cart. The message accompanying this action must ask the user to confirm building the cart.
Example:
  - User message: "Build a cart for a chocolate cake recipe"
  - Assistant message: "You asked for a chocolate cake. Do you confirm the action so I can build the shopping cart?"
  - Input: "Chocolate cake. Ingredients: flour, sugar, eggs, dark chocolate, baking powder."
Never use 'suggest_carts' to answer the user, only to propose a cart. Do not dig too deep into details; if the user asks for a chocolate cake, suggest a cart with basic ingredients instead of asking about preferences, the user can refine later.`

const suggestCartsPrompt = `You are a marketplace assistant. Given the user's need and candidate products grouped by store, assemble one cart proposal per store using only the listed product ids. Rate each cart with a "score" from 0 to 100 measuring how completely that store covers the need. Put in "response" a short human-readable summary of the suggested carts.`

type OpenAIProvider struct {
	BaseURL    string
	APIKey     string
	ChatModel  string
	EmbedModel string
	Client     *http.Client
}

func NewOpenAIProvider(baseURL, apiKey, chatModel, embedModel string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	if embedModel == "" {
		embedModel = "text-embedding-3-small"
	}
	return &OpenAIProvider{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		ChatModel:  chatModel,
		EmbedModel: embedModel,
		Client:     &http.Client{Timeout: 90 * time.Second},
	}
}

type chatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatReq struct {
	Model          string         `json:"model"`
	Messages       []chatMsg      `json:"messages"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResp struct {
	ID      string `json:"id"`
	Choices []struct {
		Message chatMsg `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func jsonSchemaFormat(name string, schema map[string]any) map[string]any {
	return map[string]any{
		"type": "json_schema",
		"json_schema": map[string]any{
			"name":   name,
			"strict": true,
			"schema": schema,
		},
	}
}

var classifySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"message": map[string]any{"type": "string"},
		"action": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"type": map[string]any{
					"type": "string",
					"enum": []string{string(ActionSendMessage), string(ActionSuggestCarts)},
				},
				"payload": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"input": map[string]any{"type": "string"},
					},
					"required":             []string{"input"},
					"additionalProperties": false,
				},
			},
			"required":             []string{"type"},
			"additionalProperties": false,
		},
	},
	"required":             []string{"message", "action"},
	"additionalProperties": false,
}

var suggestCartsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"response": map[string]any{"type": "string"},
		"carts": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"store_id": map[string]any{"type": "integer"},
					"score":    map[string]any{"type": "integer"},
					"products": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"id":       map[string]any{"type": "integer"},
								"quantity": map[string]any{"type": "integer"},
							},
							"required":             []string{"id", "quantity"},
							"additionalProperties": false,
						},
					},
				},
				"required":             []string{"store_id", "score", "products"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"response", "carts"},
	"additionalProperties": false,
}

func (p *OpenAIProvider) completions(ctx context.Context, messages []chatMsg, format map[string]any) (*chatResp, error) {
	if p.Client == nil {
		return nil, errors.New("openai: http client is nil")
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return nil, errors.New("openai: api key is required")
	}

	b, err := json.Marshal(chatReq{Model: p.ChatModel, Messages: messages, ResponseFormat: format})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(p.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("openai: %s", msg)
	}

	var decoded chatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return nil, errors.New(decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return nil, errors.New("openai: empty response")
	}
	return &decoded, nil
}

type classifiedPayload struct {
	Message string `json:"message"`
	Action  struct {
		Type    string `json:"type"`
		Payload *struct {
			Input string `json:"input"`
		} `json:"payload,omitempty"`
	} `json:"action"`
}

// ClassifyMessage asks the model which action the user's message requests,
// with prior turns as conversational context.
func (p *OpenAIProvider) ClassifyMessage(ctx context.Context, content string, history []Turn) (*Classification, error) {
	messages := make([]chatMsg, 0, len(history)+2)
	messages = append(messages, chatMsg{Role: "system", Content: classifyPrompt})
	for _, t := range history {
		messages = append(messages, chatMsg{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, chatMsg{Role: "user", Content: content})

	resp, err := p.completions(ctx, messages, jsonSchemaFormat("answer_schema", classifySchema))
	if err != nil {
		return nil, err
	}

	var parsed classifiedPayload
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("openai: decode classification: %w", err)
	}

	out := &Classification{
		Message:    parsed.Message,
		Action:     ActionType(parsed.Action.Type),
		ResponseID: resp.ID,
	}
	if parsed.Action.Payload != nil {
		out.Input = parsed.Action.Payload.Input
	}
	return out, nil
}

type suggestionPayload struct {
	Response string          `json:"response"`
	Carts    []SuggestedCart `json:"carts"`
}

// SuggestCarts asks the model to assemble scored per-store carts from the
// retrieval candidates.
func (p *OpenAIProvider) SuggestCarts(ctx context.Context, input string, stores []StoreCandidates) (*CartSuggestion, error) {
	candidates, err := json.Marshal(stores)
	if err != nil {
		return nil, err
	}
	user := fmt.Sprintf("User need: %s\n\nCandidate products grouped by store:\n%s", input, candidates)

	resp, err := p.completions(ctx, []chatMsg{
		{Role: "system", Content: suggestCartsPrompt},
		{Role: "user", Content: user},
	}, jsonSchemaFormat("suggest_carts_schema", suggestCartsSchema))
	if err != nil {
		return nil, err
	}

	var parsed suggestionPayload
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("openai: decode suggestion: %w", err)
	}
	return &CartSuggestion{
		Response:   parsed.Response,
		ResponseID: resp.ID,
		Carts:      parsed.Carts,
	}, nil
}

type embedReq struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResp struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *OpenAIProvider) EmbedText(ctx context.Context, input string) (vector.Embedding, error) {
	if p.Client == nil {
		return nil, errors.New("openai: http client is nil")
	}

	b, err := json.Marshal(embedReq{Model: p.EmbedModel, Input: input})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/embeddings", strings.TrimRight(p.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai: status %d", resp.StatusCode)
	}

	var decoded embedResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return nil, errors.New(decoded.Error.Message)
	}
	if len(decoded.Data) == 0 {
		return nil, errors.New("openai: empty embedding response")
	}
	return vector.Embedding(decoded.Data[0].Embedding), nil
}
