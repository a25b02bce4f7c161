package ai

import (
	"context"

	"github.com/Natanaelvich/ai-smart-marketplace/internal/vector"
)

// ActionType tags the deferred operation the assistant proposes for a turn.
type ActionType string

const (
	ActionSendMessage  ActionType = "send_message"
	ActionSuggestCarts ActionType = "suggest_carts"
)

// Turn is a prior conversation message handed to the classifier for context.
type Turn struct {
	Role    string
	Content string
}

// Classification is the structured result of a classified user message.
// Input is only set for suggest_carts: it describes the user's need.
type Classification struct {
	Message    string
	Action     ActionType
	Input      string
	ResponseID string
}

type CandidateProduct struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// StoreCandidates groups retrieval candidates by owning store.
type StoreCandidates struct {
	StoreID  uint64             `json:"store_id"`
	Products []CandidateProduct `json:"products"`
}

type SuggestedCartProduct struct {
	ID       uint64 `json:"id"`
	Quantity int    `json:"quantity"`
}

type SuggestedCart struct {
	StoreID  uint64                 `json:"store_id"`
	Score    int                    `json:"score"` // 0-100 completeness
	Products []SuggestedCartProduct `json:"products"`
}

// CartSuggestion carries the scored per-store cart proposals plus the
// human-readable summary to persist as the assistant's result message.
type CartSuggestion struct {
	Response   string
	ResponseID string
	Carts      []SuggestedCart
}

type Classifier interface {
	ClassifyMessage(ctx context.Context, content string, history []Turn) (*Classification, error)
}

type CartSuggester interface {
	SuggestCarts(ctx context.Context, input string, stores []StoreCandidates) (*CartSuggestion, error)
}

type Embedder interface {
	EmbedText(ctx context.Context, input string) (vector.Embedding, error)
}

// BatchInput is one product to embed in a provider-hosted batch job.
type BatchInput struct {
	ProductID uint64
	Text      string
}

type BatchSubmission struct {
	InputFileID string
	BatchID     string
}

type BatchEmbedder interface {
	SubmitEmbeddingBatch(ctx context.Context, items []BatchInput) (*BatchSubmission, error)
}

// ProductEmbedding is one parsed line of a completed batch output file.
type ProductEmbedding struct {
	ProductID uint64
	Embedding vector.Embedding
}
