package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Natanaelvich/ai-smart-marketplace/internal/ai"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/cart"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/catalog"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/common"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/vector"
)

// Service sequences the conversation gateway, the embedding gateway, the
// catalog and the cart store to run the session/message/action state machine.
type Service struct {
	repo       *Repo
	carts      *cart.Service
	catalog    *catalog.Service
	classifier ai.Classifier
	suggester  ai.CartSuggester
	embedder   ai.Embedder

	similarityThreshold float64
	contextWindowSize   int
}

func NewService(
	repo *Repo,
	carts *cart.Service,
	catalogSvc *catalog.Service,
	classifier ai.Classifier,
	suggester ai.CartSuggester,
	embedder ai.Embedder,
	similarityThreshold float64,
	contextWindowSize int,
) *Service {
	if similarityThreshold <= 0 {
		similarityThreshold = 0.65
	}
	if contextWindowSize <= 0 || contextWindowSize > 100 {
		contextWindowSize = 20
	}
	return &Service{
		repo:                repo,
		carts:               carts,
		catalog:             catalogSvc,
		classifier:          classifier,
		suggester:           suggester,
		embedder:            embedder,
		similarityThreshold: similarityThreshold,
		contextWindowSize:   contextWindowSize,
	}
}

func (s *Service) CreateSession(ctx context.Context, userID uint64) (*Session, error) {
	session := &Session{UserID: userID}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ownedSession loads the session and hides its existence from other users.
func (s *Service) ownedSession(ctx context.Context, userID, sessionID uint64) (*Session, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("chat session %d: %w", sessionID, common.ErrNotFound)
		}
		return nil, err
	}
	if session.UserID != userID {
		return nil, fmt.Errorf("chat session %d: %w", sessionID, common.ErrNotFound)
	}
	return session, nil
}

type MessageDetail struct {
	Message
	Action *MessageAction       `json:"action,omitempty"`
	Carts  []cart.SuggestedCart `json:"carts,omitempty"`
}

type SessionDetail struct {
	Session
	Messages []MessageDetail `json:"messages"`
}

// GetSession returns the session with its messages, their actions, and, for
// suggestion result messages, the suggested carts with items.
func (s *Service) GetSession(ctx context.Context, userID, sessionID uint64) (*SessionDetail, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.repo.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messageIDs := make([]uint64, 0, len(msgs))
	var resultIDs []uint64
	for _, m := range msgs {
		messageIDs = append(messageIDs, m.ID)
		if m.MessageType == MessageTypeSuggestCartsResult {
			resultIDs = append(resultIDs, m.ID)
		}
	}

	actions, err := s.repo.ListActionsByMessageIDs(ctx, messageIDs)
	if err != nil {
		return nil, err
	}
	actionByMessage := make(map[uint64]*MessageAction, len(actions))
	for i := range actions {
		actionByMessage[actions[i].ChatMessageID] = &actions[i]
	}

	cartsByMessage, err := s.carts.SuggestedByMessageIDs(ctx, resultIDs)
	if err != nil {
		return nil, err
	}

	detail := &SessionDetail{Session: *session, Messages: make([]MessageDetail, 0, len(msgs))}
	for _, m := range msgs {
		md := MessageDetail{Message: m, Action: actionByMessage[m.ID]}
		if m.MessageType == MessageTypeSuggestCartsResult {
			md.Carts = cartsByMessage[m.ID]
		}
		detail.Messages = append(detail.Messages, md)
	}
	return detail, nil
}

// AddUserMessage persists the user's turn, classifies it, persists the
// assistant's reply, and records a pending action when the classifier asks
// for one. The user message survives a gateway failure; the assistant turn
// does not.
func (s *Service) AddUserMessage(ctx context.Context, userID, sessionID uint64, content string) (*Message, error) {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	history, err := s.conversationHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	userMsg := &Message{
		ChatSessionID: sessionID,
		Content:       content,
		Sender:        SenderUser,
		MessageType:   MessageTypeText,
	}
	if err := s.repo.InsertMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	classified, err := s.classifier.ClassifyMessage(ctx, content, history)
	if err != nil {
		return nil, fmt.Errorf("%w: classify: %v", common.ErrGateway, err)
	}
	if classified == nil {
		return nil, fmt.Errorf("%w: classifier returned no result", common.ErrGateway)
	}

	assistantMsg := &Message{
		ChatSessionID: sessionID,
		Content:       classified.Message,
		Sender:        SenderAssistant,
		MessageType:   MessageTypeText,
	}
	if classified.ResponseID != "" {
		id := classified.ResponseID
		assistantMsg.ProviderMessageID = &id
	}
	if err := s.repo.InsertMessage(ctx, assistantMsg); err != nil {
		return nil, err
	}

	if classified.Action == ai.ActionSuggestCarts {
		action := &MessageAction{
			ChatMessageID: assistantMsg.ID,
			ActionType:    ai.ActionSuggestCarts,
			Payload:       Payload{Input: classified.Input},
		}
		if err := s.repo.InsertActionIdempotent(ctx, action); err != nil {
			return nil, err
		}
	}

	return userMsg, nil
}

// conversationHistory builds the classifier context from the most recent
// turns, oldest first.
func (s *Service) conversationHistory(ctx context.Context, sessionID uint64) ([]ai.Turn, error) {
	recentDesc, err := s.repo.ListRecentMessagesDesc(ctx, sessionID, s.contextWindowSize)
	if err != nil {
		return nil, err
	}
	turns := make([]ai.Turn, 0, len(recentDesc))
	for i := len(recentDesc) - 1; i >= 0; i-- {
		m := recentDesc[i]
		turns = append(turns, ai.Turn{Role: m.Sender, Content: m.Content})
	}
	return turns, nil
}

// ConfirmAction transitions a pending action to confirmed and dispatches by
// action type. Re-confirming fails with a conflict.
func (s *Service) ConfirmAction(ctx context.Context, userID, sessionID, actionID uint64) (*MessageAction, error) {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	action, err := s.repo.GetActionInSession(ctx, sessionID, actionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("chat message action %d: %w", actionID, common.ErrNotFound)
		}
		return nil, err
	}

	confirmed, err := s.repo.ConfirmAction(ctx, actionID, time.Now())
	if err != nil {
		return nil, err
	}
	if !confirmed {
		return nil, fmt.Errorf("action %d already confirmed: %w", actionID, common.ErrConflict)
	}

	switch action.ActionType {
	case ai.ActionSuggestCarts:
		if err := s.executeSuggestCarts(ctx, userID, sessionID, action); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedAction, action.ActionType)
	}

	return s.repo.GetAction(ctx, actionID)
}

// executeSuggestCarts runs the suggestion pipeline: embed the need, retrieve
// similar products per store, ask the model for scored carts, persist
// everything atomically.
func (s *Service) executeSuggestCarts(ctx context.Context, userID, sessionID uint64, action *MessageAction) error {
	emb, err := s.embedder.EmbedText(ctx, action.Payload.Input)
	if err != nil {
		return fmt.Errorf("%w: embed: %v", common.ErrGateway, err)
	}

	groups, err := s.catalog.FindSimilarByStore(ctx, vector.Embedding(emb), s.similarityThreshold)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return fmt.Errorf("no relevant products for the given input: %w", common.ErrNotFound)
	}

	candidates := make([]ai.StoreCandidates, 0, len(groups))
	for _, g := range groups {
		sc := ai.StoreCandidates{StoreID: g.StoreID}
		for _, p := range g.Products {
			sc.Products = append(sc.Products, ai.CandidateProduct{ID: p.ID, Name: p.Name, Price: p.Price})
		}
		candidates = append(candidates, sc)
	}

	sug, err := s.suggester.SuggestCarts(ctx, action.Payload.Input, candidates)
	if err != nil {
		return fmt.Errorf("%w: suggest carts: %v", common.ErrGateway, err)
	}
	if sug == nil || len(sug.Carts) == 0 {
		return fmt.Errorf("%w: suggester returned no carts", common.ErrGateway)
	}

	_, err = s.repo.SaveSuggestionResult(ctx, userID, sessionID, action.ID, sug)
	return err
}
