package chat

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Natanaelvich/ai-smart-marketplace/internal/ai"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/cart"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateSession(ctx context.Context, s *Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *Repo) GetSession(ctx context.Context, sessionID uint64) (*Session, error) {
	var s Session
	if err := r.db.WithContext(ctx).First(&s, "id = ?", sessionID).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListMessages returns the full session history in ASC id order.
func (r *Repo) ListMessages(ctx context.Context, sessionID uint64) ([]Message, error) {
	var msgs []Message
	err := r.db.WithContext(ctx).
		Where("chat_session_id = ?", sessionID).
		Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListRecentMessagesDesc returns the most recent messages, newest first.
func (r *Repo) ListRecentMessagesDesc(ctx context.Context, sessionID uint64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 20
	}
	var msgs []Message
	err := r.db.WithContext(ctx).
		Where("chat_session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// InsertActionIdempotent creates the action row; a duplicate (message, type)
// pair is a silent no-op.
func (r *Repo) InsertActionIdempotent(ctx context.Context, a *MessageAction) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_message_id"}, {Name: "action_type"}},
			DoNothing: true,
		}).
		Create(a).Error
}

func (r *Repo) ListActionsByMessageIDs(ctx context.Context, messageIDs []uint64) ([]MessageAction, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	var actions []MessageAction
	err := r.db.WithContext(ctx).
		Where("chat_message_id IN ?", messageIDs).
		Find(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}

// GetActionInSession loads an action only when its message belongs to the
// session.
func (r *Repo) GetActionInSession(ctx context.Context, sessionID, actionID uint64) (*MessageAction, error) {
	var a MessageAction
	err := r.db.WithContext(ctx).
		Table("chat_messages_actions").
		Select("chat_messages_actions.*").
		Joins("INNER JOIN chat_messages ON chat_messages.id = chat_messages_actions.chat_message_id").
		Where("chat_messages_actions.id = ? AND chat_messages.chat_session_id = ?", actionID, sessionID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repo) GetAction(ctx context.Context, actionID uint64) (*MessageAction, error) {
	var a MessageAction
	if err := r.db.WithContext(ctx).First(&a, "id = ?", actionID).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ConfirmAction stamps confirmed_at with a single conditional update so that
// concurrent confirms serialize at the database; exactly one caller wins.
func (r *Repo) ConfirmAction(ctx context.Context, actionID uint64, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&MessageAction{}).
		Where("id = ? AND confirmed_at IS NULL", actionID).
		Update("confirmed_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SaveSuggestionResult persists the outcome of an executed suggest_carts
// action in one transaction: the assistant result message, one inactive
// scored cart per store linked back to that message, the cart items
// (quantity overwritten on conflict), and the executed_at stamp.
func (r *Repo) SaveSuggestionResult(ctx context.Context, userID, sessionID, actionID uint64, sug *ai.CartSuggestion) (*Message, error) {
	msg := &Message{
		ChatSessionID: sessionID,
		Content:       sug.Response,
		Sender:        SenderAssistant,
		MessageType:   MessageTypeSuggestCartsResult,
	}
	if sug.ResponseID != "" {
		id := sug.ResponseID
		msg.ProviderMessageID = &id
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		for _, sc := range sug.Carts {
			score := sc.Score
			c := cart.Cart{
				UserID:               userID,
				StoreID:              sc.StoreID,
				Active:               false,
				Score:                &score,
				SuggestedByMessageID: &msg.ID,
			}
			if err := tx.Create(&c).Error; err != nil {
				return err
			}
			for _, p := range sc.Products {
				item := cart.Item{CartID: c.ID, ProductID: p.ID, Quantity: p.Quantity}
				if err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
					DoUpdates: clause.AssignmentColumns([]string{"quantity"}),
				}).Create(&item).Error; err != nil {
					return err
				}
			}
		}
		return tx.Model(&MessageAction{}).
			Where("id = ?", actionID).
			Update("executed_at", time.Now()).Error
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}
