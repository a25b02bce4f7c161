package cart

import "time"

// Cart is either the single active user-editable cart per (user, store), or an
// inactive assistant-suggested cart linked back to the chat message that
// produced it.
type Cart struct {
	ID                   uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID               uint64    `gorm:"index;not null" json:"user_id"`
	StoreID              uint64    `gorm:"index;not null" json:"store_id"`
	Active               bool      `gorm:"not null;default:true;index" json:"active"`
	Score                *int      `json:"score,omitempty"` // 0-100 completeness, suggestions only
	SuggestedByMessageID *uint64   `gorm:"index" json:"suggested_by_message_id,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

func (Cart) TableName() string { return "carts" }

type Item struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID    uint64    `gorm:"not null;uniqueIndex:uniq_cart_product,priority:1" json:"cart_id"`
	ProductID uint64    `gorm:"not null;uniqueIndex:uniq_cart_product,priority:2" json:"product_id"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

func (Item) TableName() string { return "cart_items" }
