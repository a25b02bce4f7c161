package cart

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Natanaelvich/ai-smart-marketplace/internal/catalog"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) GetProduct(ctx context.Context, productID uint64) (*catalog.Product, error) {
	var p catalog.Product
	if err := r.db.WithContext(ctx).
		Select("id, name, price, store_id").
		First(&p, "id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindOrCreateActiveCart returns the unique active cart for (user, store),
// creating it when absent.
func (r *Repo) FindOrCreateActiveCart(ctx context.Context, userID, storeID uint64) (*Cart, error) {
	var c Cart
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND store_id = ? AND active = ?", userID, storeID, true).
		First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	c = Cart{UserID: userID, StoreID: storeID, Active: true}
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FirstActiveCart returns the user's active cart, nil when none exists.
func (r *Repo) FirstActiveCart(ctx context.Context, userID uint64) (*Cart, error) {
	var c Cart
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("id ASC").
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) GetItem(ctx context.Context, cartID, productID uint64) (*Item, error) {
	var item Item
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repo) InsertItem(ctx context.Context, item *Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *Repo) UpdateItemQuantity(ctx context.Context, itemID uint64, quantity int) error {
	return r.db.WithContext(ctx).Model(&Item{}).
		Where("id = ?", itemID).
		Update("quantity", quantity).Error
}

func (r *Repo) DeleteItem(ctx context.Context, itemID uint64) error {
	return r.db.WithContext(ctx).Delete(&Item{}, "id = ?", itemID).Error
}

func (r *Repo) StoreName(ctx context.Context, storeID uint64) (string, error) {
	var st catalog.Store
	if err := r.db.WithContext(ctx).First(&st, "id = ?", storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return st.Name, nil
}

type itemRow struct {
	ID           uint64
	ProductID    uint64
	Quantity     int
	ProductName  *string
	ProductPrice *int64
}

// ListItemRows joins cart items with product name/price. The join is left so
// items whose product vanished still appear; callers skip them in totals.
func (r *Repo) ListItemRows(ctx context.Context, cartID uint64) ([]itemRow, error) {
	var rows []itemRow
	err := r.db.WithContext(ctx).
		Table("cart_items").
		Select("cart_items.id, cart_items.product_id, cart_items.quantity, products.name AS product_name, products.price AS product_price").
		Joins("LEFT JOIN products ON products.id = cart_items.product_id").
		Where("cart_items.cart_id = ?", cartID).
		Order("cart_items.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteAllForUser removes every cart item and cart the user owns, active or
// not. A full reset.
func (r *Repo) DeleteAllForUser(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := tx.Model(&Cart{}).Select("id").Where("user_id = ?", userID)
		if err := tx.Where("cart_id IN (?)", sub).Delete(&Item{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&Cart{}).Error
	})
}

// ListSuggestedByMessageIDs loads suggestion carts (with items) keyed by the
// chat message that produced them.
func (r *Repo) ListSuggestedByMessageIDs(ctx context.Context, messageIDs []uint64) (map[uint64][]SuggestedCart, error) {
	if len(messageIDs) == 0 {
		return map[uint64][]SuggestedCart{}, nil
	}
	var carts []Cart
	if err := r.db.WithContext(ctx).
		Where("suggested_by_message_id IN ?", messageIDs).
		Order("id ASC").
		Find(&carts).Error; err != nil {
		return nil, err
	}
	cartIDs := make([]uint64, 0, len(carts))
	for _, c := range carts {
		cartIDs = append(cartIDs, c.ID)
	}
	itemsByCart := make(map[uint64][]Item)
	if len(cartIDs) > 0 {
		var items []Item
		if err := r.db.WithContext(ctx).
			Where("cart_id IN ?", cartIDs).
			Order("id ASC").
			Find(&items).Error; err != nil {
			return nil, err
		}
		for _, it := range items {
			itemsByCart[it.CartID] = append(itemsByCart[it.CartID], it)
		}
	}
	out := make(map[uint64][]SuggestedCart)
	for _, c := range carts {
		out[*c.SuggestedByMessageID] = append(out[*c.SuggestedByMessageID], SuggestedCart{
			Cart:  c,
			Items: itemsByCart[c.ID],
		})
	}
	return out, nil
}
