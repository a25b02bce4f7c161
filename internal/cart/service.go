package cart

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Natanaelvich/ai-smart-marketplace/internal/common"
)

type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

type MutationResult struct {
	ID     uint64 `json:"id"`
	Action string `json:"action"` // created | updated | deleted
}

// AddToCart puts quantity units of a product into the user's active cart for
// the product's store, creating the cart on first use. Re-adding a product
// merges quantities.
func (s *Service) AddToCart(ctx context.Context, userID, productID uint64, quantity int) (*MutationResult, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %d: %w", productID, common.ErrNotFound)
		}
		return nil, err
	}

	c, err := s.repo.FindOrCreateActiveCart(ctx, userID, product.StoreID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetItem(ctx, c.ID, productID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := s.repo.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+quantity); err != nil {
			return nil, err
		}
		return &MutationResult{ID: existing.ID, Action: "updated"}, nil
	}

	item := &Item{CartID: c.ID, ProductID: productID, Quantity: quantity}
	if err := s.repo.InsertItem(ctx, item); err != nil {
		return nil, err
	}
	return &MutationResult{ID: item.ID, Action: "created"}, nil
}

type ItemView struct {
	ID        uint64 `json:"id"`
	ProductID uint64 `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

type View struct {
	ID        uint64     `json:"id"`
	UserID    uint64     `json:"user_id"`
	StoreID   uint64     `json:"store_id"`
	StoreName string     `json:"store_name"`
	Active    bool       `json:"active"`
	Items     []ItemView `json:"items"`
	Total     int64      `json:"total"`
}

// GetCart returns the user's active cart with its items and computed total.
func (s *Service) GetCart(ctx context.Context, userID uint64) (*View, error) {
	c, err := s.repo.FirstActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("active cart: %w", common.ErrNotFound)
	}

	storeName, err := s.repo.StoreName(ctx, c.StoreID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListItemRows(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	view := &View{
		ID:        c.ID,
		UserID:    c.UserID,
		StoreID:   c.StoreID,
		StoreName: storeName,
		Active:    c.Active,
		Items:     make([]ItemView, 0, len(rows)),
	}
	for _, row := range rows {
		item := ItemView{ID: row.ID, ProductID: row.ProductID, Quantity: row.Quantity}
		if row.ProductName != nil {
			item.Name = *row.ProductName
		}
		if row.ProductPrice != nil {
			item.Price = *row.ProductPrice
			view.Total += *row.ProductPrice * int64(row.Quantity)
		}
		view.Items = append(view.Items, item)
	}
	return view, nil
}

// UpdateItemQuantity overwrites an item's quantity in the active cart.
// Quantity zero deletes the row. Negative quantities are rejected upstream.
func (s *Service) UpdateItemQuantity(ctx context.Context, userID, productID uint64, quantity int) (*MutationResult, error) {
	c, err := s.repo.FirstActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("active cart: %w", common.ErrNotFound)
	}

	item, err := s.repo.GetItem(ctx, c.ID, productID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("product %d in cart %d: %w", productID, c.ID, common.ErrNotFound)
	}

	if quantity == 0 {
		if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
			return nil, err
		}
		return &MutationResult{ID: item.ID, Action: "deleted"}, nil
	}

	if err := s.repo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
		return nil, err
	}
	return &MutationResult{ID: item.ID, Action: "updated"}, nil
}

// ClearAllCarts wipes every cart the user owns, suggestions included.
func (s *Service) ClearAllCarts(ctx context.Context, userID uint64) error {
	return s.repo.DeleteAllForUser(ctx, userID)
}

// SuggestedCart bundles an inactive suggestion cart with its items, used by
// the chat session view.
type SuggestedCart struct {
	Cart
	Items []Item `json:"items"`
}

func (s *Service) SuggestedByMessageIDs(ctx context.Context, messageIDs []uint64) (map[uint64][]SuggestedCart, error) {
	return s.repo.ListSuggestedByMessageIDs(ctx, messageIDs)
}
