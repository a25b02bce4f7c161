package cart

import (
	"context"
	"errors"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/Natanaelvich/ai-smart-marketplace/internal/catalog"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/common"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&catalog.Store{}, &catalog.Product{}, &Cart{}, &Item{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedStoreWithProducts(t *testing.T, db *gorm.DB) (catalog.Store, []catalog.Product) {
	t.Helper()
	store := catalog.Store{Name: "Mercado Central"}
	if err := db.Create(&store).Error; err != nil {
		t.Fatalf("create store: %v", err)
	}
	products := []catalog.Product{
		{Name: "Arroz 5kg", Price: 2599, StoreID: store.ID},
		{Name: "Feijao 1kg", Price: 899, StoreID: store.ID},
	}
	for i := range products {
		if err := db.Create(&products[i]).Error; err != nil {
			t.Fatalf("create product: %v", err)
		}
	}
	return store, products
}

func TestAddToCart_CreatesCartAndMergesQuantity(t *testing.T) {
	db := openTestDB(t)
	_, products := seedStoreWithProducts(t, db)

	svc := NewService(NewRepo(db))
	ctx := context.Background()

	res, err := svc.AddToCart(ctx, 1, products[0].ID, 2)
	if err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	if res.Action != "created" {
		t.Fatalf("expected created, got %q", res.Action)
	}

	// Re-adding the same product merges into the existing item.
	res, err = svc.AddToCart(ctx, 1, products[0].ID, 3)
	if err != nil {
		t.Fatalf("re-add to cart: %v", err)
	}
	if res.Action != "updated" {
		t.Fatalf("expected updated, got %q", res.Action)
	}

	var items []Item
	if err := db.Find(&items).Error; err != nil {
		t.Fatalf("query items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", items[0].Quantity)
	}

	var carts []Cart
	if err := db.Where("user_id = ?", uint64(1)).Find(&carts).Error; err != nil {
		t.Fatalf("query carts: %v", err)
	}
	if len(carts) != 1 {
		t.Fatalf("expected a single cart, got %d", len(carts))
	}
	if !carts[0].Active {
		t.Fatalf("expected the cart to be active")
	}
}

func TestAddToCart_UnknownProduct(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(NewRepo(db))

	_, err := svc.AddToCart(context.Background(), 1, 999, 1)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetCart_ComputesTotal(t *testing.T) {
	db := openTestDB(t)
	store, products := seedStoreWithProducts(t, db)

	svc := NewService(NewRepo(db))
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, 7, products[0].ID, 2); err != nil {
		t.Fatalf("add product 0: %v", err)
	}
	if _, err := svc.AddToCart(ctx, 7, products[1].ID, 1); err != nil {
		t.Fatalf("add product 1: %v", err)
	}

	view, err := svc.GetCart(ctx, 7)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if view.StoreName != store.Name {
		t.Fatalf("expected store %q, got %q", store.Name, view.StoreName)
	}
	if len(view.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(view.Items))
	}
	want := products[0].Price*2 + products[1].Price
	if view.Total != want {
		t.Fatalf("expected total %d, got %d", want, view.Total)
	}
}

func TestGetCart_NoActiveCart(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(NewRepo(db))

	_, err := svc.GetCart(context.Background(), 42)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateItemQuantity(t *testing.T) {
	db := openTestDB(t)
	_, products := seedStoreWithProducts(t, db)

	svc := NewService(NewRepo(db))
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, 3, products[0].ID, 2); err != nil {
		t.Fatalf("add to cart: %v", err)
	}

	res, err := svc.UpdateItemQuantity(ctx, 3, products[0].ID, 9)
	if err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if res.Action != "updated" {
		t.Fatalf("expected updated, got %q", res.Action)
	}

	var item Item
	if err := db.First(&item, "product_id = ?", products[0].ID).Error; err != nil {
		t.Fatalf("query item: %v", err)
	}
	if item.Quantity != 9 {
		t.Fatalf("expected quantity 9, got %d", item.Quantity)
	}

	// Quantity zero removes the item.
	res, err = svc.UpdateItemQuantity(ctx, 3, products[0].ID, 0)
	if err != nil {
		t.Fatalf("update to zero: %v", err)
	}
	if res.Action != "deleted" {
		t.Fatalf("expected deleted, got %q", res.Action)
	}
	var count int64
	if err := db.Model(&Item{}).Where("product_id = ?", products[0].ID).Count(&count).Error; err != nil {
		t.Fatalf("count items: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected item gone, found %d rows", count)
	}

	// The product is no longer in the cart.
	_, err = svc.UpdateItemQuantity(ctx, 3, products[0].ID, 1)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClearAllCarts(t *testing.T) {
	db := openTestDB(t)
	_, products := seedStoreWithProducts(t, db)

	svc := NewService(NewRepo(db))
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, 5, products[0].ID, 1); err != nil {
		t.Fatalf("add to cart: %v", err)
	}

	// An inactive suggestion cart for the same user is wiped too.
	score := 80
	suggested := Cart{UserID: 5, StoreID: products[0].StoreID, Active: false, Score: &score}
	if err := db.Create(&suggested).Error; err != nil {
		t.Fatalf("create suggested cart: %v", err)
	}
	if err := db.Create(&Item{CartID: suggested.ID, ProductID: products[1].ID, Quantity: 1}).Error; err != nil {
		t.Fatalf("create suggested item: %v", err)
	}

	// A different user's cart survives.
	if _, err := svc.AddToCart(ctx, 6, products[1].ID, 1); err != nil {
		t.Fatalf("add other user cart: %v", err)
	}

	if err := svc.ClearAllCarts(ctx, 5); err != nil {
		t.Fatalf("clear carts: %v", err)
	}

	var count int64
	if err := db.Model(&Cart{}).Where("user_id = ?", uint64(5)).Count(&count).Error; err != nil {
		t.Fatalf("count carts: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no carts for user 5, got %d", count)
	}
	if err := db.Model(&Cart{}).Where("user_id = ?", uint64(6)).Count(&count).Error; err != nil {
		t.Fatalf("count other carts: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected user 6 cart to survive, got %d", count)
	}
}
