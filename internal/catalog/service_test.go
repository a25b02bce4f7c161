package catalog

import (
	"context"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/Natanaelvich/ai-smart-marketplace/internal/vector"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Store{}, &Product{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func mustCreate(t *testing.T, db *gorm.DB, value any) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("create %T: %v", value, err)
	}
}

func TestGetCatalog_SearchIsCaseInsensitive(t *testing.T) {
	db := openTestDB(t)
	store := Store{Name: "Padaria do Bairro"}
	mustCreate(t, db, &store)
	mustCreate(t, db, &Product{Name: "Pao Frances", Price: 80, StoreID: store.ID})
	mustCreate(t, db, &Product{Name: "Bolo de Cenoura", Price: 1500, StoreID: store.ID})

	svc := NewService(NewRepo(db))

	all, err := svc.GetCatalog(context.Background(), "")
	if err != nil {
		t.Fatalf("get catalog: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 products, got %d", len(all))
	}
	if all[0].Store.Name != store.Name {
		t.Fatalf("expected store %q on product, got %q", store.Name, all[0].Store.Name)
	}

	found, err := svc.GetCatalog(context.Background(), "PAO")
	if err != nil {
		t.Fatalf("search catalog: %v", err)
	}
	if len(found) != 1 || found[0].Name != "Pao Frances" {
		t.Fatalf("expected the bread only, got %+v", found)
	}
}

func TestGetProductStats_IncludesEmptyStores(t *testing.T) {
	db := openTestDB(t)
	full := Store{Name: "Cheio"}
	empty := Store{Name: "Vazio"}
	mustCreate(t, db, &full)
	mustCreate(t, db, &empty)
	mustCreate(t, db, &Product{Name: "A", Price: 100, StoreID: full.ID})
	mustCreate(t, db, &Product{Name: "B", Price: 300, StoreID: full.ID})

	svc := NewService(NewRepo(db))

	stats, err := svc.GetProductStats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 stores, got %d", len(stats))
	}
	// Most stocked store first.
	if stats[0].Store.ID != full.ID || stats[0].TotalProducts != 2 {
		t.Fatalf("unexpected first row: %+v", stats[0])
	}
	if stats[0].MinPrice == nil || *stats[0].MinPrice != 100 {
		t.Fatalf("unexpected min price: %+v", stats[0].MinPrice)
	}
	if stats[0].MaxPrice == nil || *stats[0].MaxPrice != 300 {
		t.Fatalf("unexpected max price: %+v", stats[0].MaxPrice)
	}
	if stats[0].AvgPrice == nil || *stats[0].AvgPrice != 200 {
		t.Fatalf("unexpected avg price: %+v", stats[0].AvgPrice)
	}
	if stats[1].Store.ID != empty.ID || stats[1].TotalProducts != 0 {
		t.Fatalf("unexpected empty store row: %+v", stats[1])
	}
	if stats[1].MinPrice != nil {
		t.Fatalf("expected nil min price for empty store")
	}
}

func TestGetProductsByPrice(t *testing.T) {
	db := openTestDB(t)
	store := Store{Name: "Loja"}
	mustCreate(t, db, &store)
	mustCreate(t, db, &Product{Name: "Caro", Price: 900, StoreID: store.ID})
	mustCreate(t, db, &Product{Name: "Barato", Price: 100, StoreID: store.ID})

	svc := NewService(NewRepo(db))

	asc, err := svc.GetProductsByPrice(context.Background(), true)
	if err != nil {
		t.Fatalf("by price asc: %v", err)
	}
	if asc[0].Name != "Barato" || asc[1].Name != "Caro" {
		t.Fatalf("unexpected asc order: %+v", asc)
	}

	desc, err := svc.GetProductsByPrice(context.Background(), false)
	if err != nil {
		t.Fatalf("by price desc: %v", err)
	}
	if desc[0].Name != "Caro" || desc[1].Name != "Barato" {
		t.Fatalf("unexpected desc order: %+v", desc)
	}
}

func TestFindSimilar_ThresholdIsStrict(t *testing.T) {
	db := openTestDB(t)
	store := Store{Name: "Loja"}
	mustCreate(t, db, &store)
	// Distance to the query [1,0]: exact 0 for aligned, exact 1 for orthogonal.
	mustCreate(t, db, &Product{Name: "aligned", Price: 1, StoreID: store.ID, Embedding: vector.Embedding{1, 0}})
	mustCreate(t, db, &Product{Name: "orthogonal", Price: 1, StoreID: store.ID, Embedding: vector.Embedding{0, 1}})
	mustCreate(t, db, &Product{Name: "no embedding", Price: 1, StoreID: store.ID})

	repo := NewRepo(db)
	query := vector.Embedding{1, 0}

	// Orthogonal sits exactly at distance 1, which a threshold of 1 excludes.
	rows, err := repo.FindSimilar(context.Background(), query, 1)
	if err != nil {
		t.Fatalf("find similar: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "aligned" {
		t.Fatalf("expected only the aligned product, got %+v", rows)
	}

	// Nudging the threshold above the distance brings it in.
	rows, err = repo.FindSimilar(context.Background(), query, 1.01)
	if err != nil {
		t.Fatalf("find similar: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected both embedded products, got %+v", rows)
	}
}

func TestFindSimilarByStore_GroupsByStore(t *testing.T) {
	db := openTestDB(t)
	s1 := Store{Name: "Um"}
	s2 := Store{Name: "Dois"}
	mustCreate(t, db, &s1)
	mustCreate(t, db, &s2)
	mustCreate(t, db, &Product{Name: "p1", Price: 10, StoreID: s1.ID, Embedding: vector.Embedding{1, 0}})
	mustCreate(t, db, &Product{Name: "p2", Price: 20, StoreID: s2.ID, Embedding: vector.Embedding{1, 0.1}})
	mustCreate(t, db, &Product{Name: "p3", Price: 30, StoreID: s1.ID, Embedding: vector.Embedding{0.9, 0.1}})
	// Far from the query, filtered out.
	mustCreate(t, db, &Product{Name: "p4", Price: 40, StoreID: s2.ID, Embedding: vector.Embedding{-1, 0}})

	svc := NewService(NewRepo(db))

	groups, err := svc.FindSimilarByStore(context.Background(), vector.Embedding{1, 0}, 0.65)
	if err != nil {
		t.Fatalf("find similar by store: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 store groups, got %d", len(groups))
	}
	byStore := make(map[uint64]int)
	for _, g := range groups {
		byStore[g.StoreID] = len(g.Products)
	}
	if byStore[s1.ID] != 2 {
		t.Fatalf("expected 2 products for store %d, got %d", s1.ID, byStore[s1.ID])
	}
	if byStore[s2.ID] != 1 {
		t.Fatalf("expected 1 product for store %d, got %d", s2.ID, byStore[s2.ID])
	}
}

func TestListWithoutEmbedding(t *testing.T) {
	db := openTestDB(t)
	store := Store{Name: "Loja"}
	mustCreate(t, db, &store)
	mustCreate(t, db, &Product{Name: "embedded", Price: 1, StoreID: store.ID, Embedding: vector.Embedding{1, 0}})
	mustCreate(t, db, &Product{Name: "pending", Price: 1, StoreID: store.ID})

	svc := NewService(NewRepo(db))

	products, err := svc.ListWithoutEmbedding(context.Background())
	if err != nil {
		t.Fatalf("list without embedding: %v", err)
	}
	if len(products) != 1 || products[0].Name != "pending" {
		t.Fatalf("expected only the pending product, got %+v", products)
	}
}

func TestUpdateEmbedding(t *testing.T) {
	db := openTestDB(t)
	store := Store{Name: "Loja"}
	mustCreate(t, db, &store)
	p := Product{Name: "pending", Price: 1, StoreID: store.ID}
	mustCreate(t, db, &p)

	svc := NewService(NewRepo(db))

	if err := svc.UpdateEmbedding(context.Background(), p.ID, vector.Embedding{0.5, 0.5}); err != nil {
		t.Fatalf("update embedding: %v", err)
	}

	var got Product
	if err := db.First(&got, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if len(got.Embedding) != 2 || got.Embedding[0] != 0.5 {
		t.Fatalf("unexpected embedding after update: %v", got.Embedding)
	}
}
